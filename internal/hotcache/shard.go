package hotcache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

type entry struct {
	key        string
	value      []byte
	insertedAt int64 // unix nano, reset on every insert
}

func (e *entry) weight() int64 { return int64(len(e.key) + len(e.value)) }

// shard is an independently locked LRU segment. Get reorders the list,
// so reads take the exclusive lock as well.
type shard struct {
	sync.Mutex
	id       int
	capacity int
	items    map[string]*list.Element
	lru      *list.List // front is most recently used

	len int64 // atomic
	mem int64 // atomic
}

func newShard(id, capacity int) *shard {
	return &shard{
		id:       id,
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

func (sh *shard) Len() int64 { return atomic.LoadInt64(&sh.len) }
func (sh *shard) Mem() int64 { return atomic.LoadInt64(&sh.mem) }

// get returns the value if present and younger than ttl. An expired entry is dropped on the spot.
func (sh *shard) get(key string, now, ttl int64) (value []byte, hit, expired bool) {
	sh.Lock()
	defer sh.Unlock()

	el, ok := sh.items[key]
	if !ok {
		return nil, false, false
	}
	e := el.Value.(*entry)
	if isExpired(e, now, ttl) {
		sh.removeUnlocked(el)
		return nil, false, true
	}
	sh.lru.MoveToFront(el)
	return e.value, true, false
}

// set inserts or overwrites key. When the shard is full the least recently used entry goes.
func (sh *shard) set(key string, value []byte, now int64) (evicted bool) {
	sh.Lock()
	defer sh.Unlock()

	if el, ok := sh.items[key]; ok {
		e := el.Value.(*entry)
		atomic.AddInt64(&sh.mem, int64(len(value)-len(e.value)))
		e.value = value
		e.insertedAt = now
		sh.lru.MoveToFront(el)
		return false
	}

	if len(sh.items) >= sh.capacity {
		if tail := sh.lru.Back(); tail != nil {
			sh.removeUnlocked(tail)
			evicted = true
		}
	}

	e := &entry{key: key, value: value, insertedAt: now}
	sh.items[key] = sh.lru.PushFront(e)
	atomic.AddInt64(&sh.len, 1)
	atomic.AddInt64(&sh.mem, e.weight())
	return evicted
}

func (sh *shard) remove(key string) bool {
	sh.Lock()
	defer sh.Unlock()

	el, ok := sh.items[key]
	if ok {
		sh.removeUnlocked(el)
	}
	return ok
}

// sweep drops every entry older than ttl and returns how many went away.
func (sh *shard) sweep(now, ttl int64) (removed int64) {
	sh.Lock()
	defer sh.Unlock()

	for _, el := range sh.items {
		if isExpired(el.Value.(*entry), now, ttl) {
			sh.removeUnlocked(el)
			removed++
		}
	}
	return removed
}

func (sh *shard) clear() (items int64) {
	sh.Lock()
	defer sh.Unlock()

	items = int64(len(sh.items))
	sh.items = make(map[string]*list.Element, sh.capacity)
	sh.lru.Init()
	atomic.StoreInt64(&sh.len, 0)
	atomic.StoreInt64(&sh.mem, 0)
	return items
}

// removeUnlocked must be called with the shard locked.
func (sh *shard) removeUnlocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(sh.items, e.key)
	sh.lru.Remove(el)
	atomic.AddInt64(&sh.len, -1)
	atomic.AddInt64(&sh.mem, -e.weight())
}

func isExpired(e *entry, now, ttl int64) bool {
	return ttl > 0 && now-e.insertedAt >= ttl
}
