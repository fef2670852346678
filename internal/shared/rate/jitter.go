// Package rate paces background work with go.uber.org/ratelimit.
package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Jitter turns a leaky-bucket limiter into a channel of ticks so workers can
// select on it next to ctx.Done. The channel is closed once ctx ends.
type Jitter struct {
	ch    chan struct{}
	l     ratelimit.Limiter
	limit int
}

func NewJitter(ctx context.Context, perSecond int) *Jitter {
	if perSecond < 1 {
		perSecond = 1
	}
	burst := max(perSecond/10, 1)

	j := &Jitter{
		limit: perSecond,
		ch:    make(chan struct{}, burst),
		l:     ratelimit.New(perSecond),
	}
	go j.provider(ctx)
	return j
}

func (j *Jitter) provider(ctx context.Context) {
	defer close(j.ch)
	for {
		if ctx.Err() != nil {
			return
		}
		j.l.Take()
		select {
		case <-ctx.Done():
			return
		case j.ch <- struct{}{}:
		}
	}
}

// Chan yields one value per permitted operation.
func (j *Jitter) Chan() <-chan struct{} { return j.ch }

// Limit is the configured rate per second.
func (j *Jitter) Limit() int { return j.limit }

// Limiter paces callers that are allowed to block, e.g. upstream fetches.
// A non-positive rate disables pacing.
type Limiter struct {
	l ratelimit.Limiter
}

func NewLimiter(perSecond int) *Limiter {
	if perSecond <= 0 {
		return &Limiter{l: ratelimit.NewUnlimited()}
	}
	return &Limiter{l: ratelimit.New(perSecond, ratelimit.WithoutSlack)}
}

// Wait blocks until the next slot or until ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		l.l.Take()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
