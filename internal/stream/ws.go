package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// WSSource reads JSON events from a websocket endpoint and publishes them.
type WSSource struct {
	url    string
	out    *Broadcaster
	logger *slog.Logger
	dialer *websocket.Dialer

	received  atomic.Int64
	malformed atomic.Int64
}

func NewWSSource(url string, out *Broadcaster, logger *slog.Logger) *WSSource {
	return &WSSource{
		url:    url,
		out:    out,
		logger: logger.With("component", "ws-source"),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run keeps a connection open until ctx ends, redialing with exponential backoff.
func (s *WSSource) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = minBackoff
		} else {
			s.logger.Warn("stream connection lost", "url", s.url, "err", err, "retry_in", backoff)
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Received and Malformed count decoded and rejected frames.
func (s *WSSource) Received() int64  { return s.received.Load() }
func (s *WSSource) Malformed() int64 { return s.malformed.Load() }

func (s *WSSource) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", s.url)
	}
	s.logger.Info("stream connected", "url", s.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}
		if typ != websocket.TextMessage {
			continue
		}

		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			s.malformed.Add(1)
			s.logger.Warn("skipping malformed stream frame", "err", err, "size", len(data))
			continue
		}
		e.normalize()
		s.received.Add(1)
		s.out.Publish(e)
	}
}
