package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/piekstra/tirds/internal/help"
	"github.com/stretchr/testify/require"
)

func feedServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

// TestWSSource_PublishesDecodedEvents publishes valid frames and counts malformed ones.
func TestWSSource_PublishesDecodedEvents(t *testing.T) {
	srv := feedServer(t,
		`{"id":"a","source":"benzinga","kind":"news","tickers":["AAPL"]}`,
		`not json`,
		`{"source":"reddit","kind":"social_post"}`,
	)
	defer srv.Close()

	b := NewBroadcaster()
	sub := b.Subscribe(8)
	src := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), b, help.Silent())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	recvCtx, recvCancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer recvCancel()

	first, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	require.Equal(t, "a", first.ID)
	require.Equal(t, KindNews, first.Kind)

	second, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	require.NotEmpty(t, second.ID)
	require.False(t, second.Timestamp.IsZero())

	require.Eventually(t, func() bool { return src.Malformed() == 1 }, time.Second, 10*time.Millisecond)
	require.EqualValues(t, 2, src.Received())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("source did not stop")
	}
	b.Close()
}

// TestWSSource_StopsWhileRedialing exits promptly when the endpoint is unreachable.
func TestWSSource_StopsWhileRedialing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	src := NewWSSource(url, NewBroadcaster(), help.Silent())
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, src.Run(ctx))
	require.Less(t, time.Since(start), time.Second)
}
