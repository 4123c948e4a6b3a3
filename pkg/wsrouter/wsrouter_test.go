package wsrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text string `json:"text"`
}

func newTestServer(t *testing.T, router *WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		router.ServeConn(context.Background(), conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	return conn
}

func TestServeConn(t *testing.T) {
	router := New()

	order := make(chan string, 4)
	router.Use(func(next HandlerFunc[any]) HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			order <- "mw:" + GetMessageTypeFromCtx(ctx)
			return next(ctx, conn, payload)
		}
	})
	router.SetErrorHandler(func(_ context.Context, conn *websocket.Conn, err error) error {
		return conn.WriteJSON(map[string]string{"error": err.Error()})
	})

	Handle(router, "ECHO", func(_ context.Context, conn *websocket.Conn, input echoInput) error {
		order <- "handler"
		return conn.WriteJSON(map[string]string{"echo": input.Text})
	})

	conn := newTestServer(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ECHO", "payload": map[string]string{"text": "hi"}}))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "hi", reply["echo"])
	assert.Equal(t, "mw:ECHO", <-order)
	assert.Equal(t, "handler", <-order)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "NOPE"}))
	reply = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply["error"], ErrUnknownMessageType.Error())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ECHO", "payload": "not an object"}))
	reply = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply["error"], ErrInvalidPayload.Error())
}

func TestGetMessageTypeFromCtx(t *testing.T) {
	assert.Empty(t, GetMessageTypeFromCtx(context.Background()))
	assert.Equal(t, "X", GetMessageTypeFromCtx(context.WithValue(context.Background(), messageTypeKey, "X")))
}
