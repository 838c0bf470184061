package supabase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/pkordes/globaltrip/backend/internal/supabase"
)

func TestRealtime_Listen_DeliversPostgresChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	joined := make(chan string, 1)

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		assert.Equal(t, anonKey, r.URL.Query().Get("apikey"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		joined <- string(msg)

		_ = conn.WriteJSON(map[string]any{
			"topic": "realtime:public:trips", "event": "phx_reply", "ref": "1",
			"payload": map[string]any{"status": "ok", "response": map[string]any{}},
		})
		_ = conn.WriteJSON(map[string]any{
			"topic": "realtime:public:trips", "event": "postgres_changes",
			"payload": map[string]any{"data": map[string]any{
				"type": "INSERT", "schema": "public", "table": "trips",
				"record": map[string]any{"id": "t1", "title": "Rome Trip"},
			}},
		})
		// Keep the socket open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- c.Realtime(nil).Listen(ctx, "trips", "user-token", func(ch supabase.Change) {
			changes <- ch.Type + ":" + ch.Record["id"].(string)
		})
	}()

	select {
	case msg := <-joined:
		assert.Equal(t, "phx_join", gjson.Get(msg, "event").String())
		assert.Equal(t, "realtime:public:trips", gjson.Get(msg, "topic").String())
		assert.Equal(t, "trips", gjson.Get(msg, "payload.config.postgres_changes.0.table").String())
		assert.Equal(t, "user-token", gjson.Get(msg, "payload.access_token").String())
	case <-time.After(2 * time.Second):
		t.Fatal("no join message")
	}

	select {
	case got := <-changes:
		assert.Equal(t, "INSERT:t1", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err, "cancelled listen returns nil")
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
