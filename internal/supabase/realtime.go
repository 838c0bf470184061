package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Change is one row-level event from the realtime postgres_changes feed.
type Change struct {
	Type      string         // INSERT, UPDATE or DELETE
	Schema    string
	Table     string
	Record    map[string]any // new row; empty for DELETE
	OldRecord map[string]any // old row (primary key only unless REPLICA IDENTITY FULL)
}

// Realtime listens to row changes over the realtime websocket (Phoenix
// channel protocol).
type Realtime struct {
	url       string
	heartbeat time.Duration
	dialer    *websocket.Dialer
	logger    *slog.Logger
}

// Realtime returns a listener for this project.
func (c *Client) Realtime(logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ws := c.baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return &Realtime{
		url:       ws + "/realtime/v1/websocket?apikey=" + c.anonKey + "&vsn=1.0.0",
		heartbeat: 30 * time.Second,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:    logger,
	}
}

type phxMessage struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
	JoinRef string `json:"join_ref,omitempty"`
}

// Listen joins realtime:public:<table> and calls onChange for every row
// event until ctx is done (returns nil) or the connection fails.
// token, when non-empty, is forwarded so row-level security applies.
func (r *Realtime) Listen(ctx context.Context, table, token string, onChange func(Change)) error {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("supabase: realtime dial: %w", err)
	}
	defer conn.Close()

	var (
		writeMu sync.Mutex
		ref     int
	)
	send := func(m phxMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		ref++
		m.Ref = strconv.Itoa(ref)
		return conn.WriteJSON(m)
	}

	topic := "realtime:public:" + table
	joinPayload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": "public", "table": table},
			},
		},
	}
	if token != "" {
		joinPayload["access_token"] = token
	}
	if err := send(phxMessage{Topic: topic, Event: "phx_join", Payload: joinPayload, JoinRef: "1"}); err != nil {
		return fmt.Errorf("supabase: realtime join: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// Unblocks ReadMessage below.
				conn.Close()
				return
			case <-ticker.C:
				if err := send(phxMessage{Topic: "phoenix", Event: "heartbeat", Payload: map[string]any{}}); err != nil {
					r.logger.Warn("realtime heartbeat failed", "error", err)
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("supabase: realtime read: %w", err)
		}

		switch gjson.GetBytes(msg, "event").String() {
		case "phx_reply":
			if gjson.GetBytes(msg, "payload.status").String() == "error" {
				return fmt.Errorf("supabase: realtime join rejected: %s", gjson.GetBytes(msg, "payload.response").Raw)
			}
		case "postgres_changes":
			data := gjson.GetBytes(msg, "payload.data")
			ch := Change{
				Type:   data.Get("type").String(),
				Schema: data.Get("schema").String(),
				Table:  data.Get("table").String(),
			}
			if rec := data.Get("record"); rec.IsObject() {
				_ = json.Unmarshal([]byte(rec.Raw), &ch.Record)
			}
			if old := data.Get("old_record"); old.IsObject() {
				_ = json.Unmarshal([]byte(old.Raw), &ch.OldRecord)
			}
			onChange(ch)
		case "phx_error", "phx_close":
			return fmt.Errorf("supabase: realtime channel closed by server")
		}
	}
}
