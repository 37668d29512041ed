package inventory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gorillaws "github.com/gorilla/websocket"
)

// defaultFeedInterval is how often a feed connection polls for new events.
const defaultFeedInterval = 500 * time.Millisecond

// Feed streams committed transition events to WebSocket subscribers. Each
// connection tails the event log from the moment it connects: event ids are
// time-ordered, so a simple id cursor is enough to deliver every event
// exactly once per connection, in commit order.
type Feed struct {
	items    *ItemStore
	events   *EventLog
	logger   *slog.Logger
	interval time.Duration
	upgrader gorillaws.Upgrader
}

// NewFeed creates a Feed backed by the engine's stores.
func NewFeed(engine *Engine, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		items:    engine.Items(),
		events:   engine.Events(),
		logger:   logger,
		interval: defaultFeedInterval,
		upgrader: gorillaws.Upgrader{
			// Reject cross-origin upgrades; requests without an Origin
			// header (native clients, curl) are allowed.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				host, err := originHost(origin)
				if err != nil {
					return false
				}
				return host == r.Host
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// originHost returns the host:port portion of an Origin header value, so
// ws:// and http:// origins compare equal.
func originHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid origin %q", rawURL)
	}
	return u.Host, nil
}

// feedFrame is the JSON structure the feed sends for each committed event.
type feedFrame struct {
	Type  string        `json:"type"` // "transition"
	Event eventResponse `json:"event"`
	Item  *itemResponse `json:"item,omitempty"`
}

// Handler returns the WebSocket endpoint handler. The connection is upgraded,
// then new events are pushed as they are committed until the client closes.
func (f *Feed) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(w, r); !ok {
			return
		}

		conn, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			f.logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		// Start tailing from the current end of the log.
		cursor, err := f.events.LatestID()
		if err != nil {
			f.logger.Warn("feed cursor init failed", "error", err)
			return
		}

		// Drain client frames so closes are noticed; the feed accepts no
		// client commands.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-closed:
				return
			case <-ticker.C:
				next, err := f.push(conn, cursor)
				if err != nil {
					return
				}
				cursor = next
			}
		}
	}
}

// push sends every event newer than cursor and returns the advanced cursor.
func (f *Feed) push(conn *gorillaws.Conn, cursor string) (string, error) {
	events, err := f.events.ListAfter(cursor, 100)
	if err != nil {
		f.logger.Warn("feed poll failed", "error", err)
		return cursor, nil
	}

	for i := range events {
		event := &events[i]
		frame := feedFrame{
			Type:  "transition",
			Event: eventToResponse(event),
		}
		if item, err := f.items.GetByID(event.ItemID); err == nil && item != nil {
			resp := itemToResponse(item)
			frame.Item = &resp
		}

		data, _ := json.Marshal(frame)
		if writeErr := conn.WriteMessage(gorillaws.TextMessage, data); writeErr != nil {
			return cursor, writeErr
		}
		cursor = event.ID
	}
	return cursor, nil
}
