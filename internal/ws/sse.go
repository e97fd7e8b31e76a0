package ws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/foodboard/api/internal/enum"
)

// ssePingPeriod keeps proxies from reclaiming idle event streams.
var ssePingPeriod = 25 * time.Second

// ServeSSE streams hub events as server-sent events.
// Endpoint: GET /events/orders?token=JWT
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request) {
	client, err := hub.Subscribe("sse")
	if err != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	write := func(f frame) error {
		_ = rc.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.eventType, f.data); err != nil {
			return err
		}
		return rc.Flush()
	}

	ticker := time.NewTicker(ssePingPeriod)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case f, ok := <-client.send:
			if !ok {
				return
			}
			if err := write(f); err != nil {
				hub.logger.Debug("sse write failed", "session", client.id, "error", err)
				return
			}

		case <-ticker.C:
			ping, err := encodeEvent(enum.EventPing, nil)
			if err != nil {
				continue
			}
			if err := write(ping); err != nil {
				return
			}
		}
	}
}
