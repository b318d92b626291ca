package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alexanderramin/commitguard/internal/contract"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
)

// handleEvents streams the caller's visible snapshot: once on connect and
// again after every committed change. Bursts of changes collapse into one
// snapshot since each message carries the full state.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	changed := make(chan struct{}, 1)
	subID := h.bus.SubscribeAll(func(event.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer h.bus.Unsubscribe(subID)

	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var seq int64
	send := func() error {
		snap, err := h.svc.View.Snapshot(ctx, caller)
		if err != nil {
			return err
		}
		data, err := json.Marshal(contract.FromSnapshot(snap))
		if err != nil {
			return err
		}
		seq++
		if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", seq, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(); err != nil {
		h.logger.WarnContext(ctx, "http.events.send_failed", "error", err)
		return nil
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if err := send(); err != nil {
				h.logger.DebugContext(ctx, "http.events.closed", "error", err)
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			if err := rc.Flush(); err != nil {
				return nil
			}
		}
	}
}
