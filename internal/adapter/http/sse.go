package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/backdrop/internal/service"
)

type SSEHandler struct {
	eventBus *service.EventBus
	imageSvc ImageService
}

func NewSSEHandler(eventBus *service.EventBus, imageSvc ImageService) *SSEHandler {
	return &SSEHandler{
		eventBus: eventBus,
		imageSvc: imageSvc,
	}
}

// sseWrite writes one SSE event with a JSON payload.
func sseWrite(w http.ResponseWriter, eventName string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// Events streams job status transitions as SSE "status" events carrying the
// same JSON projection as the polling endpoint. Polling remains the contract;
// this is a push-based convenience for browser clients.
func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing image id")
			return
		}

		job, err := h.imageSvc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Always send the current state first so late subscribers never
		// wait for a transition that already happened.
		sseWrite(w, "status", toStatusResponse(job))

		if job.Status.IsTerminal() {
			<-r.Context().Done()
			return
		}

		ch := h.eventBus.Subscribe(id)
		defer h.eventBus.Unsubscribe(id, ch)

		ctx := r.Context()
		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				// Re-fetch to stream the full projection, not just the
				// transition that triggered it.
				job, err := h.imageSvc.Get(ctx, id)
				if err != nil {
					return
				}
				sseWrite(w, "status", toStatusResponse(job))

				// Let the client close the connection once terminal
				if event.Status.IsTerminal() {
					<-ctx.Done()
					return
				}
			}
		}
	}
}
