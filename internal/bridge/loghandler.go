package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BroadcastHandler wraps a slog.Handler and broadcasts records to a Hub.
type BroadcastHandler struct {
	inner slog.Handler
	hub   *Hub
	attrs []slog.Attr
}

// NewBroadcastHandler creates a handler that broadcasts to hub and delegates to inner.
func NewBroadcastHandler(hub *Hub, inner slog.Handler) *BroadcastHandler {
	return &BroadcastHandler{inner: inner, hub: hub}
}

func (h *BroadcastHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *BroadcastHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = fmt.Sprint(a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = fmt.Sprint(a.Value.Any())
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.hub.Broadcast(Message{
		Type:  "log",
		Level: r.Level.String(),
		Msg:   r.Message,
		Time:  r.Time.Format(time.RFC3339),
		Attrs: attrs,
	})

	return h.inner.Handle(ctx, r)
}

func (h *BroadcastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BroadcastHandler{
		inner: h.inner.WithAttrs(attrs),
		hub:   h.hub,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *BroadcastHandler) WithGroup(name string) slog.Handler {
	return &BroadcastHandler{
		inner: h.inner.WithGroup(name),
		hub:   h.hub,
		attrs: h.attrs,
	}
}
