package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

const maxBodyBytes = 1 << 20

// Publisher is the handler's view of the message bus.
type Publisher interface {
	PublishInbound(ev bus.InboundEvent)
}

// Handler is the HTTP intake for gateway webhooks, mounted at
// POST /webhook/{channel}. The path's channel id is authoritative; the
// payload's channel field is a fallback for gateways that multiplex.
type Handler struct {
	bus      Publisher
	channels store.ChannelStore
	limiter  *RateLimiter
}

// NewHandler creates the webhook intake handler.
func NewHandler(pub Publisher, channels store.ChannelStore, limiter *RateLimiter) *Handler {
	return &Handler{bus: pub, channels: channels, limiter: limiter}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channel")
	if channelID == "" {
		http.Error(w, "missing channel", http.StatusNotFound)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(channelID) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	// Malformed or unresolvable payloads are dropped, not erred: the
	// gateway retries on non-2xx and a bad payload never improves.
	ev, ok := Normalize(body)
	if !ok {
		slog.Debug("webhook payload dropped", "channel_id", channelID, "bytes", len(body))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if ev.ChannelID == "" {
		ev.ChannelID = channelID
	} else if ev.ChannelID != channelID {
		slog.Warn("webhook channel mismatch", "path", channelID, "payload", ev.ChannelID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if _, err := h.channels.Get(ev.ChannelID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("channel lookup failed", "channel_id", ev.ChannelID, "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.bus.PublishInbound(ev)
	w.WriteHeader(http.StatusNoContent)
}
