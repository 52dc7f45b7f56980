package leads

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/generation"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
	"github.com/nextlevelbuilder/leadclaw/internal/transport"
)

// Conversing is the transport surface the pipeline needs.
type Conversing interface {
	SendText(ctx context.Context, token, to, text string) error
	SetPresence(ctx context.Context, token, to, state string) error
	FetchHistory(ctx context.Context, token, chat string, limit int) ([]transport.HistoryMessage, error)
}

// Events is the notification surface the pipeline emits to.
type Events interface {
	NewLead(ctx context.Context, ch *store.Channel, contactID string)
	TransferRequested(ctx context.Context, ch *store.Channel, contactID string)
}

// Distributor hands a qualified lead to a roster agent.
type Distributor interface {
	Distribute(ctx context.Context, ch *store.Channel, contactID, summary string) (store.AgentEntry, error)
}

// Pipeline consumes inbound events, debounces them per conversation, and
// runs generation on each merged turn.
type Pipeline struct {
	inbound    bus.InboundConsumer
	channels   store.ChannelStore
	tracker    *Tracker
	transport  Conversing
	provider   generation.Provider
	events     Events
	distribute Distributor

	genCfg    config.GenerationConfig
	engageCfg config.EngageConfig

	debouncer *Debouncer

	// test seams
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewPipeline wires the inbound conversation pipeline.
func NewPipeline(inbound bus.InboundConsumer, channels store.ChannelStore, tracker *Tracker,
	tr Conversing, provider generation.Provider, events Events, dist Distributor,
	genCfg config.GenerationConfig, engageCfg config.EngageConfig) *Pipeline {

	p := &Pipeline{
		inbound:    inbound,
		channels:   channels,
		tracker:    tracker,
		transport:  tr,
		provider:   provider,
		events:     events,
		distribute: dist,
		genCfg:     genCfg,
		engageCfg:  engageCfg,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	p.debouncer = NewDebouncer(func(ev bus.InboundEvent) {
		p.respond(context.Background(), ev)
	})
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Run consumes the inbound bus until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	slog.Info("engagement pipeline started")
	for {
		ev, ok := p.inbound.ConsumeInbound(ctx)
		if !ok {
			break
		}
		p.Handle(ctx, ev)
	}
	p.debouncer.Stop()
	slog.Info("engagement pipeline stopped")
}

// Handle routes one normalized inbound event. Operator messages suspend
// automation for the conversation; lead messages are tracked and debounced.
func (p *Pipeline) Handle(ctx context.Context, ev bus.InboundEvent) {
	ch, err := p.channels.Get(ev.ChannelID)
	if err != nil {
		slog.Warn("inbound for unknown channel dropped", "channel_id", ev.ChannelID)
		return
	}

	now := p.now()

	if ev.FromOperator {
		// The owner typed in this chat from their own device. Hand the
		// conversation to them and stay out of it.
		if err := p.tracker.MarkHumanActive(ev.ChannelID, ev.ContactID, now); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("operator takeover not recorded", "contact_id", ev.ContactID, "error", err)
		}
		return
	}

	rec, created, err := p.tracker.Touch(ev.ChannelID, ev.ContactID, now)
	if err != nil {
		slog.Error("lead touch failed", "contact_id", ev.ContactID, "error", err)
		return
	}
	if created {
		p.events.NewLead(ctx, ch, ev.ContactID)
	}

	if !ch.AIEnabled {
		return
	}
	// Touch resets NUDGED and TRANSFERRED to RESPONDED, so only an active
	// human hold suppresses automation here.
	if rec.Status == store.LeadHumanActive {
		return
	}

	p.debouncer.Add(ev, p.debounceFor(ch))
}

func (p *Pipeline) debounceFor(ch *store.Channel) time.Duration {
	secs := p.engageCfg.DebounceSeconds
	if ch.Settings.DebounceSeconds > 0 {
		secs = ch.Settings.DebounceSeconds
	}
	if secs <= 0 {
		secs = 6
	}
	return time.Duration(secs) * time.Second
}

// respond runs one merged conversation turn through generation and acts on
// the typed outcome.
func (p *Pipeline) respond(ctx context.Context, ev bus.InboundEvent) {
	tracer := otel.Tracer("leadclaw/engage")
	ctx, span := tracer.Start(ctx, "pipeline.respond")
	span.SetAttributes(attribute.String("channel.id", ev.ChannelID))
	defer span.End()

	ch, err := p.channels.Get(ev.ChannelID)
	if err != nil {
		return
	}

	// The state may have moved while the turn was buffered (operator
	// takeover, transfer). Re-check before generating.
	rec, err := p.tracker.Get(ev.ChannelID, ev.ContactID)
	if err != nil {
		slog.Error("lead lookup failed", "contact_id", ev.ContactID, "error", err)
		return
	}
	if rec.Status == store.LeadHumanActive || rec.Status == store.LeadTransferred {
		return
	}

	if err := p.transport.SetPresence(ctx, ch.Token, ev.ContactID, transport.PresenceComposing); err != nil {
		slog.Debug("presence update failed", "contact_id", ev.ContactID, "error", err)
	}

	reply, err := p.generate(ctx, ch, ev)
	if err != nil {
		// Abort the turn silently. The contact's next message retries.
		slog.Error("generation failed", "channel_id", ev.ChannelID,
			"contact_id", ev.ContactID, "error", err)
		return
	}

	outcome := generation.ParseReply(reply, p.genCfg.TransferMarker, p.genCfg.QualifiedMarker)
	now := p.now()

	switch outcome.Kind {
	case generation.OutcomeTransfer:
		// Suppress the reply; the operator takes over.
		if err := p.tracker.MarkHumanActive(ev.ChannelID, ev.ContactID, now); err != nil {
			slog.Warn("transfer not recorded", "contact_id", ev.ContactID, "error", err)
		}
		p.events.TransferRequested(ctx, ch, ev.ContactID)

	case generation.OutcomeQualified:
		if err := p.tracker.MarkHumanActive(ev.ChannelID, ev.ContactID, now); err != nil {
			slog.Warn("qualification not recorded", "contact_id", ev.ContactID, "error", err)
		}
		if outcome.Text != "" {
			p.deliver(ctx, ch, ev.ContactID, outcome.Text)
		}
		if _, err := p.distribute.Distribute(ctx, ch, ev.ContactID, outcome.Text); err != nil {
			slog.Warn("distribution failed, lead stays with operator",
				"contact_id", ev.ContactID, "error", err)
			return
		}
		if err := p.tracker.MarkTransferred(ev.ChannelID, ev.ContactID, p.now()); err != nil {
			slog.Warn("transfer state not recorded", "contact_id", ev.ContactID, "error", err)
		}

	default:
		p.deliver(ctx, ch, ev.ContactID, outcome.Text)
	}
}

func (p *Pipeline) generate(ctx context.Context, ch *store.Channel, ev bus.InboundEvent) (string, error) {
	msgs := make([]generation.Message, 0, p.engageCfg.HistoryLimit+2)

	system := ch.Settings.SystemPrompt
	if system != "" {
		msgs = append(msgs, generation.Message{Role: "system", Content: system})
	}

	limit := p.engageCfg.HistoryLimit
	if limit > 0 {
		history, err := p.transport.FetchHistory(ctx, ch.Token, ev.ContactID, limit)
		if err != nil {
			slog.Debug("history fetch failed, generating without context",
				"contact_id", ev.ContactID, "error", err)
		}
		for _, h := range history {
			role := "user"
			if h.FromMe {
				role = "assistant"
			}
			if h.Text == "" {
				continue
			}
			msgs = append(msgs, generation.Message{Role: role, Content: h.Text})
		}
	}

	turn := ev.Text
	if turn == "" && ev.MediaRef != "" {
		turn = "[" + ev.Kind + " message]"
	}
	msgs = append(msgs, generation.Message{Role: "user", Content: turn})

	resp, err := p.provider.Chat(ctx, generation.ChatRequest{
		Messages:    msgs,
		Model:       p.genCfg.Model,
		MaxTokens:   p.genCfg.MaxTokens,
		Temperature: p.genCfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// deliver sends the reply split on blank lines, with a length-proportional
// pause between chunks so the conversation reads at a human pace.
func (p *Pipeline) deliver(ctx context.Context, ch *store.Channel, contactID, text string) {
	chunks := splitChunks(text)
	for i, chunk := range chunks {
		if i > 0 {
			// Presence is a best-effort typing cue; the pacing delay runs
			// either way.
			if err := p.transport.SetPresence(ctx, ch.Token, contactID, transport.PresenceComposing); err != nil {
				slog.Debug("presence update failed", "contact_id", contactID, "error", err)
			}
			if !p.sleep(ctx, p.chunkDelay(chunk)) {
				return
			}
		}
		if err := p.transport.SendText(ctx, ch.Token, contactID, chunk); err != nil {
			slog.Error("reply send failed", "contact_id", contactID, "error", err)
			return
		}
	}
	if err := p.transport.SetPresence(ctx, ch.Token, contactID, transport.PresencePaused); err != nil {
		slog.Debug("presence update failed", "contact_id", contactID, "error", err)
	}
}

func splitChunks(text string) []string {
	var chunks []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}

// chunkDelay scales with chunk length (~30ms per rune) clamped to the
// configured bounds.
func (p *Pipeline) chunkDelay(chunk string) time.Duration {
	minMs, maxMs := p.engageCfg.ChunkDelayMinMs, p.engageCfg.ChunkDelayMaxMs
	if maxMs <= 0 {
		minMs, maxMs = 800, 3000
	}
	ms := len([]rune(chunk)) * 30
	if ms < minMs {
		ms = minMs
	}
	if ms > maxMs {
		ms = maxMs
	}
	return time.Duration(ms) * time.Millisecond
}
