// Package followup runs the periodic sweeps: nudging quiet leads and
// reactivating conversations parked with a human for too long.
package followup

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// Sender is the transport surface used for nudge messages.
type Sender interface {
	SendText(ctx context.Context, token, to, text string) error
}

// Events is the notification surface for sweep outcomes.
type Events interface {
	Nudged(ctx context.Context, ch *store.Channel, contactID string, nudgeCount int)
	Reactivated(ctx context.Context, ch *store.Channel, contactID string)
}

// Tracker is the lead state surface the sweeps mutate.
type Tracker interface {
	List() ([]*store.LeadRecord, error)
	RecordNudge(channelID, contactID string, at time.Time) error
	Resume(channelID, contactID string, at time.Time) error
}

// Scheduler ticks at a fixed interval and runs the sweeps on ticks inside
// the configured cron window.
type Scheduler struct {
	cfg      config.FollowUpConfig
	channels store.ChannelStore
	tracker  Tracker
	sender   Sender
	events   Events
	cron     *gronx.Gronx

	// test seam
	now func() time.Time
}

// New creates a follow-up scheduler.
func New(cfg config.FollowUpConfig, channels store.ChannelStore, tracker Tracker, sender Sender, events Events) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		channels: channels,
		tracker:  tracker,
		sender:   sender,
		events:   events,
		cron:     gronx.New(),
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	slog.Info("follow-up scheduler started", "interval", interval, "window", s.cfg.Window)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("follow-up scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass of both sweeps, honoring the cron window.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	if !s.inWindow(now) {
		return
	}

	leads, err := s.tracker.List()
	if err != nil {
		slog.Error("follow-up sweep: lead listing failed", "error", err)
		return
	}

	channels := make(map[string]*store.Channel)
	channelOf := func(id string) *store.Channel {
		if ch, ok := channels[id]; ok {
			return ch
		}
		ch, err := s.channels.Get(id)
		if err != nil {
			channels[id] = nil
			return nil
		}
		channels[id] = ch
		return ch
	}

	for _, rec := range leads {
		ch := channelOf(rec.ChannelID)
		if ch == nil {
			continue
		}
		switch rec.Status {
		case store.LeadResponded, store.LeadNudged:
			s.maybeNudge(ctx, ch, rec, now)
		case store.LeadHumanActive:
			s.maybeReactivate(ctx, ch, rec, now)
		}
	}
}

func (s *Scheduler) inWindow(now time.Time) bool {
	if s.cfg.Window == "" {
		return true
	}
	due, err := s.cron.IsDue(s.cfg.Window, now)
	if err != nil {
		slog.Warn("follow-up window expression invalid, sweeping anyway",
			"window", s.cfg.Window, "error", err)
		return true
	}
	return due
}

func (s *Scheduler) maybeNudge(ctx context.Context, ch *store.Channel, rec *store.LeadRecord, now time.Time) {
	wait := s.cfg.WaitMinutes
	if ch.Settings.WaitMinutes > 0 {
		wait = ch.Settings.WaitMinutes
	}
	maxNudges := s.cfg.MaxNudges
	if ch.Settings.MaxNudges > 0 {
		maxNudges = ch.Settings.MaxNudges
	}
	messages := s.cfg.Messages
	if len(ch.Settings.NudgeMessages) > 0 {
		messages = ch.Settings.NudgeMessages
	}

	if wait <= 0 || len(messages) == 0 {
		return
	}
	if rec.NudgeCount >= maxNudges {
		return
	}
	if now.Sub(rec.LastInteraction) < time.Duration(wait)*time.Minute {
		return
	}

	// Nudges escalate through the list; the last message repeats if the
	// count outgrows it.
	idx := rec.NudgeCount
	if idx >= len(messages) {
		idx = len(messages) - 1
	}

	if err := s.sender.SendText(ctx, ch.Token, rec.ContactID, messages[idx]); err != nil {
		slog.Warn("nudge send failed", "contact_id", rec.ContactID, "error", err)
		return
	}
	// RecordNudge may increment through the same record pointer when the
	// store hands out shared records, so take the new count first.
	next := rec.NudgeCount + 1
	if err := s.tracker.RecordNudge(rec.ChannelID, rec.ContactID, now); err != nil {
		slog.Warn("nudge not recorded", "contact_id", rec.ContactID, "error", err)
		return
	}
	s.events.Nudged(ctx, ch, rec.ContactID, next)
}

func (s *Scheduler) maybeReactivate(ctx context.Context, ch *store.Channel, rec *store.LeadRecord, now time.Time) {
	threshold := s.cfg.ReactivateMinutes
	if ch.Settings.ReactivateMinutes > 0 {
		threshold = ch.Settings.ReactivateMinutes
	}
	if threshold <= 0 {
		return
	}
	if now.Sub(rec.UpdatedAt) < time.Duration(threshold)*time.Minute {
		return
	}

	if err := s.tracker.Resume(rec.ChannelID, rec.ContactID, now); err != nil {
		slog.Warn("reactivation failed", "contact_id", rec.ContactID, "error", err)
		return
	}
	s.events.Reactivated(ctx, ch, rec.ContactID)
	slog.Info("lead reactivated", "channel_id", rec.ChannelID, "contact_id", rec.ContactID)
}
