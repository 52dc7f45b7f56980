// Package leads implements the inbound conversation core: the lead state
// machine, the message debouncer, and the response pipeline that runs
// generation and acts on its outcome.
package leads

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// Tracker owns lead record lifecycle and state transitions. All writes go
// through it so the transition rules live in one place.
type Tracker struct {
	leads store.LeadStore
}

// NewTracker creates a lead tracker over the given store.
func NewTracker(leads store.LeadStore) *Tracker {
	return &Tracker{leads: leads}
}

// allowed lists the legal status transitions. A lead may always re-enter its
// current status (Touch refreshes LastInteraction without moving state).
var allowed = map[store.LeadStatus][]store.LeadStatus{
	store.LeadResponded:   {store.LeadHumanActive, store.LeadNudged},
	store.LeadNudged:      {store.LeadResponded, store.LeadHumanActive},
	store.LeadHumanActive: {store.LeadResponded, store.LeadTransferred},
	store.LeadTransferred: {store.LeadResponded},
}

func transitionOK(from, to store.LeadStatus) bool {
	if from == to {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Touch records an inbound message from the contact. A missing record is
// created in RESPONDED; a NUDGED or TRANSFERRED lead that replies moves back
// to RESPONDED with the nudge counter reset. Only HUMAN_ACTIVE holds its
// status through an inbound message.
// Returns the up-to-date record and whether it was newly created.
func (t *Tracker) Touch(channelID, contactID string, at time.Time) (*store.LeadRecord, bool, error) {
	rec, err := t.leads.Get(channelID, contactID)
	if errors.Is(err, store.ErrNotFound) {
		rec = &store.LeadRecord{
			ChannelID: channelID,
			ContactID: contactID,
			Status:    store.LeadResponded,
			CreatedAt: at,
		}
		rec.LastInteraction = at
		rec.UpdatedAt = at
		if perr := t.leads.Put(rec); perr != nil {
			slog.Error("lead create failed, continuing in memory",
				"channel_id", channelID, "contact_id", contactID, "error", perr)
		}
		return rec, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("touch lead: %w", err)
	}

	if rec.Status == store.LeadNudged || rec.Status == store.LeadTransferred {
		rec.Status = store.LeadResponded
		rec.NudgeCount = 0
	}
	rec.LastInteraction = at
	rec.UpdatedAt = at
	if perr := t.leads.Put(rec); perr != nil {
		slog.Error("lead update failed, continuing in memory",
			"channel_id", channelID, "contact_id", contactID, "error", perr)
	}
	return rec, false, nil
}

// MarkHumanActive suspends automation for the lead (operator stepped in, a
// transfer was requested, or the contact qualified).
func (t *Tracker) MarkHumanActive(channelID, contactID string, at time.Time) error {
	return t.transition(channelID, contactID, store.LeadHumanActive, at)
}

// MarkTransferred records a completed hand-off to a roster agent.
func (t *Tracker) MarkTransferred(channelID, contactID string, at time.Time) error {
	return t.transition(channelID, contactID, store.LeadTransferred, at)
}

// Resume re-enables automation for a suspended lead.
func (t *Tracker) Resume(channelID, contactID string, at time.Time) error {
	rec, err := t.leads.Get(channelID, contactID)
	if err != nil {
		return fmt.Errorf("resume lead: %w", err)
	}
	if rec.Status == store.LeadResponded {
		return nil
	}
	if !transitionOK(rec.Status, store.LeadResponded) {
		return fmt.Errorf("resume lead: illegal transition %s -> %s", rec.Status, store.LeadResponded)
	}
	rec.Status = store.LeadResponded
	rec.NudgeCount = 0
	rec.UpdatedAt = at
	if err := t.leads.Put(rec); err != nil {
		return fmt.Errorf("resume lead: %w", err)
	}
	return nil
}

// RecordNudge marks a follow-up nudge sent to the lead.
func (t *Tracker) RecordNudge(channelID, contactID string, at time.Time) error {
	rec, err := t.leads.Get(channelID, contactID)
	if err != nil {
		return fmt.Errorf("record nudge: %w", err)
	}
	if !transitionOK(rec.Status, store.LeadNudged) {
		return fmt.Errorf("record nudge: illegal transition %s -> %s", rec.Status, store.LeadNudged)
	}
	rec.Status = store.LeadNudged
	rec.NudgeCount++
	rec.LastInteraction = at
	rec.UpdatedAt = at
	if err := t.leads.Put(rec); err != nil {
		return fmt.Errorf("record nudge: %w", err)
	}
	return nil
}

func (t *Tracker) transition(channelID, contactID string, to store.LeadStatus, at time.Time) error {
	rec, err := t.leads.Get(channelID, contactID)
	if err != nil {
		return fmt.Errorf("lead transition: %w", err)
	}
	if !transitionOK(rec.Status, to) {
		return fmt.Errorf("lead transition: illegal %s -> %s", rec.Status, to)
	}
	rec.Status = to
	rec.UpdatedAt = at
	if err := t.leads.Put(rec); err != nil {
		return fmt.Errorf("lead transition: %w", err)
	}
	return nil
}

// Get returns the lead record for (channelID, contactID).
func (t *Tracker) Get(channelID, contactID string) (*store.LeadRecord, error) {
	return t.leads.Get(channelID, contactID)
}

// List returns all tracked leads.
func (t *Tracker) List() ([]*store.LeadRecord, error) {
	return t.leads.List()
}
