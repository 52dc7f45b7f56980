// Package distribute assigns qualified leads to roster agents round-robin.
// The cursor lives in the store, so assignment survives restarts and stays
// balanced across concurrent qualifications.
package distribute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// ErrEmptyRoster is returned when a tenant has no active agents.
var ErrEmptyRoster = errors.New("distribute: no active agents")

// Sender is the transport surface used to notify the assigned agent.
type Sender interface {
	SendText(ctx context.Context, token, to, text string) error
}

// Events is the notification surface for assignment outcomes.
type Events interface {
	Assigned(ctx context.Context, ch *store.Channel, contactID string, agent store.AgentEntry, summary string)
	RosterGap(ctx context.Context, ch *store.Channel, contactID string)
}

// Distributor implements round-robin assignment over a tenant's roster.
type Distributor struct {
	roster  store.RosterStore
	cursors store.CursorStore
	sender  Sender
	events  Events
}

// New creates a distributor.
func New(roster store.RosterStore, cursors store.CursorStore, sender Sender, events Events) *Distributor {
	return &Distributor{roster: roster, cursors: cursors, sender: sender, events: events}
}

// Distribute picks the next agent for the channel's tenant and notifies
// them. The cursor is claimed atomically before the send; a failed agent
// notification does not roll the cursor back, so one slow agent cannot
// starve the rest of the roster.
func (d *Distributor) Distribute(ctx context.Context, ch *store.Channel, contactID, summary string) (store.AgentEntry, error) {
	agents, err := d.roster.ActiveAgents(ch.TenantID)
	if err != nil {
		return store.AgentEntry{}, fmt.Errorf("distribute: %w", err)
	}
	if len(agents) == 0 {
		d.events.RosterGap(ctx, ch, contactID)
		return store.AgentEntry{}, ErrEmptyRoster
	}

	idx, err := d.cursors.Advance(ch.TenantID, len(agents))
	if err != nil {
		return store.AgentEntry{}, fmt.Errorf("distribute: %w", err)
	}
	agent := agents[idx]

	msg := fmt.Sprintf("New lead assigned to you: %s (channel %s)", contactID, ch.DisplayName)
	if summary != "" {
		msg += "\nLast message: " + summary
	}
	if err := d.sender.SendText(ctx, ch.Token, agent.Contact, msg); err != nil {
		slog.Warn("agent notification failed",
			"agent_id", agent.ID, "contact_id", contactID, "error", err)
	}

	d.events.Assigned(ctx, ch, contactID, agent, summary)
	slog.Info("lead assigned", "agent_id", agent.ID,
		"contact_id", contactID, "tenant_id", ch.TenantID)
	return agent, nil
}
