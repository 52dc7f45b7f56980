// Package notify fans out operator-facing notifications. Every notification
// is broadcast as a bus event for WebSocket clients; when the owning tenant
// has an operator contact configured, it is additionally delivered as a
// transport message on the originating channel. Delivery failures are
// logged and absorbed; notifications are best-effort.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
	"github.com/nextlevelbuilder/leadclaw/pkg/protocol"
)

// Sender is the notifier's view of the transport adapter.
type Sender interface {
	SendText(ctx context.Context, token, to, text string) error
}

// Notifier delivers operator notifications.
type Notifier struct {
	events  bus.EventPublisher
	sender  Sender
	tenants store.TenantStore
}

// New creates a Notifier.
func New(events bus.EventPublisher, sender Sender, tenants store.TenantStore) *Notifier {
	return &Notifier{events: events, sender: sender, tenants: tenants}
}

// operatorDM sends text to the tenant's operator contact over ch, if one is
// configured.
func (n *Notifier) operatorDM(ctx context.Context, ch *store.Channel, text string) {
	if ch == nil || n.tenants == nil {
		return
	}
	tenant, err := n.tenants.Get(ch.TenantID)
	if err != nil {
		slog.Warn("notify: tenant lookup failed", "tenant_id", ch.TenantID, "error", err)
		return
	}
	if tenant.OperatorContact == "" {
		return
	}
	if err := n.sender.SendText(ctx, ch.Token, tenant.OperatorContact, text); err != nil {
		slog.Warn("notify: operator message failed", "tenant_id", ch.TenantID, "error", err)
	}
}

func (n *Notifier) broadcast(name string, payload interface{}) {
	if n.events != nil {
		n.events.Broadcast(bus.Event{Name: name, Payload: payload})
	}
}

// NewLead announces a first-time inbound contact.
func (n *Notifier) NewLead(ctx context.Context, ch *store.Channel, contactID string) {
	n.broadcast(protocol.EventLeadNew, protocol.LeadEventPayload{
		ChannelID: ch.ID, ContactID: contactID, Status: string(store.LeadResponded),
	})
	n.operatorDM(ctx, ch, fmt.Sprintf("New lead on %s: %s", ch.DisplayName, contactID))
}

// TransferRequested announces that generation asked for a human takeover.
// The operator message carries the resume hint so automation can be
// re-enabled once the conversation is handled.
func (n *Notifier) TransferRequested(ctx context.Context, ch *store.Channel, contactID string) {
	n.broadcast(protocol.EventLeadTransfer, protocol.LeadEventPayload{
		ChannelID: ch.ID, ContactID: contactID, Status: string(store.LeadHumanActive),
	})
	n.operatorDM(ctx, ch, fmt.Sprintf(
		"Lead %s on %s asked for a human. Automation is paused; resume it from the dashboard or with: leadclaw leads resume %s %s",
		contactID, ch.DisplayName, ch.ID, contactID))
}

// Assigned announces a round-robin assignment.
func (n *Notifier) Assigned(ctx context.Context, ch *store.Channel, contactID string, agent store.AgentEntry, summary string) {
	n.broadcast(protocol.EventLeadAssigned, protocol.LeadEventPayload{
		ChannelID: ch.ID, ContactID: contactID, AgentID: agent.ID, Summary: summary,
	})
}

// RosterGap announces a qualification that could not be assigned because the
// tenant has no active agents.
func (n *Notifier) RosterGap(ctx context.Context, ch *store.Channel, contactID string) {
	n.broadcast(protocol.EventLeadUnassigned, protocol.LeadEventPayload{
		ChannelID: ch.ID, ContactID: contactID,
	})
	n.operatorDM(ctx, ch, fmt.Sprintf(
		"Lead %s qualified on %s but no active agents are configured. Add agents to the roster.",
		contactID, ch.DisplayName))
}

// Nudged announces a follow-up nudge.
func (n *Notifier) Nudged(ctx context.Context, ch *store.Channel, contactID string, nudgeCount int) {
	n.broadcast(protocol.EventLeadNudged, protocol.LeadEventPayload{
		ChannelID: ch.ID, ContactID: contactID, Status: string(store.LeadNudged),
		Summary: fmt.Sprintf("nudge %d", nudgeCount),
	})
}

// Reactivated announces an auto-reactivated conversation.
func (n *Notifier) Reactivated(ctx context.Context, ch *store.Channel, contactID string) {
	n.broadcast(protocol.EventLeadReactivated, protocol.LeadEventPayload{
		ChannelID: ch.ID, ContactID: contactID, Status: string(store.LeadResponded),
	})
	n.operatorDM(ctx, ch, fmt.Sprintf(
		"Lead %s on %s was idle in human hand-off; automation resumed.", contactID, ch.DisplayName))
}

// CampaignProgress broadcasts a checkpoint notification.
func (n *Notifier) CampaignProgress(c *store.Campaign) {
	n.broadcast(protocol.EventCampaignProgress, campaignPayload(c))
}

// CampaignPaused broadcasts a pause notification.
func (n *Notifier) CampaignPaused(c *store.Campaign) {
	n.broadcast(protocol.EventCampaignPaused, campaignPayload(c))
}

// CampaignCancelled broadcasts a cancel notification.
func (n *Notifier) CampaignCancelled(c *store.Campaign) {
	n.broadcast(protocol.EventCampaignCancelled, campaignPayload(c))
}

// CampaignCompleted delivers the final summary report.
func (n *Notifier) CampaignCompleted(ctx context.Context, ch *store.Channel, c *store.Campaign) {
	n.broadcast(protocol.EventCampaignCompleted, campaignPayload(c))
	n.operatorDM(ctx, ch, fmt.Sprintf(
		"Campaign %s finished: %d sent, %d failed of %d (%.0f%% success).",
		c.ID, c.Sent, c.Failed, c.Total(), successPct(c)))
}

func campaignPayload(c *store.Campaign) protocol.CampaignEventPayload {
	return protocol.CampaignEventPayload{
		CampaignID: c.ID,
		ChannelID:  c.ChannelID,
		Checkpoint: c.Checkpoint,
		Total:      c.Total(),
		Sent:       c.Sent,
		Failed:     c.Failed,
		SuccessPct: successPct(c),
	}
}

func successPct(c *store.Campaign) float64 {
	attempted := c.Sent + c.Failed
	if attempted == 0 {
		return 0
	}
	return float64(c.Sent) / float64(attempted) * 100
}
