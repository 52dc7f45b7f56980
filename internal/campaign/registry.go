// Package campaign implements the resumable bulk-campaign dispatcher: a
// per-tenant send loop over a contact list with persisted checkpoints and
// cooperative pause/resume/cancel.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// Registry tracks live campaign runners. It is constructed once per process
// and passed by reference; the campaign store is the source of truth for
// campaigns without a live runner (e.g. paused before a restart).
type Registry struct {
	campaigns store.CampaignStore
	channels  store.ChannelStore
	transport Transport
	events    Events

	checkpointEvery int
	defaultMinDelay int
	defaultMaxDelay int

	mu      sync.Mutex
	running map[string]*Runner
}

// NewRegistry creates a campaign registry.
func NewRegistry(campaigns store.CampaignStore, channels store.ChannelStore, tr Transport, ev Events, checkpointEvery, minDelay, maxDelay int) *Registry {
	return &Registry{
		campaigns:       campaigns,
		channels:        channels,
		transport:       tr,
		events:          ev,
		checkpointEvery: checkpointEvery,
		defaultMinDelay: minDelay,
		defaultMaxDelay: maxDelay,
		running:         make(map[string]*Runner),
	}
}

// Submit validates and persists a new campaign in READY state, returning its id.
func (g *Registry) Submit(tenantID, channelID string, contacts []store.Contact, content store.CampaignContent, minDelay, maxDelay int) (*store.Campaign, error) {
	ch, err := g.channels.Get(channelID)
	if err != nil {
		return nil, fmt.Errorf("submit campaign: %w", err)
	}
	if ch.TenantID != tenantID {
		return nil, fmt.Errorf("submit campaign: channel %s not owned by tenant %s", channelID, tenantID)
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("submit campaign: empty contact list")
	}
	if len(content.Variants) == 0 {
		return nil, fmt.Errorf("submit campaign: no content variants")
	}
	switch content.Kind {
	case "", "text":
	case "image", "video", "audio", "document":
		if content.MediaURL == "" {
			return nil, fmt.Errorf("submit campaign: media content without media_url")
		}
	default:
		return nil, fmt.Errorf("submit campaign: unknown content kind %q", content.Kind)
	}

	if minDelay <= 0 && maxDelay <= 0 {
		minDelay, maxDelay = g.defaultMinDelay, g.defaultMaxDelay
	}
	if maxDelay < minDelay {
		return nil, fmt.Errorf("submit campaign: delay range %d-%d invalid", minDelay, maxDelay)
	}

	now := time.Now()
	c := &store.Campaign{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ChannelID:       channelID,
		Contacts:        contacts,
		Content:         content,
		MinDelaySeconds: minDelay,
		MaxDelaySeconds: maxDelay,
		Status:          store.CampaignReady,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := g.campaigns.Put(c); err != nil {
		return nil, fmt.Errorf("submit campaign: %w", err)
	}

	slog.Info("campaign submitted", "campaign_id", c.ID,
		"channel_id", channelID, "contacts", len(contacts))
	return c, nil
}

// Start launches the runner for a READY or PAUSED campaign. The loop runs on
// its own goroutine; Start returns immediately.
func (g *Registry) Start(ctx context.Context, campaignID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, live := g.running[campaignID]; live {
		return fmt.Errorf("start campaign: %s already running", campaignID)
	}

	c, err := g.campaigns.Get(campaignID)
	if err != nil {
		return fmt.Errorf("start campaign: %w", err)
	}
	switch c.Status {
	case store.CampaignReady, store.CampaignPaused, store.CampaignRunning:
		// RUNNING without a live runner means a prior process died; the
		// checkpoint makes it resumable.
	default:
		return fmt.Errorf("start campaign: %s is %s", campaignID, c.Status)
	}

	ch, err := g.channels.Get(c.ChannelID)
	if err != nil {
		return fmt.Errorf("start campaign: %w", err)
	}

	r := newRunner(c, ch, g.transport, g.campaigns, g.events, g.checkpointEvery)
	g.running[campaignID] = r

	go func() {
		defer g.remove(campaignID)
		r.Run(ctx)
	}()

	slog.Info("campaign started", "campaign_id", campaignID, "checkpoint", c.Checkpoint)
	return nil
}

func (g *Registry) remove(campaignID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, campaignID)
}

// Pause requests a cooperative pause. For a campaign without a live runner
// (stale RUNNING after a crash, or READY) the status is persisted directly.
func (g *Registry) Pause(campaignID string) error {
	g.mu.Lock()
	r, live := g.running[campaignID]
	g.mu.Unlock()

	if live {
		r.Pause()
		return nil
	}

	c, err := g.campaigns.Get(campaignID)
	if err != nil {
		return fmt.Errorf("pause campaign: %w", err)
	}
	if c.Status.Terminal() {
		return fmt.Errorf("pause campaign: %s is %s", campaignID, c.Status)
	}
	c.Status = store.CampaignPaused
	c.UpdatedAt = time.Now()
	if err := g.campaigns.Put(c); err != nil {
		return fmt.Errorf("pause campaign: %w", err)
	}
	return nil
}

// Resume restarts a paused campaign from its checkpoint.
func (g *Registry) Resume(ctx context.Context, campaignID string) error {
	c, err := g.campaigns.Get(campaignID)
	if err != nil {
		return fmt.Errorf("resume campaign: %w", err)
	}
	if c.Status != store.CampaignPaused {
		return fmt.Errorf("resume campaign: %s is %s", campaignID, c.Status)
	}
	return g.Start(ctx, campaignID)
}

// Cancel aborts a campaign. Live runners stop at the next iteration; idle
// campaigns are marked CANCELLED immediately.
func (g *Registry) Cancel(campaignID string) error {
	g.mu.Lock()
	r, live := g.running[campaignID]
	g.mu.Unlock()

	if live {
		r.Cancel()
		return nil
	}

	c, err := g.campaigns.Get(campaignID)
	if err != nil {
		return fmt.Errorf("cancel campaign: %w", err)
	}
	if c.Status.Terminal() {
		return fmt.Errorf("cancel campaign: %s is %s", campaignID, c.Status)
	}
	c.Status = store.CampaignCancelled
	c.UpdatedAt = time.Now()
	if err := g.campaigns.Put(c); err != nil {
		return fmt.Errorf("cancel campaign: %w", err)
	}
	g.events.CampaignCancelled(c)
	return nil
}

// Get returns the persisted campaign record.
func (g *Registry) Get(campaignID string) (*store.Campaign, error) {
	return g.campaigns.Get(campaignID)
}

// List returns a tenant's campaigns ("" = all).
func (g *Registry) List(tenantID string) ([]*store.Campaign, error) {
	return g.campaigns.List(tenantID)
}
