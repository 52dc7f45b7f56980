package campaign

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// Cooperative control states, polled once per loop iteration. There is no
// forced interruption of an in-flight gateway call.
const (
	ctlRun int32 = iota
	ctlPause
	ctlCancel
)

// Transport is the dispatcher's view of the transport adapter.
type Transport interface {
	CheckRecipient(ctx context.Context, token, contact string) error
	SendText(ctx context.Context, token, to, text string) error
	SendMedia(ctx context.Context, token, to, kind, mediaURL, caption string) error
}

// Events receives dispatcher notifications.
type Events interface {
	CampaignProgress(c *store.Campaign)
	CampaignPaused(c *store.Campaign)
	CampaignCancelled(c *store.Campaign)
	CampaignCompleted(ctx context.Context, ch *store.Channel, c *store.Campaign)
}

// Runner drives one campaign's send loop. The loop is strictly sequential;
// independent campaigns run on independent Runners.
type Runner struct {
	camp      *store.Campaign
	channel   *store.Channel
	transport Transport
	campaigns store.CampaignStore
	events    Events

	checkpointEvery int
	ctl             atomic.Int32
	rng             *rand.Rand

	// Seams for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

func newRunner(camp *store.Campaign, ch *store.Channel, tr Transport, cs store.CampaignStore, ev Events, checkpointEvery int) *Runner {
	if checkpointEvery <= 0 {
		checkpointEvery = 5
	}
	return &Runner{
		camp:            camp,
		channel:         ch,
		transport:       tr,
		campaigns:       cs,
		events:          ev,
		checkpointEvery: checkpointEvery,
		rng:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:             time.Now,
		sleep:           sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Pause requests a cooperative stop at the next loop iteration.
func (r *Runner) Pause() { r.ctl.Store(ctlPause) }

// Cancel requests a cooperative abort at the next loop iteration.
func (r *Runner) Cancel() { r.ctl.Store(ctlCancel) }

// persist checkpoints the campaign. A write failure is logged and swallowed:
// the loop continues in memory-only mode for this run, per the dispatcher's
// degraded-persistence contract.
func (r *Runner) persist() {
	r.camp.UpdatedAt = r.now()
	if err := r.campaigns.Put(r.camp); err != nil {
		slog.Warn("campaign checkpoint persist failed, continuing in memory",
			"campaign_id", r.camp.ID, "error", err)
	}
}

// Run executes the send loop from the persisted checkpoint to completion,
// pause, or cancellation. Transport and validation failures are per-item and
// never abort the loop.
func (r *Runner) Run(ctx context.Context) {
	c := r.camp
	c.Status = store.CampaignRunning
	r.persist()

	total := len(c.Contacts)
	for i := c.Checkpoint; i < total; i++ {
		switch r.ctl.Load() {
		case ctlPause:
			c.Status = store.CampaignPaused
			r.persist()
			r.events.CampaignPaused(c)
			slog.Info("campaign paused", "campaign_id", c.ID, "checkpoint", c.Checkpoint)
			return
		case ctlCancel:
			c.Status = store.CampaignCancelled
			r.persist()
			r.events.CampaignCancelled(c)
			slog.Info("campaign cancelled", "campaign_id", c.ID, "checkpoint", c.Checkpoint)
			return
		}
		if ctx.Err() != nil {
			// Shutdown: leave the campaign resumable from the checkpoint.
			c.Status = store.CampaignPaused
			r.persist()
			return
		}

		r.attempt(ctx, c.Contacts[i])
		c.Checkpoint = i + 1

		if c.Checkpoint%r.checkpointEvery == 0 || c.Checkpoint == total {
			r.persist()
			r.events.CampaignProgress(c)
		}

		if c.Checkpoint < total {
			if !r.sleep(ctx, r.delay()) {
				c.Status = store.CampaignPaused
				r.persist()
				return
			}
		}
	}

	c.Status = store.CampaignCompleted
	r.persist()
	r.events.CampaignCompleted(ctx, r.channel, c)
	slog.Info("campaign completed", "campaign_id", c.ID,
		"sent", c.Sent, "failed", c.Failed, "total", total)
}

// attempt sends to one contact, recording per-item success or failure.
func (r *Runner) attempt(ctx context.Context, contact store.Contact) {
	c := r.camp
	token := r.channel.Token

	if err := r.transport.CheckRecipient(ctx, token, contact.ID); err != nil {
		slog.Debug("campaign recipient skipped", "campaign_id", c.ID,
			"contact", contact.ID, "error", err)
		r.recordFailure(contact.ID)
		return
	}

	text := Render(c.Content, contact, r.now(), r.rng)

	var err error
	if c.Content.Kind == "" || c.Content.Kind == "text" {
		err = r.transport.SendText(ctx, token, contact.ID, text)
	} else {
		err = r.transport.SendMedia(ctx, token, contact.ID, c.Content.Kind, c.Content.MediaURL, text)
	}
	if err != nil {
		slog.Debug("campaign send failed", "campaign_id", c.ID,
			"contact", contact.ID, "error", err)
		r.recordFailure(contact.ID)
		return
	}

	c.Sent++
	c.Succeeded = append(c.Succeeded, contact.ID)
}

func (r *Runner) recordFailure(contactID string) {
	r.camp.Failed++
	r.camp.FailedContacts = append(r.camp.FailedContacts, contactID)
}

// delay draws the inter-send pause uniformly from the configured range.
// This is the anti-abuse rate limit, not a correctness mechanism.
func (r *Runner) delay() time.Duration {
	min, max := r.camp.MinDelaySeconds, r.camp.MaxDelaySeconds
	if max < min {
		max = min
	}
	secs := min
	if max > min {
		secs = min + r.rng.IntN(max-min+1)
	}
	return time.Duration(secs) * time.Second
}
