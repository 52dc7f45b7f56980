package followup

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

type memChannels struct {
	m map[string]*store.Channel
}

func (s *memChannels) Get(id string) (*store.Channel, error) {
	ch, ok := s.m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ch, nil
}

func (s *memChannels) Put(ch *store.Channel) error { s.m[ch.ID] = ch; return nil }

func (s *memChannels) List(tenantID string) ([]*store.Channel, error) {
	var out []*store.Channel
	for _, ch := range s.m {
		out = append(out, ch)
	}
	return out, nil
}

type memTracker struct {
	recs    map[string]*store.LeadRecord
	nudged  []string
	resumed []string
}

func key(ch, c string) string { return ch + "|" + c }

func (t *memTracker) List() ([]*store.LeadRecord, error) {
	var out []*store.LeadRecord
	for _, r := range t.recs {
		out = append(out, r)
	}
	return out, nil
}

func (t *memTracker) RecordNudge(channelID, contactID string, at time.Time) error {
	r := t.recs[key(channelID, contactID)]
	r.Status = store.LeadNudged
	r.NudgeCount++
	r.LastInteraction = at
	t.nudged = append(t.nudged, contactID)
	return nil
}

func (t *memTracker) Resume(channelID, contactID string, at time.Time) error {
	r := t.recs[key(channelID, contactID)]
	r.Status = store.LeadResponded
	r.NudgeCount = 0
	t.resumed = append(t.resumed, contactID)
	return nil
}

type sentRecorder struct {
	texts   []string
	to      []string
	sendErr error
}

func (s *sentRecorder) SendText(ctx context.Context, token, to, text string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.to = append(s.to, to)
	s.texts = append(s.texts, text)
	return nil
}

type sweepEvents struct {
	nudged      []int
	reactivated []string
}

func (e *sweepEvents) Nudged(ctx context.Context, ch *store.Channel, contactID string, nudgeCount int) {
	e.nudged = append(e.nudged, nudgeCount)
}

func (e *sweepEvents) Reactivated(ctx context.Context, ch *store.Channel, contactID string) {
	e.reactivated = append(e.reactivated, contactID)
}

func sweepConfig() config.FollowUpConfig {
	return config.FollowUpConfig{
		IntervalMinutes:   5,
		WaitMinutes:       60,
		MaxNudges:         3,
		Messages:          []string{"first nudge", "second nudge", "last nudge"},
		ReactivateMinutes: 720,
	}
}

func fixture(recs ...*store.LeadRecord) (*Scheduler, *memTracker, *sentRecorder, *sweepEvents) {
	tracker := &memTracker{recs: map[string]*store.LeadRecord{}}
	for _, r := range recs {
		tracker.recs[key(r.ChannelID, r.ContactID)] = r
	}
	channels := &memChannels{m: map[string]*store.Channel{
		"ch": {ID: "ch", TenantID: "t-1", Token: "tok"},
	}}
	sender := &sentRecorder{}
	events := &sweepEvents{}
	s := New(sweepConfig(), channels, tracker, sender, events)
	return s, tracker, sender, events
}

func TestSweep_NudgesQuietLead(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s, tracker, sender, events := fixture(&store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:          store.LeadResponded,
		LastInteraction: now.Add(-2 * time.Hour),
	})
	s.now = func() time.Time { return now }

	s.Sweep(context.Background())

	if len(sender.texts) != 1 || sender.texts[0] != "first nudge" {
		t.Fatalf("sends = %v", sender.texts)
	}
	r := tracker.recs[key("ch", "c1")]
	if r.Status != store.LeadNudged || r.NudgeCount != 1 {
		t.Errorf("record = %s count=%d, want NUDGED count=1", r.Status, r.NudgeCount)
	}
	if len(events.nudged) != 1 || events.nudged[0] != 1 {
		t.Errorf("nudge events = %v", events.nudged)
	}
}

func TestSweep_RecentLeadNotNudged(t *testing.T) {
	now := time.Now()
	s, _, sender, _ := fixture(&store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:          store.LeadResponded,
		LastInteraction: now.Add(-10 * time.Minute),
	})
	s.now = func() time.Time { return now }

	s.Sweep(context.Background())

	if len(sender.texts) != 0 {
		t.Errorf("sends = %v, want none before the wait elapses", sender.texts)
	}
}

func TestSweep_EscalatesThroughMessages(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rec := &store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:          store.LeadNudged,
		NudgeCount:      2,
		LastInteraction: now.Add(-2 * time.Hour),
	}
	s, _, sender, _ := fixture(rec)
	s.now = func() time.Time { return now }

	s.Sweep(context.Background())

	if len(sender.texts) != 1 || sender.texts[0] != "last nudge" {
		t.Fatalf("sends = %v, want the third message", sender.texts)
	}
	if rec.NudgeCount != 3 {
		t.Fatalf("count = %d, want 3", rec.NudgeCount)
	}

	// Max nudges reached: further sweeps stay silent no matter how long the
	// lead is quiet.
	later := now.Add(24 * time.Hour)
	s.now = func() time.Time { return later }
	s.Sweep(context.Background())

	if len(sender.texts) != 1 {
		t.Errorf("sends after max = %v, want no more", sender.texts)
	}
}

func TestSweep_SendFailureNotRecorded(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rec := &store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:          store.LeadResponded,
		LastInteraction: now.Add(-2 * time.Hour),
	}
	s, tracker, sender, events := fixture(rec)
	s.now = func() time.Time { return now }
	sender.sendErr = context.DeadlineExceeded

	s.Sweep(context.Background())

	if rec.NudgeCount != 0 || len(tracker.nudged) != 0 {
		t.Errorf("count = %d, want nudge not recorded when the send fails", rec.NudgeCount)
	}
	if len(events.nudged) != 0 {
		t.Errorf("nudge events = %v, want none", events.nudged)
	}
}

func TestSweep_ReactivatesStaleHumanActive(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rec := &store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:    store.LeadHumanActive,
		UpdatedAt: now.Add(-13 * time.Hour),
	}
	s, tracker, _, events := fixture(rec)
	s.now = func() time.Time { return now }

	s.Sweep(context.Background())

	if len(tracker.resumed) != 1 {
		t.Fatalf("resumed = %v, want c1", tracker.resumed)
	}
	if len(events.reactivated) != 1 || events.reactivated[0] != "c1" {
		t.Errorf("reactivated events = %v", events.reactivated)
	}
}

func TestSweep_FreshHumanActiveUntouched(t *testing.T) {
	now := time.Now()
	s, tracker, _, _ := fixture(&store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:    store.LeadHumanActive,
		UpdatedAt: now.Add(-time.Hour),
	})
	s.now = func() time.Time { return now }

	s.Sweep(context.Background())

	if len(tracker.resumed) != 0 {
		t.Errorf("resumed = %v, want none inside threshold", tracker.resumed)
	}
}

func TestSweep_TransferredLeadIgnored(t *testing.T) {
	now := time.Now()
	s, tracker, sender, _ := fixture(&store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:          store.LeadTransferred,
		LastInteraction: now.Add(-48 * time.Hour),
		UpdatedAt:       now.Add(-48 * time.Hour),
	})
	s.now = func() time.Time { return now }

	s.Sweep(context.Background())

	if len(sender.texts) != 0 || len(tracker.resumed) != 0 {
		t.Error("transferred leads must be left alone")
	}
}

func TestSweep_ChannelOverrides(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rec := &store.LeadRecord{
		ChannelID: "ch", ContactID: "c1",
		Status:          store.LeadResponded,
		LastInteraction: now.Add(-30 * time.Minute),
	}
	s, _, sender, _ := fixture(rec)
	s.now = func() time.Time { return now }

	// Per-channel wait shorter than the global one.
	ch, _ := s.channels.Get("ch")
	ch.Settings.WaitMinutes = 15
	ch.Settings.NudgeMessages = []string{"custom nudge"}

	s.Sweep(context.Background())

	if len(sender.texts) != 1 || sender.texts[0] != "custom nudge" {
		t.Fatalf("sends = %v, want the channel's own message", sender.texts)
	}
}

func TestSweep_CronWindow(t *testing.T) {
	mkRec := func() *store.LeadRecord {
		return &store.LeadRecord{
			ChannelID: "ch", ContactID: "c1",
			Status:          store.LeadResponded,
			LastInteraction: time.Date(2026, 4, 1, 1, 0, 0, 0, time.UTC),
		}
	}

	// Outside business hours: nothing happens.
	s, _, sender, _ := fixture(mkRec())
	s.cfg.Window = "* 9-18 * * *"
	s.now = func() time.Time { return time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC) }
	s.Sweep(context.Background())
	if len(sender.texts) != 0 {
		t.Errorf("sends outside window = %v, want none", sender.texts)
	}

	// Inside the window the sweep runs.
	s2, _, sender2, _ := fixture(mkRec())
	s2.cfg.Window = "* 9-18 * * *"
	s2.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	s2.Sweep(context.Background())
	if len(sender2.texts) != 1 {
		t.Errorf("sends inside window = %v, want 1", sender2.texts)
	}
}
