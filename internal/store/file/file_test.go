package file

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

func newTestStores(t *testing.T) *store.Stores {
	t.Helper()
	s, err := NewStores(t.TempDir())
	if err != nil {
		t.Fatalf("NewStores: %v", err)
	}
	return s
}

func TestCampaignRoundtrip(t *testing.T) {
	s := newTestStores(t)

	c := &store.Campaign{
		ID:         "camp-1",
		TenantID:   "t-1",
		ChannelID:  "ch-1",
		Status:     store.CampaignRunning,
		Contacts:   []store.Contact{{ID: "111", Name: "Ana"}, {ID: "222"}},
		Checkpoint: 1,
		Sent:       1,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Campaigns.Put(c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Campaigns.Get("camp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != store.CampaignRunning || got.Checkpoint != 1 {
		t.Errorf("got status=%s checkpoint=%d", got.Status, got.Checkpoint)
	}
	if len(got.Contacts) != 2 || got.Contacts[1].ID != "222" {
		t.Errorf("contacts = %v", got.Contacts)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStores(t)

	if _, err := s.Campaigns.Get("nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("campaign err = %v, want ErrNotFound", err)
	}
	if _, err := s.Channels.Get("nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("channel err = %v, want ErrNotFound", err)
	}
	if _, err := s.Leads.Get("ch", "555"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("lead err = %v, want ErrNotFound", err)
	}
}

func TestLeadKeyWithSeparatorChars(t *testing.T) {
	s := newTestStores(t)

	// Contact IDs can carry characters the filesystem would reject in
	// names; the key must sanitize without colliding on lookup.
	rec := &store.LeadRecord{
		ChannelID: "ch-1",
		ContactID: "555:12@host",
		Status:    store.LeadResponded,
	}
	if err := s.Leads.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Leads.Get("ch-1", "555:12@host")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContactID != "555:12@host" {
		t.Errorf("contact = %q", got.ContactID)
	}
}

func TestCampaignListFiltersByTenant(t *testing.T) {
	s := newTestStores(t)

	base := time.Now().UTC()
	for i, tenant := range []string{"t-1", "t-2", "t-1"} {
		c := &store.Campaign{
			ID:        "camp-" + string(rune('a'+i)),
			TenantID:  tenant,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Campaigns.Put(c); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := s.Campaigns.List("t-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// List orders by creation time.
	if got[0].ID != "camp-a" || got[1].ID != "camp-c" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}

	all, err := s.Campaigns.List("")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len all = %d, want 3", len(all))
	}
}

func TestActiveAgentsStableOrder(t *testing.T) {
	s := newTestStores(t)

	agents := []store.AgentEntry{
		{ID: "c", TenantID: "t-1", Name: "Carol", Contact: "3", Active: true},
		{ID: "a", TenantID: "t-1", Name: "Ana", Contact: "1", Active: true},
		{ID: "b", TenantID: "t-1", Name: "Bob", Contact: "2", Active: false},
		{ID: "d", TenantID: "t-2", Name: "Dave", Contact: "4", Active: true},
	}
	for _, a := range agents {
		if err := s.Roster.Put(a); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := s.Roster.ActiveAgents("t-1")
	if err != nil {
		t.Fatalf("ActiveAgents: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("roster = %+v, want active t-1 agents in ID order", got)
	}
}

func TestCursorAdvanceWraps(t *testing.T) {
	s := newTestStores(t)

	var got []int
	for i := 0; i < 5; i++ {
		idx, err := s.Cursors.Advance("t-1", 3)
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		got = append(got, idx)
	}
	want := []int{0, 1, 2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
}

func TestCursorSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStores(dir)
	if err != nil {
		t.Fatalf("NewStores: %v", err)
	}
	if _, err := s.Cursors.Advance("t-1", 3); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := s.Cursors.Advance("t-1", 3); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	reloaded, err := newCursorFile(filepath.Join(dir, "cursors.json"))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	idx, err := reloaded.Advance("t-1", 3)
	if err != nil {
		t.Fatalf("Advance after reload: %v", err)
	}
	if idx != 2 {
		t.Errorf("idx = %d, want 2 after two prior advances", idx)
	}
}

func TestCursorStalePositionWraps(t *testing.T) {
	s := newTestStores(t)

	// Grow the cursor against a five-agent roster, then shrink the roster.
	// The stale position must wrap modulo the new length instead of
	// indexing out of range.
	for i := 0; i < 4; i++ {
		if _, err := s.Cursors.Advance("t-1", 5); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	idx, err := s.Cursors.Advance("t-1", 2)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0 (4 mod 2)", idx)
	}
}

func TestCursorPersistFailureStillClaims(t *testing.T) {
	// A path inside a missing directory makes every persist fail. The claim
	// must still succeed and the cursor must keep rotating in memory.
	c, err := newCursorFile(filepath.Join(t.TempDir(), "missing", "cursors.json"))
	if err != nil {
		t.Fatalf("newCursorFile: %v", err)
	}

	var got []int
	for i := 0; i < 3; i++ {
		idx, err := c.Advance("t-1", 2)
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		got = append(got, idx)
	}
	want := []int{0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
}

func TestCursorEmptyRosterRejected(t *testing.T) {
	s := newTestStores(t)

	if _, err := s.Cursors.Advance("t-1", 0); err == nil {
		t.Fatal("want error for empty roster")
	}
}

func TestCursorsAreTenantScoped(t *testing.T) {
	s := newTestStores(t)

	if _, err := s.Cursors.Advance("t-1", 3); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	idx, err := s.Cursors.Advance("t-2", 3)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if idx != 0 {
		t.Errorf("t-2 idx = %d, want its own cursor starting at 0", idx)
	}
}
