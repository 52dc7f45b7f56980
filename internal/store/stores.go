// Package store defines the persistence interfaces and record types shared
// by the engagement core. Backends: file (standalone, JSON documents) and
// pg (managed, Postgres). Neither offers multi-record transactions; callers
// in the engagement core treat write failures as non-fatal (log + continue).
package store

import "errors"

// ErrNotFound is returned by Get operations for missing records.
var ErrNotFound = errors.New("store: not found")

// TenantStore persists operator accounts.
type TenantStore interface {
	Get(id string) (*Tenant, error)
	Put(t *Tenant) error
	List() ([]*Tenant, error)
}

// ChannelStore persists connected gateway identities.
type ChannelStore interface {
	Get(id string) (*Channel, error)
	Put(ch *Channel) error
	List(tenantID string) ([]*Channel, error)
}

// CampaignStore persists bulk-send jobs and their checkpoints.
type CampaignStore interface {
	Get(id string) (*Campaign, error)
	Put(c *Campaign) error
	List(tenantID string) ([]*Campaign, error)
}

// LeadStore persists lead-tracking records keyed by (channel, contact).
type LeadStore interface {
	Get(channelID, contactID string) (*LeadRecord, error)
	Put(rec *LeadRecord) error
	List() ([]*LeadRecord, error)
}

// RosterStore persists the per-tenant agent roster.
type RosterStore interface {
	ActiveAgents(tenantID string) ([]AgentEntry, error)
	Put(a AgentEntry) error
}

// CursorStore persists the round-robin distribution cursor. Advance
// atomically claims the current roster index for tenantID and moves the
// cursor to (index+1) mod rosterLen, wrapping stale cursors. The returned
// index is the slot the caller should assign.
type CursorStore interface {
	Advance(tenantID string, rosterLen int) (int, error)
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Tenants   TenantStore
	Channels  ChannelStore
	Campaigns CampaignStore
	Leads     LeadStore
	Roster    RosterStore
	Cursors   CursorStore
}
