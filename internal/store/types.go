package store

import "time"

// CampaignStatus is the lifecycle state of a bulk campaign.
type CampaignStatus string

const (
	CampaignReady     CampaignStatus = "READY"
	CampaignRunning   CampaignStatus = "RUNNING"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCancelled CampaignStatus = "CANCELLED"
	CampaignCompleted CampaignStatus = "COMPLETED"
)

// Terminal reports whether the campaign can no longer be mutated.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCancelled || s == CampaignCompleted
}

// Contact is one entry of a campaign's contact list.
type Contact struct {
	ID   string `json:"id"`   // gateway contact address
	Name string `json:"name"` // used for {{name}} substitution
}

// CampaignContent is the outbound payload template. When several variants
// are configured the dispatcher picks one at random per contact.
type CampaignContent struct {
	Kind     string   `json:"kind"` // "text", "image", "video", "document"
	Variants []string `json:"variants"`
	MediaURL string   `json:"media_url,omitempty"` // for non-text kinds; rendered variant becomes the caption
}

// Campaign is a bulk-send job. Mutated only by the dispatcher loop and by
// pause/resume/cancel requests; immutable once COMPLETED or CANCELLED.
type Campaign struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ChannelID string `json:"channel_id"`

	Contacts []Contact       `json:"contacts"`
	Content  CampaignContent `json:"content"`

	MinDelaySeconds int `json:"min_delay_seconds"`
	MaxDelaySeconds int `json:"max_delay_seconds"`

	Status     CampaignStatus `json:"status"`
	Checkpoint int            `json:"checkpoint"` // next contact index to attempt
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`

	Succeeded      []string `json:"succeeded,omitempty"`
	FailedContacts []string `json:"failed_contacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total returns the campaign's contact count.
func (c *Campaign) Total() int { return len(c.Contacts) }

// LeadStatus is the automation state of a tracked lead conversation.
type LeadStatus string

const (
	LeadResponded   LeadStatus = "RESPONDED"
	LeadHumanActive LeadStatus = "HUMAN_ACTIVE"
	LeadNudged      LeadStatus = "NUDGED"
	LeadTransferred LeadStatus = "TRANSFERRED"
)

// LeadRecord tracks one (channel, contact) conversation. Created on first
// inbound message; never hard-deleted.
type LeadRecord struct {
	ChannelID string `json:"channel_id"`
	ContactID string `json:"contact_id"`

	Status          LeadStatus `json:"status"`
	LastInteraction time.Time  `json:"last_interaction"`
	NudgeCount      int        `json:"nudge_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tenant is an operator account owning channels, campaigns, and agents.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// OperatorContact receives notifications (new lead, transfer requests,
	// sweep summaries) as transport messages. Empty = events only.
	OperatorContact string `json:"operator_contact,omitempty"`

	MaxChannels  int `json:"max_channels,omitempty"`
	MaxCampaigns int `json:"max_campaigns,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ChannelSettings are per-channel behavior overrides. Zero values fall back
// to the config defaults.
type ChannelSettings struct {
	SystemPrompt      string   `json:"system_prompt,omitempty"`
	DebounceSeconds   int      `json:"debounce_seconds,omitempty"`
	WaitMinutes       int      `json:"wait_minutes,omitempty"`
	MaxNudges         int      `json:"max_nudges,omitempty"`
	NudgeMessages     []string `json:"nudge_messages,omitempty"`
	ReactivateMinutes int      `json:"reactivate_minutes,omitempty"`
}

// Channel is one connected gateway identity, owned by exactly one tenant.
type Channel struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	DisplayName string `json:"display_name"`

	// Token authenticates transport calls for this channel.
	Token string `json:"token"`

	AIEnabled bool            `json:"ai_enabled"`
	Settings  ChannelSettings `json:"settings"`

	CreatedAt time.Time `json:"created_at"`
}

// AgentEntry is one roster member eligible for round-robin assignment.
type AgentEntry struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Contact  string `json:"contact"` // gateway contact address
	Active   bool   `json:"active"`
}
