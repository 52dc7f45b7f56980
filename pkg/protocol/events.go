package protocol

// ProtocolVersion is bumped whenever event or API payload shapes change.
const ProtocolVersion = 1

// WebSocket event names pushed from the gateway to operator clients.
const (
	EventHealth   = "health"
	EventShutdown = "shutdown"

	// Campaign lifecycle events (payload: CampaignEventPayload).
	EventCampaignProgress  = "campaign.progress"
	EventCampaignCompleted = "campaign.completed"
	EventCampaignPaused    = "campaign.paused"
	EventCampaignCancelled = "campaign.cancelled"

	// Lead lifecycle events (payload: LeadEventPayload).
	EventLeadNew         = "lead.new"
	EventLeadTransfer    = "lead.transfer.requested"
	EventLeadAssigned    = "lead.assigned"
	EventLeadUnassigned  = "lead.unassigned"
	EventLeadNudged      = "lead.nudged"
	EventLeadReactivated = "lead.reactivated"
)

// CampaignEventPayload describes campaign progress for operator clients.
type CampaignEventPayload struct {
	CampaignID string  `json:"campaign_id"`
	ChannelID  string  `json:"channel_id"`
	Checkpoint int     `json:"checkpoint"`
	Total      int     `json:"total"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	SuccessPct float64 `json:"success_pct,omitempty"`
}

// LeadEventPayload describes a lead state change for operator clients.
type LeadEventPayload struct {
	ChannelID string `json:"channel_id"`
	ContactID string `json:"contact_id"`
	Status    string `json:"status,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	Summary   string `json:"summary,omitempty"`
}
