package pg

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

type tenantStore struct{ db *sql.DB }

func (s *tenantStore) Get(id string) (*store.Tenant, error) {
	t := &store.Tenant{}
	err := s.db.QueryRow(
		`SELECT id, name, operator_contact, max_channels, max_campaigns, created_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.OperatorContact, &t.MaxChannels, &t.MaxCampaigns, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *tenantStore) Put(t *store.Tenant) error {
	_, err := s.db.Exec(
		`INSERT INTO tenants (id, name, operator_contact, max_channels, max_campaigns, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   operator_contact = EXCLUDED.operator_contact,
		   max_channels = EXCLUDED.max_channels,
		   max_campaigns = EXCLUDED.max_campaigns`,
		t.ID, t.Name, t.OperatorContact, t.MaxChannels, t.MaxCampaigns, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put tenant: %w", err)
	}
	return nil
}

func (s *tenantStore) List() ([]*store.Tenant, error) {
	rows, err := s.db.Query(
		`SELECT id, name, operator_contact, max_channels, max_campaigns, created_at
		 FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*store.Tenant
	for rows.Next() {
		t := &store.Tenant{}
		if err := rows.Scan(&t.ID, &t.Name, &t.OperatorContact, &t.MaxChannels, &t.MaxCampaigns, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type channelStore struct{ db *sql.DB }

func (s *channelStore) Get(id string) (*store.Channel, error) {
	ch := &store.Channel{}
	var settings []byte
	err := s.db.QueryRow(
		`SELECT id, tenant_id, display_name, token, ai_enabled, settings, created_at
		 FROM channels WHERE id = $1`, id,
	).Scan(&ch.ID, &ch.TenantID, &ch.DisplayName, &ch.Token, &ch.AIEnabled, &settings, &ch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &ch.Settings); err != nil {
			return nil, fmt.Errorf("decode channel settings: %w", err)
		}
	}
	return ch, nil
}

func (s *channelStore) Put(ch *store.Channel) error {
	settings, err := json.Marshal(ch.Settings)
	if err != nil {
		return fmt.Errorf("encode channel settings: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO channels (id, tenant_id, display_name, token, ai_enabled, settings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   display_name = EXCLUDED.display_name,
		   token = EXCLUDED.token,
		   ai_enabled = EXCLUDED.ai_enabled,
		   settings = EXCLUDED.settings`,
		ch.ID, ch.TenantID, ch.DisplayName, ch.Token, ch.AIEnabled, settings, ch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put channel: %w", err)
	}
	return nil
}

func (s *channelStore) List(tenantID string) ([]*store.Channel, error) {
	rows, err := s.db.Query(
		`SELECT id, tenant_id, display_name, token, ai_enabled, settings, created_at
		 FROM channels WHERE ($1 = '' OR tenant_id = $1) ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []*store.Channel
	for rows.Next() {
		ch := &store.Channel{}
		var settings []byte
		if err := rows.Scan(&ch.ID, &ch.TenantID, &ch.DisplayName, &ch.Token, &ch.AIEnabled, &settings, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if len(settings) > 0 {
			_ = json.Unmarshal(settings, &ch.Settings)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

type campaignStore struct{ db *sql.DB }

func (s *campaignStore) Get(id string) (*store.Campaign, error) {
	c := &store.Campaign{}
	var contacts, content, succeeded, failedContacts []byte
	err := s.db.QueryRow(
		`SELECT id, tenant_id, channel_id, contacts, content,
		        min_delay_seconds, max_delay_seconds, status, checkpoint,
		        sent, failed, succeeded, failed_contacts, created_at, updated_at
		 FROM campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.TenantID, &c.ChannelID, &contacts, &content,
		&c.MinDelaySeconds, &c.MaxDelaySeconds, &c.Status, &c.Checkpoint,
		&c.Sent, &c.Failed, &succeeded, &failedContacts, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if err := json.Unmarshal(contacts, &c.Contacts); err != nil {
		return nil, fmt.Errorf("decode campaign contacts: %w", err)
	}
	if err := json.Unmarshal(content, &c.Content); err != nil {
		return nil, fmt.Errorf("decode campaign content: %w", err)
	}
	_ = json.Unmarshal(succeeded, &c.Succeeded)
	_ = json.Unmarshal(failedContacts, &c.FailedContacts)
	return c, nil
}

func (s *campaignStore) Put(c *store.Campaign) error {
	contacts, _ := json.Marshal(c.Contacts)
	content, _ := json.Marshal(c.Content)
	succeeded, _ := json.Marshal(c.Succeeded)
	failedContacts, _ := json.Marshal(c.FailedContacts)

	_, err := s.db.Exec(
		`INSERT INTO campaigns (id, tenant_id, channel_id, contacts, content,
		   min_delay_seconds, max_delay_seconds, status, checkpoint,
		   sent, failed, succeeded, failed_contacts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   checkpoint = EXCLUDED.checkpoint,
		   sent = EXCLUDED.sent,
		   failed = EXCLUDED.failed,
		   succeeded = EXCLUDED.succeeded,
		   failed_contacts = EXCLUDED.failed_contacts,
		   updated_at = EXCLUDED.updated_at`,
		c.ID, c.TenantID, c.ChannelID, contacts, content,
		c.MinDelaySeconds, c.MaxDelaySeconds, c.Status, c.Checkpoint,
		c.Sent, c.Failed, succeeded, failedContacts, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

func (s *campaignStore) List(tenantID string) ([]*store.Campaign, error) {
	rows, err := s.db.Query(
		`SELECT id FROM campaigns WHERE ($1 = '' OR tenant_id = $1) ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*store.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type leadStore struct{ db *sql.DB }

func (s *leadStore) Get(channelID, contactID string) (*store.LeadRecord, error) {
	rec := &store.LeadRecord{}
	err := s.db.QueryRow(
		`SELECT channel_id, contact_id, status, last_interaction, nudge_count, created_at, updated_at
		 FROM leads WHERE channel_id = $1 AND contact_id = $2`, channelID, contactID,
	).Scan(&rec.ChannelID, &rec.ContactID, &rec.Status, &rec.LastInteraction,
		&rec.NudgeCount, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return rec, nil
}

func (s *leadStore) Put(rec *store.LeadRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO leads (channel_id, contact_id, status, last_interaction, nudge_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (channel_id, contact_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   last_interaction = EXCLUDED.last_interaction,
		   nudge_count = EXCLUDED.nudge_count,
		   updated_at = EXCLUDED.updated_at`,
		rec.ChannelID, rec.ContactID, rec.Status, rec.LastInteraction,
		rec.NudgeCount, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put lead: %w", err)
	}
	return nil
}

func (s *leadStore) List() ([]*store.LeadRecord, error) {
	rows, err := s.db.Query(
		`SELECT channel_id, contact_id, status, last_interaction, nudge_count, created_at, updated_at
		 FROM leads ORDER BY channel_id, contact_id`)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []*store.LeadRecord
	for rows.Next() {
		rec := &store.LeadRecord{}
		if err := rows.Scan(&rec.ChannelID, &rec.ContactID, &rec.Status, &rec.LastInteraction,
			&rec.NudgeCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rosterStore struct{ db *sql.DB }

func (s *rosterStore) Put(a store.AgentEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO agents (id, tenant_id, name, contact, active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   contact = EXCLUDED.contact,
		   active = EXCLUDED.active`,
		a.ID, a.TenantID, a.Name, a.Contact, a.Active,
	)
	if err != nil {
		return fmt.Errorf("put agent: %w", err)
	}
	return nil
}

func (s *rosterStore) ActiveAgents(tenantID string) ([]store.AgentEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, tenant_id, name, contact, active
		 FROM agents WHERE tenant_id = $1 AND active ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []store.AgentEntry
	for rows.Next() {
		var a store.AgentEntry
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.Contact, &a.Active); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type cursorStore struct{ db *sql.DB }

// Advance claims and advances the tenant's distribution cursor in a single
// statement, so concurrent qualifications cannot observe the same index.
// Stale positions (roster shrank) wrap modulo rosterLen.
func (s *cursorStore) Advance(tenantID string, rosterLen int) (int, error) {
	if rosterLen <= 0 {
		return 0, fmt.Errorf("advance cursor: empty roster")
	}

	var next int
	err := s.db.QueryRow(
		`INSERT INTO distribution_cursors (tenant_id, position)
		 VALUES ($1, 1 % $2)
		 ON CONFLICT (tenant_id) DO UPDATE
		   SET position = ((distribution_cursors.position % $2) + 1) % $2
		 RETURNING position`,
		tenantID, rosterLen,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance cursor: %w", err)
	}

	// The claimed index precedes the stored (next) position.
	return (next - 1 + rosterLen) % rosterLen, nil
}
