package file

import (
	"encoding/json"
	"sort"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

type tenantStore struct{ docs docDir }

func (s *tenantStore) Get(id string) (*store.Tenant, error) {
	var t store.Tenant
	if err := s.docs.read(id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *tenantStore) Put(t *store.Tenant) error {
	return s.docs.write(t.ID, t)
}

func (s *tenantStore) List() ([]*store.Tenant, error) {
	var out []*store.Tenant
	err := s.docs.each(func(data []byte) {
		var t store.Tenant
		if json.Unmarshal(data, &t) == nil && t.ID != "" {
			out = append(out, &t)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type channelStore struct{ docs docDir }

func (s *channelStore) Get(id string) (*store.Channel, error) {
	var ch store.Channel
	if err := s.docs.read(id, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *channelStore) Put(ch *store.Channel) error {
	return s.docs.write(ch.ID, ch)
}

func (s *channelStore) List(tenantID string) ([]*store.Channel, error) {
	var out []*store.Channel
	err := s.docs.each(func(data []byte) {
		var ch store.Channel
		if json.Unmarshal(data, &ch) != nil || ch.ID == "" {
			return
		}
		if tenantID == "" || ch.TenantID == tenantID {
			out = append(out, &ch)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type campaignStore struct{ docs docDir }

func (s *campaignStore) Get(id string) (*store.Campaign, error) {
	var c store.Campaign
	if err := s.docs.read(id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *campaignStore) Put(c *store.Campaign) error {
	return s.docs.write(c.ID, c)
}

func (s *campaignStore) List(tenantID string) ([]*store.Campaign, error) {
	var out []*store.Campaign
	err := s.docs.each(func(data []byte) {
		var c store.Campaign
		if json.Unmarshal(data, &c) != nil || c.ID == "" {
			return
		}
		if tenantID == "" || c.TenantID == tenantID {
			out = append(out, &c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type leadStore struct{ docs docDir }

func leadKey(channelID, contactID string) string {
	return channelID + "|" + contactID
}

func (s *leadStore) Get(channelID, contactID string) (*store.LeadRecord, error) {
	var rec store.LeadRecord
	if err := s.docs.read(leadKey(channelID, contactID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *leadStore) Put(rec *store.LeadRecord) error {
	return s.docs.write(leadKey(rec.ChannelID, rec.ContactID), rec)
}

func (s *leadStore) List() ([]*store.LeadRecord, error) {
	var out []*store.LeadRecord
	err := s.docs.each(func(data []byte) {
		var rec store.LeadRecord
		if json.Unmarshal(data, &rec) == nil && rec.ChannelID != "" {
			out = append(out, &rec)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChannelID != out[j].ChannelID {
			return out[i].ChannelID < out[j].ChannelID
		}
		return out[i].ContactID < out[j].ContactID
	})
	return out, err
}

type rosterStore struct{ docs docDir }

func (s *rosterStore) Put(a store.AgentEntry) error {
	return s.docs.write(a.ID, a)
}

// ActiveAgents returns the tenant's active roster in stable (ID) order so
// round-robin assignment is deterministic.
func (s *rosterStore) ActiveAgents(tenantID string) ([]store.AgentEntry, error) {
	var out []store.AgentEntry
	err := s.docs.each(func(data []byte) {
		var a store.AgentEntry
		if json.Unmarshal(data, &a) != nil || a.ID == "" {
			return
		}
		if a.TenantID == tenantID && a.Active {
			out = append(out, a)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}
