package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
	"github.com/nextlevelbuilder/leadclaw/internal/campaign"
	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/leads"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
	"github.com/nextlevelbuilder/leadclaw/internal/store/file"
	"github.com/nextlevelbuilder/leadclaw/internal/webhook"
)

const testToken = "test-token"

type nullTransport struct{}

func (nullTransport) CheckRecipient(ctx context.Context, token, contact string) error { return nil }
func (nullTransport) SendText(ctx context.Context, token, to, text string) error      { return nil }
func (nullTransport) SendMedia(ctx context.Context, token, to, kind, mediaURL, caption string) error {
	return nil
}

type nullEvents struct{}

func (nullEvents) CampaignProgress(c *store.Campaign)  {}
func (nullEvents) CampaignPaused(c *store.Campaign)    {}
func (nullEvents) CampaignCancelled(c *store.Campaign) {}
func (nullEvents) CampaignCompleted(ctx context.Context, ch *store.Channel, c *store.Campaign) {}

type testGateway struct {
	addr   string
	bus    *bus.MessageBus
	stores *store.Stores
}

func startGateway(t *testing.T) *testGateway {
	t.Helper()

	stores, err := file.NewStores(t.TempDir())
	if err != nil {
		t.Fatalf("stores: %v", err)
	}
	if err := stores.Channels.Put(&store.Channel{
		ID: "ch-1", TenantID: "t-1", Token: "wa-token", AIEnabled: true,
	}); err != nil {
		t.Fatalf("seed channel: %v", err)
	}

	cfg := config.Default()
	cfg.Gateway.Token = testToken

	msgBus := bus.New()
	registry := campaign.NewRegistry(stores.Campaigns, stores.Channels,
		nullTransport{}, nullEvents{}, 5, 0, 0)
	tracker := leads.NewTracker(stores.Leads)
	wh := webhook.NewHandler(msgBus, stores.Channels, webhook.NewRateLimiter(1000, time.Minute))

	srv := NewServer(cfg, msgBus, wh, registry, tracker, stores.Channels)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, start := StartTestServer(srv, ctx)
	go start()

	return &testGateway{addr: addr, bus: msgBus, stores: stores}
}

func (g *testGateway) url(path string) string { return "http://" + g.addr + path }

func (g *testGateway) request(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, g.url(path), strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealthEndpoint(t *testing.T) {
	g := startGateway(t)

	resp, body := g.request(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var health struct {
		Status   string `json:"status"`
		Protocol int    `json:"protocol"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Protocol < 1 {
		t.Errorf("health = %+v", health)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	g := startGateway(t)

	resp, err := http.Get(g.url("/api/campaigns"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, g.url("/api/campaigns"), nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", resp2.StatusCode)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	g := startGateway(t)
	wsURL := "ws://" + g.addr + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("upgrade succeeded without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}

	hdr := http.Header{"Authorization": {"Bearer " + testToken}}
	conn, _, err = websocket.DefaultDialer.Dial(wsURL, hdr)
	if err != nil {
		t.Fatalf("upgrade with bearer token: %v", err)
	}
	conn.Close()

	// Browser clients cannot set headers on the upgrade request.
	conn, _, err = websocket.DefaultDialer.Dial(wsURL+"?token="+testToken, nil)
	if err != nil {
		t.Fatalf("upgrade with query token: %v", err)
	}
	conn.Close()
}

func TestCampaignSubmitAndFetch(t *testing.T) {
	g := startGateway(t)

	submission := `{
		"tenant_id": "t-1",
		"channel_id": "ch-1",
		"contacts": [{"id": "111", "name": "Ana"}, {"id": "222"}],
		"content": {"variants": ["{{greeting}} {{name}}!"]},
		"min_delay_seconds": 1,
		"max_delay_seconds": 2
	}`
	resp, body := g.request(t, http.MethodPost, "/api/campaigns", submission)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", resp.StatusCode, body)
	}

	var created store.Campaign
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Status != store.CampaignReady {
		t.Fatalf("created = %+v", created)
	}

	resp2, body2 := g.request(t, http.MethodGet, "/api/campaigns/"+created.ID, "")
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp2.StatusCode)
	}
	var fetched store.Campaign
	if err := json.Unmarshal(body2, &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.ID != created.ID || len(fetched.Contacts) != 2 {
		t.Errorf("fetched = %+v", fetched)
	}
}

func TestCampaignSubmitRejectsBadRequest(t *testing.T) {
	g := startGateway(t)

	resp, _ := g.request(t, http.MethodPost, "/api/campaigns",
		`{"tenant_id": "t-1", "channel_id": "ch-1", "contacts": [], "content": {"variants": ["hi"]}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty contacts: status = %d, want 400", resp.StatusCode)
	}

	resp2, _ := g.request(t, http.MethodGet, "/api/campaigns/no-such-id", "")
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("missing campaign: status = %d, want 404", resp2.StatusCode)
	}
}

func TestWebhookIntakePublishesToBus(t *testing.T) {
	g := startGateway(t)

	payload := `{"event": "messages.upsert",
		"data": {"key": {"remoteJid": "555123@s.whatsapp.net", "fromMe": false},
		         "message": {"conversation": "hello there"}}}`
	resp, err := http.Post(g.url("/webhook/ch-1"), "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, ok := g.bus.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("no event published")
	}
	if ev.ChannelID != "ch-1" || ev.ContactID != "555123" || ev.Text != "hello there" {
		t.Errorf("event = %+v", ev)
	}
}

func TestWebhookUnknownChannelDropped(t *testing.T) {
	g := startGateway(t)

	payload := `{"key": {"remoteJid": "555@s.whatsapp.net"}, "message": {"conversation": "hi"}}`
	resp, err := http.Post(g.url("/webhook/ghost"), "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	// The gateway retries on errors, so drops are still 204.
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := g.bus.ConsumeInbound(ctx); ok {
		t.Error("event for unknown channel must not reach the bus")
	}
}

func TestLeadListAndResume(t *testing.T) {
	g := startGateway(t)

	now := time.Now()
	recs := []*store.LeadRecord{
		{ChannelID: "ch-1", ContactID: "100", Status: store.LeadResponded, LastInteraction: now},
		{ChannelID: "ch-1", ContactID: "200", Status: store.LeadHumanActive, LastInteraction: now},
	}
	for _, rec := range recs {
		if err := g.stores.Leads.Put(rec); err != nil {
			t.Fatalf("seed lead: %v", err)
		}
	}

	resp, body := g.request(t, http.MethodGet, "/api/leads?status=HUMAN_ACTIVE", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listed struct {
		Leads []*store.LeadRecord `json:"leads"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Leads) != 1 || listed.Leads[0].ContactID != "200" {
		t.Fatalf("leads = %+v", listed.Leads)
	}

	resp2, _ := g.request(t, http.MethodPost, "/api/leads/ch-1/200/resume", "")
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d", resp2.StatusCode)
	}
	rec, err := g.stores.Leads.Get("ch-1", "200")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != store.LeadResponded {
		t.Errorf("status = %s, want RESPONDED after resume", rec.Status)
	}

	resp3, _ := g.request(t, http.MethodPost, "/api/leads/ch-1/999/resume", "")
	if resp3.StatusCode != http.StatusNotFound {
		t.Errorf("unknown lead resume: status = %d, want 404", resp3.StatusCode)
	}
}

func TestCampaignLifecycleOverAPI(t *testing.T) {
	g := startGateway(t)

	submission := `{
		"tenant_id": "t-1",
		"channel_id": "ch-1",
		"contacts": [{"id": "111"}],
		"content": {"variants": ["hi"]},
		"min_delay_seconds": 1,
		"max_delay_seconds": 1
	}`
	_, body := g.request(t, http.MethodPost, "/api/campaigns", submission)
	var created store.Campaign
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp, _ := g.request(t, http.MethodPost, fmt.Sprintf("/api/campaigns/%s/pause", created.ID), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d", resp.StatusCode)
	}

	resp2, _ := g.request(t, http.MethodPost, fmt.Sprintf("/api/campaigns/%s/cancel", created.ID), "")
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d", resp2.StatusCode)
	}

	c, err := g.stores.Campaigns.Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != store.CampaignCancelled {
		t.Errorf("status = %s, want CANCELLED", c.Status)
	}

	// Terminal campaigns reject further control calls.
	resp3, _ := g.request(t, http.MethodPost, fmt.Sprintf("/api/campaigns/%s/pause", created.ID), "")
	if resp3.StatusCode != http.StatusConflict {
		t.Errorf("pause after cancel: status = %d, want 409", resp3.StatusCode)
	}
}
