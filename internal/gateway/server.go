// Package gateway is the HTTP surface of the engagement service: webhook
// intake, the operator API, and the WebSocket event feed.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
	"github.com/nextlevelbuilder/leadclaw/internal/campaign"
	"github.com/nextlevelbuilder/leadclaw/internal/config"
	"github.com/nextlevelbuilder/leadclaw/internal/leads"
	"github.com/nextlevelbuilder/leadclaw/internal/store"
	"github.com/nextlevelbuilder/leadclaw/internal/webhook"
	"github.com/nextlevelbuilder/leadclaw/pkg/protocol"
)

// Server is the gateway HTTP/WebSocket server.
type Server struct {
	cfg      *config.Config
	eventPub bus.EventPublisher
	webhook  *webhook.Handler

	campaigns *campaign.Registry
	tracker   *leads.Tracker
	channels  store.ChannelStore

	upgrader websocket.Upgrader
	clients  map[string]*Client
	mu       sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux

	// baseCtx is the server lifetime context; campaign runners started from
	// API handlers attach to it, not to the request.
	baseCtx context.Context
}

// NewServer creates a gateway server.
func NewServer(cfg *config.Config, eventPub bus.EventPublisher, wh *webhook.Handler,
	campaigns *campaign.Registry, tracker *leads.Tracker, channels store.ChannelStore) *Server {

	s := &Server{
		cfg:       cfg,
		eventPub:  eventPub,
		webhook:   wh,
		campaigns: campaigns,
		tracker:   tracker,
		channels:  channels,
		clients:   make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin validates the WebSocket Origin header against the allowed
// origins list. No configured origins, or an empty header (non-browser
// clients), allows the connection.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Gateway.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("websocket origin rejected", "origin", origin)
	return false
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()

	mux.Handle("POST /webhook/{channel}", s.webhook)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/campaigns", s.auth(s.handleCampaignList))
	mux.HandleFunc("POST /api/campaigns", s.auth(s.handleCampaignSubmit))
	mux.HandleFunc("GET /api/campaigns/{id}", s.auth(s.handleCampaignGet))
	mux.HandleFunc("POST /api/campaigns/{id}/start", s.auth(s.handleCampaignStart))
	mux.HandleFunc("POST /api/campaigns/{id}/pause", s.auth(s.handleCampaignPause))
	mux.HandleFunc("POST /api/campaigns/{id}/resume", s.auth(s.handleCampaignResume))
	mux.HandleFunc("POST /api/campaigns/{id}/cancel", s.auth(s.handleCampaignCancel))

	mux.HandleFunc("GET /api/leads", s.auth(s.handleLeadList))
	mux.HandleFunc("POST /api/leads/{channel}/{contact}/resume", s.auth(s.handleLeadResume))

	s.mux = mux
	return mux
}

func (s *Server) runCtx() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("gateway starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.wsAuthorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn)
	s.registerClient(client)
	defer func() {
		s.unregisterClient(client)
		client.Close()
	}()

	client.Run(r.Context())
}

// wsAuthorized checks the gateway token on the upgrade request. Browser
// WebSocket clients cannot set request headers, so a token query parameter
// is accepted alongside the bearer header.
func (s *Server) wsAuthorized(r *http.Request) bool {
	want := s.cfg.Gateway.Token
	if want == "" {
		return true
	}
	if extractBearerToken(r) == want {
		return true
	}
	return r.URL.Query().Get("token") == want
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c

	s.eventPub.Subscribe(c.id, func(event bus.Event) {
		c.SendEvent(event)
	})
	slog.Info("client connected", "id", c.id)
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.id)
	s.eventPub.Unsubscribe(c.id)
	slog.Info("client disconnected", "id", c.id)
}

// StartTestServer listens on a random port and returns the address plus a
// start function. Used by integration tests.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	s.baseCtx = ctx
	mux := s.BuildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		s.httpServer.Serve(ln)
	}
	return addr, start
}
