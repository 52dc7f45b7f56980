package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Gateway.Token != "" {
			if extractBearerToken(r) != s.cfg.Gateway.Token {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next(w, r)
	}
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

type submitCampaignRequest struct {
	TenantID        string                `json:"tenant_id"`
	ChannelID       string                `json:"channel_id"`
	Contacts        []store.Contact       `json:"contacts"`
	Content         store.CampaignContent `json:"content"`
	MinDelaySeconds int                   `json:"min_delay_seconds,omitempty"`
	MaxDelaySeconds int                   `json:"max_delay_seconds,omitempty"`

	// Start immediately after submission.
	Start bool `json:"start,omitempty"`
}

func (s *Server) handleCampaignSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	c, err := s.campaigns.Submit(req.TenantID, req.ChannelID, req.Contacts, req.Content,
		req.MinDelaySeconds, req.MaxDelaySeconds)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if req.Start {
		// The runner outlives this request, so it runs on the server's
		// context rather than the request's.
		if err := s.campaigns.Start(s.runCtx(), c.ID); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "id": c.ID})
			return
		}
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	list, err := s.campaigns.List(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": list})
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Get(r.PathValue("id"))
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCampaignStart(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Start(s.runCtx(), r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleCampaignPause(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Pause(r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pausing"})
}

func (s *Server) handleCampaignResume(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Resume(s.runCtx(), r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleCampaignCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Cancel(r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleLeadList(w http.ResponseWriter, r *http.Request) {
	list, err := s.tracker.List()
	if err != nil {
		writeStoreErr(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := list[:0]
		for _, rec := range list {
			if string(rec.Status) == status {
				filtered = append(filtered, rec)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": list})
}

func (s *Server) handleLeadResume(w http.ResponseWriter, r *http.Request) {
	channelID, contactID := r.PathValue("channel"), r.PathValue("contact")
	if err := s.tracker.Resume(channelID, contactID, time.Now()); err != nil {
		writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}
