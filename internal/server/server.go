// Package server implements the HTTP trigger surface consumed by the UI
// and CLI layers.
//
// Routes:
//
//	GET  /health                              → liveness probe
//	POST /api/sync                            → run one incremental sync pass
//	GET  /api/sync/history                    → recent sync-job outcomes
//	GET  /api/sync/checkpoints                → per-category sync progress
//	GET  /api/opportunities                   → list with filters
//	GET  /api/opportunities/{id}              → one opportunity + its matches
//	POST /api/opportunities/{id}/analyze      → score against all active capabilities
//	POST /api/opportunities/{id}/status       → set OPEN/WON/LOST
//	GET  /api/matches/high                    → persisted matches above threshold
//	GET  /api/capabilities                    → list capabilities
//	POST /api/capabilities                    → create capability
//	PUT  /api/capabilities/{id}               → update capability
//	GET  /api/statistics                      → aggregate counts
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"samscout/opportunity-service/internal/match"
	"samscout/opportunity-service/internal/model"
	"samscout/opportunity-service/internal/scheduler"
	"samscout/opportunity-service/internal/store"
)

// SyncTrigger runs one sync pass under the shared run lock.
type SyncTrigger interface {
	TriggerSync(ctx context.Context) (*model.SyncReport, error)
}

// Analyzer is the matching engine surface the handlers call.
type Analyzer interface {
	Analyze(ctx context.Context, noticeID string) ([]model.Match, error)
	HighMatches(ctx context.Context, threshold float64, limit int) ([]model.Match, error)
}

// Storage is the subset of the store the handlers read from.
type Storage interface {
	GetOpportunity(ctx context.Context, noticeID string) (*model.Opportunity, error)
	ListOpportunities(ctx context.Context, f store.OpportunityFilter) ([]model.Opportunity, error)
	SetOpportunityStatus(ctx context.Context, noticeID string, status model.Status) (bool, error)
	MatchesForOpportunity(ctx context.Context, noticeID string) ([]model.Match, error)
	ListCapabilities(ctx context.Context, activeOnly bool) ([]model.Capability, error)
	GetCapability(ctx context.Context, id string) (*model.Capability, error)
	CreateCapability(ctx context.Context, c *model.Capability) (string, error)
	UpdateCapability(ctx context.Context, c *model.Capability) (bool, error)
	RecentSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
	ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error)
	Statistics(ctx context.Context) (*model.Statistics, error)
}

// Handler holds shared dependencies.
type Handler struct {
	storage  Storage
	trigger  SyncTrigger
	analyzer Analyzer
	logger   *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(storage Storage, trigger SyncTrigger, analyzer Analyzer, logger *zap.Logger) *Handler {
	return &Handler{storage: storage, trigger: trigger, analyzer: analyzer, logger: logger}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/sync", h.handleSync)
	mux.HandleFunc("/api/sync/history", h.handleSyncHistory)
	mux.HandleFunc("/api/sync/checkpoints", h.handleCheckpoints)
	mux.HandleFunc("/api/opportunities", h.handleOpportunities)
	mux.HandleFunc("/api/opportunities/", h.handleOpportunityAction)
	mux.HandleFunc("/api/matches/high", h.handleHighMatches)
	mux.HandleFunc("/api/capabilities", h.handleCapabilities)
	mux.HandleFunc("/api/capabilities/", h.handleCapabilityUpdate)
	mux.HandleFunc("/api/statistics", h.handleStatistics)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "opportunity-service",
	})
}

// ─── Sync ────────────────────────────────────────────────────────────────────

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.trigger.TriggerSync(r.Context())
	if errors.Is(err, scheduler.ErrSyncInProgress) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("sync trigger failed", zap.Error(err))
		// A total failure still carries a report worth returning.
		if report != nil {
			jsonData(w, report)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	jsonData(w, report)
}

func (h *Handler) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := queryInt(r, "limit", 10)
	runs, err := h.storage.RecentSyncRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("sync history query failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonData(w, runs)
}

func (h *Handler) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cps, err := h.storage.ListCheckpoints(r.Context())
	if err != nil {
		h.logger.Error("checkpoint query failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonData(w, cps)
}

// ─── Opportunities ───────────────────────────────────────────────────────────

func (h *Handler) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f := store.OpportunityFilter{
		NAICS:            r.URL.Query().Get("naics"),
		Agency:           r.URL.Query().Get("agency"),
		SetAside:         r.URL.Query().Get("set_aside"),
		PostedWithinDays: queryInt(r, "days", 0),
		Limit:            queryInt(r, "limit", 100),
		Skip:             queryInt(r, "skip", 0),
	}

	opps, err := h.storage.ListOpportunities(r.Context(), f)
	if err != nil {
		h.logger.Error("opportunity list failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonData(w, opps)
}

// handleOpportunityAction handles /api/opportunities/{id}[/analyze|/status]
func (h *Handler) handleOpportunityAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.getOpportunity(w, r, parts[1])
	case len(parts) == 3 && parts[2] == "analyze" && r.Method == http.MethodPost:
		h.analyzeOpportunity(w, r, parts[1])
	case len(parts) == 3 && parts[2] == "status" && r.Method == http.MethodPost:
		h.setOpportunityStatus(w, r, parts[1])
	default:
		jsonError(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) getOpportunity(w http.ResponseWriter, r *http.Request, noticeID string) {
	opp, err := h.storage.GetOpportunity(r.Context(), noticeID)
	if err != nil {
		h.logger.Error("opportunity lookup failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	if opp == nil {
		jsonError(w, "opportunity not found", http.StatusNotFound)
		return
	}

	matches, err := h.storage.MatchesForOpportunity(r.Context(), noticeID)
	if err != nil {
		h.logger.Error("match lookup failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonData(w, map[string]any{
		"opportunity": opp,
		"matches":     matches,
	})
}

func (h *Handler) analyzeOpportunity(w http.ResponseWriter, r *http.Request, noticeID string) {
	matches, err := h.analyzer.Analyze(r.Context(), noticeID)
	if errors.Is(err, match.ErrOpportunityNotFound) {
		jsonError(w, "opportunity not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("analysis failed", zap.String("notice_id", noticeID), zap.Error(err))
		jsonError(w, "analysis failed", http.StatusInternalServerError)
		return
	}
	jsonData(w, matches)
}

func (h *Handler) setOpportunityStatus(w http.ResponseWriter, r *http.Request, noticeID string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status := model.Status(strings.ToUpper(body.Status))
	switch status {
	case model.StatusOpen, model.StatusWon, model.StatusLost:
	default:
		jsonError(w, fmt.Sprintf("invalid status %q", body.Status), http.StatusBadRequest)
		return
	}

	found, err := h.storage.SetOpportunityStatus(r.Context(), noticeID, status)
	if err != nil {
		h.logger.Error("status update failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	if !found {
		jsonError(w, "opportunity not found", http.StatusNotFound)
		return
	}
	jsonData(w, map[string]string{"noticeId": noticeID, "status": string(status)})
}

// ─── Matches ─────────────────────────────────────────────────────────────────

func (h *Handler) handleHighMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threshold := queryFloat(r, "threshold", 70)
	limit := queryInt(r, "limit", 50)

	matches, err := h.analyzer.HighMatches(r.Context(), threshold, limit)
	if err != nil {
		h.logger.Error("high matches query failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonData(w, matches)
}

// ─── Capabilities ────────────────────────────────────────────────────────────

func (h *Handler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") != "false"
		caps, err := h.storage.ListCapabilities(r.Context(), activeOnly)
		if err != nil {
			h.logger.Error("capability list failed", zap.Error(err))
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonData(w, caps)

	case http.MethodPost:
		var c model.Capability
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if c.Name == "" {
			jsonError(w, "name is required", http.StatusBadRequest)
			return
		}
		c.Active = true
		id, err := h.storage.CreateCapability(r.Context(), &c)
		if err != nil {
			h.logger.Error("capability create failed", zap.Error(err))
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonData(w, map[string]string{"id": id})

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCapabilityUpdate handles PUT /api/capabilities/{id}
func (h *Handler) handleCapabilityUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/capabilities/")
	if id == "" || strings.Contains(id, "/") {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	var c model.Capability
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c.ID = id

	found, err := h.storage.UpdateCapability(r.Context(), &c)
	if err != nil {
		h.logger.Error("capability update failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	if !found {
		jsonError(w, "capability not found", http.StatusNotFound)
		return
	}
	jsonData(w, map[string]string{"id": id})
}

// ─── Statistics ──────────────────────────────────────────────────────────────

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.storage.Statistics(r.Context())
	if err != nil {
		h.logger.Error("statistics query failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonData(w, stats)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
