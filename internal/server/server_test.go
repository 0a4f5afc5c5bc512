package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"samscout/opportunity-service/internal/match"
	"samscout/opportunity-service/internal/model"
	"samscout/opportunity-service/internal/scheduler"
	"samscout/opportunity-service/internal/store"
)

// ── fakes ──

type fakeStorage struct {
	opps map[string]*model.Opportunity
	caps map[string]*model.Capability

	createdCap *model.Capability
	setStatus  model.Status
}

func (f *fakeStorage) GetOpportunity(_ context.Context, id string) (*model.Opportunity, error) {
	return f.opps[id], nil
}

func (f *fakeStorage) ListOpportunities(_ context.Context, _ store.OpportunityFilter) ([]model.Opportunity, error) {
	var out []model.Opportunity
	for _, o := range f.opps {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeStorage) SetOpportunityStatus(_ context.Context, id string, s model.Status) (bool, error) {
	if _, ok := f.opps[id]; !ok {
		return false, nil
	}
	f.setStatus = s
	return true, nil
}

func (f *fakeStorage) MatchesForOpportunity(context.Context, string) ([]model.Match, error) {
	return []model.Match{}, nil
}

func (f *fakeStorage) ListCapabilities(context.Context, bool) ([]model.Capability, error) {
	var out []model.Capability
	for _, c := range f.caps {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStorage) GetCapability(_ context.Context, id string) (*model.Capability, error) {
	return f.caps[id], nil
}

func (f *fakeStorage) CreateCapability(_ context.Context, c *model.Capability) (string, error) {
	f.createdCap = c
	return "new-id", nil
}

func (f *fakeStorage) UpdateCapability(_ context.Context, c *model.Capability) (bool, error) {
	_, ok := f.caps[c.ID]
	return ok, nil
}

func (f *fakeStorage) RecentSyncRuns(context.Context, int) ([]model.SyncRun, error) {
	return []model.SyncRun{}, nil
}

func (f *fakeStorage) ListCheckpoints(context.Context) ([]model.Checkpoint, error) {
	return []model.Checkpoint{}, nil
}

func (f *fakeStorage) Statistics(context.Context) (*model.Statistics, error) {
	return &model.Statistics{TotalOpportunities: 5}, nil
}

type fakeTrigger struct {
	report *model.SyncReport
	err    error
}

func (f *fakeTrigger) TriggerSync(context.Context) (*model.SyncReport, error) {
	return f.report, f.err
}

type fakeAnalyzer struct {
	matches []model.Match
	err     error

	threshold float64
	limit     int
}

func (f *fakeAnalyzer) Analyze(context.Context, string) ([]model.Match, error) {
	return f.matches, f.err
}

func (f *fakeAnalyzer) HighMatches(_ context.Context, threshold float64, limit int) ([]model.Match, error) {
	f.threshold = threshold
	f.limit = limit
	return f.matches, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func serve(t *testing.T, h *Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func newTestHandler(st *fakeStorage, trig *fakeTrigger, an *fakeAnalyzer) *Handler {
	if st == nil {
		st = &fakeStorage{opps: map[string]*model.Opportunity{}, caps: map[string]*model.Capability{}}
	}
	if trig == nil {
		trig = &fakeTrigger{report: &model.SyncReport{}}
	}
	if an == nil {
		an = &fakeAnalyzer{matches: []model.Match{}}
	}
	return NewHandler(st, trig, an, zap.NewNop())
}

// ── tests ──

func TestHealth(t *testing.T) {
	rec, _ := serve(t, newTestHandler(nil, nil, nil), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSyncTrigger(t *testing.T) {
	trig := &fakeTrigger{report: &model.SyncReport{TotalProcessed: 7}}
	rec, env := serve(t, newTestHandler(nil, trig, nil), http.MethodPost, "/api/sync", "")

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, success = %v", rec.Code, env.Success)
	}

	var report model.SyncReport
	json.Unmarshal(env.Data, &report)
	if report.TotalProcessed != 7 {
		t.Errorf("TotalProcessed = %d, want 7", report.TotalProcessed)
	}
}

func TestSyncConflictWhenRunning(t *testing.T) {
	trig := &fakeTrigger{err: scheduler.ErrSyncInProgress}
	rec, env := serve(t, newTestHandler(nil, trig, nil), http.MethodPost, "/api/sync", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if env.Success {
		t.Error("success = true, want false")
	}
}

func TestSyncTotalFailureStillReturnsReport(t *testing.T) {
	trig := &fakeTrigger{
		report: &model.SyncReport{Categories: []model.CategoryResult{{Code: "111", State: model.CategoryFailed}}},
		err:    errors.New("sync pass failed for every category"),
	}
	rec, env := serve(t, newTestHandler(nil, trig, nil), http.MethodPost, "/api/sync", "")

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, want report despite total failure", rec.Code)
	}
}

func TestSyncRequiresPost(t *testing.T) {
	rec, _ := serve(t, newTestHandler(nil, nil, nil), http.MethodGet, "/api/sync", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestGetOpportunity(t *testing.T) {
	st := &fakeStorage{
		opps: map[string]*model.Opportunity{"N-001": {NoticeID: "N-001", Title: "cloud"}},
	}
	rec, env := serve(t, newTestHandler(st, nil, nil), http.MethodGet, "/api/opportunities/N-001", "")

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload struct {
		Opportunity model.Opportunity `json:"opportunity"`
		Matches     []model.Match     `json:"matches"`
	}
	json.Unmarshal(env.Data, &payload)
	if payload.Opportunity.NoticeID != "N-001" {
		t.Errorf("NoticeID = %q", payload.Opportunity.NoticeID)
	}
}

func TestGetOpportunityNotFound(t *testing.T) {
	rec, _ := serve(t, newTestHandler(nil, nil, nil), http.MethodGet, "/api/opportunities/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAnalyzeUnknownOpportunity(t *testing.T) {
	an := &fakeAnalyzer{err: match.ErrOpportunityNotFound}
	rec, _ := serve(t, newTestHandler(nil, nil, an), http.MethodPost, "/api/opportunities/ghost/analyze", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetOpportunityStatus(t *testing.T) {
	st := &fakeStorage{
		opps: map[string]*model.Opportunity{"N-001": {NoticeID: "N-001"}},
	}
	rec, _ := serve(t, newTestHandler(st, nil, nil), http.MethodPost,
		"/api/opportunities/N-001/status", `{"status": "won"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if st.setStatus != model.StatusWon {
		t.Errorf("status = %q, want WON (lowercase input accepted)", st.setStatus)
	}
}

func TestSetOpportunityStatusRejectsUnknown(t *testing.T) {
	st := &fakeStorage{
		opps: map[string]*model.Opportunity{"N-001": {NoticeID: "N-001"}},
	}
	rec, _ := serve(t, newTestHandler(st, nil, nil), http.MethodPost,
		"/api/opportunities/N-001/status", `{"status": "MAYBE"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHighMatchesDefaults(t *testing.T) {
	an := &fakeAnalyzer{matches: []model.Match{}}
	rec, _ := serve(t, newTestHandler(nil, nil, an), http.MethodGet, "/api/matches/high", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if an.threshold != 70 || an.limit != 50 {
		t.Errorf("threshold=%v limit=%d, want defaults 70/50", an.threshold, an.limit)
	}
}

func TestHighMatchesQueryParams(t *testing.T) {
	an := &fakeAnalyzer{matches: []model.Match{}}
	serve(t, newTestHandler(nil, nil, an), http.MethodGet, "/api/matches/high?threshold=85.5&limit=5", "")

	if an.threshold != 85.5 || an.limit != 5 {
		t.Errorf("threshold=%v limit=%d, want 85.5/5", an.threshold, an.limit)
	}
}

func TestCreateCapability(t *testing.T) {
	st := &fakeStorage{caps: map[string]*model.Capability{}}
	rec, env := serve(t, newTestHandler(st, nil, nil), http.MethodPost,
		"/api/capabilities", `{"name": "Cloud", "keywords": ["cloud"]}`)

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d", rec.Code)
	}
	if st.createdCap == nil || !st.createdCap.Active {
		t.Error("created capability should default to active")
	}
}

func TestCreateCapabilityRequiresName(t *testing.T) {
	rec, _ := serve(t, newTestHandler(nil, nil, nil), http.MethodPost,
		"/api/capabilities", `{"keywords": ["cloud"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateCapabilityNotFound(t *testing.T) {
	rec, _ := serve(t, newTestHandler(nil, nil, nil), http.MethodPut,
		"/api/capabilities/ghost", `{"name": "X"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStatistics(t *testing.T) {
	rec, env := serve(t, newTestHandler(nil, nil, nil), http.MethodGet, "/api/statistics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats model.Statistics
	json.Unmarshal(env.Data, &stats)
	if stats.TotalOpportunities != 5 {
		t.Errorf("TotalOpportunities = %d, want 5", stats.TotalOpportunities)
	}
}
