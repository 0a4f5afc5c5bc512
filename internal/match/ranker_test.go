package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"samscout/opportunity-service/internal/model"
)

// ── fakes ──

type fakeStore struct {
	opps     map[string]*model.Opportunity
	caps     []model.Capability
	upserted []model.Match

	upsertErr error
}

func (f *fakeStore) GetOpportunity(_ context.Context, id string) (*model.Opportunity, error) {
	return f.opps[id], nil
}

func (f *fakeStore) ListOpportunityIDs(_ context.Context, _ int) ([]string, error) {
	ids := make([]string, 0, len(f.opps))
	for id := range f.opps {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) ListCapabilities(_ context.Context, _ bool) ([]model.Capability, error) {
	return f.caps, nil
}

func (f *fakeStore) UpsertMatch(_ context.Context, m *model.Match) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, *m)
	return nil
}

func (f *fakeStore) HighMatches(_ context.Context, threshold float64, limit int) ([]model.Match, error) {
	var out []model.Match
	for _, m := range f.upserted {
		if m.Score >= threshold {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestRanker(f *fakeStore) *Ranker {
	r := NewRanker(f, f, f, DefaultWeights, zap.NewNop())
	r.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

// ── tests ──

func TestAnalyzeSortsAndPersists(t *testing.T) {
	f := &fakeStore{
		opps: map[string]*model.Opportunity{
			"N-001": {
				NoticeID: "N-001",
				Title:    "cloud migration services",
				NAICS:    "541512",
			},
		},
		caps: []model.Capability{
			{ID: "c1", Name: "Zeta", Keywords: []string{"cloud"}},
			{ID: "c2", Name: "Alpha", Keywords: []string{"cloud"}},
			{ID: "c3", Name: "Mid", NAICSCodes: []string{"541512"}},
		},
	}

	matches, err := f.run(t)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}

	// c1 and c2 both score 40 (keyword), c3 scores 30 (naics). Ties break
	// by capability name ascending.
	wantOrder := []string{"Alpha", "Zeta", "Mid"}
	for i, name := range wantOrder {
		if matches[i].CapabilityName != name {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].CapabilityName, name)
		}
	}

	if len(f.upserted) != 3 {
		t.Errorf("persisted %d matches, want every pair", len(f.upserted))
	}
}

func (f *fakeStore) run(t *testing.T) ([]model.Match, error) {
	t.Helper()
	return newTestRanker(f).Analyze(context.Background(), "N-001")
}

func TestAnalyzeUnknownOpportunity(t *testing.T) {
	f := &fakeStore{opps: map[string]*model.Opportunity{}}

	_, err := newTestRanker(f).Analyze(context.Background(), "missing")
	if !errors.Is(err, ErrOpportunityNotFound) {
		t.Fatalf("err = %v, want ErrOpportunityNotFound", err)
	}
}

func TestAnalyzeUpsertFailure(t *testing.T) {
	f := &fakeStore{
		opps: map[string]*model.Opportunity{"N-001": {NoticeID: "N-001"}},
		caps: []model.Capability{{ID: "c1", Name: "A"}},

		upsertErr: errors.New("connection reset"),
	}

	if _, err := f.run(t); err == nil {
		t.Fatal("expected persistence error to surface")
	}
}

func TestAnalyzeBatchSkipsMissing(t *testing.T) {
	f := &fakeStore{
		opps: map[string]*model.Opportunity{
			"N-001": {NoticeID: "N-001", Title: "cloud"},
			"N-002": {NoticeID: "N-002", Title: "networking"},
		},
		caps: []model.Capability{{ID: "c1", Name: "A", Keywords: []string{"cloud"}}},
	}

	count, err := newTestRanker(f).AnalyzeBatch(context.Background(), []string{"N-001", "ghost", "N-002"})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 (missing id skipped)", count)
	}
}

func TestAnalyzeBatchEmptyIDsAnalyzesAll(t *testing.T) {
	f := &fakeStore{
		opps: map[string]*model.Opportunity{
			"N-001": {NoticeID: "N-001"},
			"N-002": {NoticeID: "N-002"},
			"N-003": {NoticeID: "N-003"},
		},
		caps: []model.Capability{{ID: "c1", Name: "A"}},
	}

	count, err := newTestRanker(f).AnalyzeBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want every stored opportunity", count)
	}
}

func TestHighMatchesDefaultLimit(t *testing.T) {
	f := &fakeStore{}
	for i := 0; i < 60; i++ {
		f.upserted = append(f.upserted, model.Match{Score: 90})
	}

	matches, err := newTestRanker(f).HighMatches(context.Background(), 70, 0)
	if err != nil {
		t.Fatalf("HighMatches: %v", err)
	}
	if len(matches) != defaultHighMatchLimit {
		t.Fatalf("got %d matches, want default limit %d", len(matches), defaultHighMatchLimit)
	}
}
