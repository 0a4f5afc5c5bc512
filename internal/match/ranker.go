package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"samscout/opportunity-service/internal/model"
)

// defaultHighMatchLimit caps the read path when the caller passes no limit.
const defaultHighMatchLimit = 50

// ErrOpportunityNotFound is returned when analysis is requested for an
// unknown notice ID.
var ErrOpportunityNotFound = errors.New("opportunity not found")

// OpportunityReader loads opportunities for analysis. GetOpportunity
// returns (nil, nil) when the notice ID is unknown.
type OpportunityReader interface {
	GetOpportunity(ctx context.Context, noticeID string) (*model.Opportunity, error)
	ListOpportunityIDs(ctx context.Context, limit int) ([]string, error)
}

// CapabilityLister lists the capabilities to score against.
type CapabilityLister interface {
	ListCapabilities(ctx context.Context, activeOnly bool) ([]model.Capability, error)
}

// MatchStore persists scored pairs and serves the read path.
type MatchStore interface {
	UpsertMatch(ctx context.Context, m *model.Match) error
	HighMatches(ctx context.Context, threshold float64, limit int) ([]model.Match, error)
}

// Ranker scores opportunities against all active capabilities and persists
// the results. Scores are recomputed only on analysis; the HighMatches read
// path serves whatever was last persisted.
type Ranker struct {
	opps    OpportunityReader
	caps    CapabilityLister
	matches MatchStore
	weights Weights
	logger  *zap.Logger

	now func() time.Time
}

// NewRanker constructs a Ranker using the given scoring weights.
func NewRanker(opps OpportunityReader, caps CapabilityLister, matches MatchStore, w Weights, logger *zap.Logger) *Ranker {
	return &Ranker{
		opps:    opps,
		caps:    caps,
		matches: matches,
		weights: w,
		logger:  logger,
		now:     time.Now,
	}
}

// Analyze scores one opportunity against every active capability, persists
// each pair result (replacing any previous score for the pair) and returns
// them sorted descending by score, ties broken by capability name
// ascending.
func (r *Ranker) Analyze(ctx context.Context, noticeID string) ([]model.Match, error) {
	opp, err := r.opps.GetOpportunity(ctx, noticeID)
	if err != nil {
		return nil, fmt.Errorf("loading opportunity %s: %w", noticeID, err)
	}
	if opp == nil {
		return nil, ErrOpportunityNotFound
	}

	capabilities, err := r.caps.ListCapabilities(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing capabilities: %w", err)
	}

	matches := make([]model.Match, 0, len(capabilities))
	for i := range capabilities {
		c := &capabilities[i]
		score, details := Score(opp, c, r.weights)

		m := model.Match{
			OpportunityID:  opp.NoticeID,
			CapabilityID:   c.ID,
			CapabilityName: c.Name,
			Score:          score,
			Details:        details,
			CreatedAt:      r.now().UTC(),
		}
		if err := r.matches.UpsertMatch(ctx, &m); err != nil {
			return nil, fmt.Errorf("saving match %s/%s: %w", m.OpportunityID, m.CapabilityID, err)
		}
		matches = append(matches, m)
	}

	sortMatches(matches)

	r.logger.Debug("opportunity analyzed",
		zap.String("notice_id", noticeID),
		zap.Int("capabilities", len(matches)),
	)

	return matches, nil
}

// AnalyzeBatch analyzes the given notice IDs, or every stored opportunity
// when ids is empty. Returns the number analyzed; a missing ID is skipped,
// not fatal.
func (r *Ranker) AnalyzeBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		var err error
		ids, err = r.opps.ListOpportunityIDs(ctx, 1000)
		if err != nil {
			return 0, fmt.Errorf("listing opportunities: %w", err)
		}
	}

	count := 0
	for _, id := range ids {
		if _, err := r.Analyze(ctx, id); err != nil {
			if errors.Is(err, ErrOpportunityNotFound) {
				continue
			}
			return count, err
		}
		count++
		if count%10 == 0 {
			r.logger.Info("batch analysis progress", zap.Int("analyzed", count))
		}
	}

	r.logger.Info("batch analysis complete", zap.Int("analyzed", count))
	return count, nil
}

// HighMatches returns previously persisted matches at or above threshold,
// sorted descending by score (capability name ascending on ties),
// truncated to limit. Staleness is expected: scores change only when an
// opportunity is re-analyzed.
func (r *Ranker) HighMatches(ctx context.Context, threshold float64, limit int) ([]model.Match, error) {
	if limit < 1 {
		limit = defaultHighMatchLimit
	}
	return r.matches.HighMatches(ctx, threshold, limit)
}

func sortMatches(ms []model.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].CapabilityName < ms[j].CapabilityName
	})
}
