// Package model defines shared data structures for the opportunity service.
package model

import (
	"encoding/json"
	"time"
)

// Status of an opportunity in the pipeline. Opportunities are never deleted;
// status is the only field a human mutates.
type Status string

const (
	StatusOpen Status = "OPEN"
	StatusWon  Status = "WON"
	StatusLost Status = "LOST"
)

// Opportunity is a normalised contracting opportunity fetched from SAM.gov.
// The full upstream payload is kept in Raw (stored as JSONB) for audit and
// detail views.
type Opportunity struct {
	NoticeID    string          `json:"noticeId"`
	Title       string          `json:"title"`
	Agency      string          `json:"agency"`
	PostedDate  *time.Time      `json:"postedDate,omitempty"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Type        string          `json:"type,omitempty"`
	SetAside    string          `json:"setAside,omitempty"`
	NAICS       string          `json:"naics,omitempty"`
	NAICSDesc   string          `json:"naicsDesc,omitempty"`
	URL         string          `json:"url,omitempty"`
	Description string          `json:"description,omitempty"`
	Raw         json.RawMessage `json:"rawData,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Capability is an organisation-defined profile used to score opportunity
// relevance. Created and edited by the capability-management UI; read-only
// to the matching engine.
type Capability struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Keywords           []string  `json:"keywords"`
	NAICSCodes         []string  `json:"naicsCodes"`
	PreferredAgencies  []string  `json:"preferredAgencies"`
	PreferredSetAsides []string  `json:"preferredSetAsides"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// MatchDetails records which scoring dimensions were satisfied. It is
// serialised as JSONB alongside the score and consumed by the UI layer.
type MatchDetails struct {
	KeywordMatches []string `json:"keywordMatches"`
	NAICSMatch     bool     `json:"naicsMatch"`
	AgencyMatch    bool     `json:"agencyMatch"`
	SetAsideMatch  bool     `json:"setAsideMatch"`
}

// Match is the scored pairing of one opportunity and one capability.
// Uniquely keyed by (OpportunityID, CapabilityID); re-analysis replaces the
// row rather than appending history.
type Match struct {
	OpportunityID  string       `json:"opportunityId"`
	CapabilityID   string       `json:"capabilityId"`
	CapabilityName string       `json:"capabilityName"`
	Score          float64      `json:"score"`
	Details        MatchDetails `json:"details"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Checkpoint is the persisted sync progress marker for one NAICS category.
// LastSyncedThrough only moves forward; a failed pass leaves it untouched.
// LastOffset is non-zero when the per-run cap interrupted pagination and the
// category must resume mid-window.
type Checkpoint struct {
	Category          string    `json:"category"`
	LastSyncedThrough time.Time `json:"lastSyncedThrough"`
	LastOffset        int       `json:"lastOffset"`
	LastRunCount      int       `json:"lastRunCount"`
	LastRunAt         time.Time `json:"lastRunAt"`
}

// CategoryState tracks where a category is in the sync pass state machine.
type CategoryState string

const (
	CategoryPending  CategoryState = "PENDING"
	CategoryFetching CategoryState = "FETCHING"
	CategorySuccess  CategoryState = "SUCCESS"
	CategoryFailed   CategoryState = "FAILED"
)

// CategoryResult is the per-category outcome of one sync pass.
type CategoryResult struct {
	Code      string        `json:"code"`
	State     CategoryState `json:"state"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// SyncReport summarises one sync pass across all configured categories.
type SyncReport struct {
	StartedAt      time.Time        `json:"startedAt"`
	FinishedAt     time.Time        `json:"finishedAt"`
	Categories     []CategoryResult `json:"categories"`
	TotalProcessed int              `json:"totalProcessed"`
	TotalSkipped   int              `json:"totalSkipped"`
	TotalFailed    int              `json:"totalFailed"`
	Capped         bool             `json:"capped"`
}

// FailedCategories returns the codes of categories that did not complete.
func (r *SyncReport) FailedCategories() []string {
	var failed []string
	for _, c := range r.Categories {
		if c.State == CategoryFailed {
			failed = append(failed, c.Code)
		}
	}
	return failed
}

// SyncRun is one row of the persisted sync-job history.
type SyncRun struct {
	ID         string      `json:"id"`
	ExecutedAt time.Time   `json:"executedAt"`
	Status     string      `json:"status"`
	Report     *SyncReport `json:"report,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Statistics is the aggregate database summary returned by /api/statistics.
type Statistics struct {
	TotalOpportunities int64 `json:"totalOpportunities"`
	TotalCapabilities  int64 `json:"totalCapabilities"`
	ActiveCapabilities int64 `json:"activeCapabilities"`
	TotalMatches       int64 `json:"totalMatches"`
	HighMatches        int64 `json:"highMatches"`
}
