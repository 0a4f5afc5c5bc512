// Package ingest implements the sync pipeline: normalising raw SAM.gov
// records and driving the fetch → transform → upsert loop across all
// configured NAICS categories.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"samscout/opportunity-service/internal/model"
	"samscout/opportunity-service/internal/samgov"
)

// ValidationError marks a raw record that cannot be normalised. The record
// is skipped and counted; the pass continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Reason)
}

// dateLayouts tolerated in upstream date strings. SAM.gov mixes full
// timestamps and bare dates depending on the field and notice age.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Transform normalises one raw SAM.gov record into an Opportunity.
// Pure function: a record without a notice ID is rejected with a
// *ValidationError; every other missing field degrades to empty/nil.
// The raw payload is preserved unmodified for audit and detail views.
func Transform(raw json.RawMessage) (*model.Opportunity, error) {
	var rec samgov.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: err.Error()}
	}

	if rec.NoticeID == "" {
		return nil, &ValidationError{Field: "noticeId", Reason: "missing unique external identifier"}
	}

	return &model.Opportunity{
		NoticeID:    rec.NoticeID,
		Title:       rec.Title,
		Agency:      agencyDisplay(rec),
		PostedDate:  parseDate(rec.PostedDate),
		DueDate:     parseDate(rec.ResponseDeadLine),
		Type:        rec.Type,
		SetAside:    rec.TypeOfSetAside,
		NAICS:       rec.NaicsCode,
		URL:         rec.UILink,
		Description: rec.Description,
		Raw:         raw,
		Status:      model.StatusOpen,
	}, nil
}

// agencyDisplay flattens the nested department / sub-tier / office fields
// into one display string, falling back to the upstream full path.
func agencyDisplay(rec samgov.Record) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{rec.Department, rec.SubTier, rec.Office} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return rec.FullParentPathName
	}
	return strings.Join(parts, " / ")
}

// parseDate returns nil for empty or malformed date strings rather than
// failing the whole record.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
