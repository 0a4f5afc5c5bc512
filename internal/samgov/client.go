// Package samgov implements the client for the SAM.gov opportunities
// search API: bounded paginated fetches and the call throttle.
package samgov

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"samscout/opportunity-service/internal/config"
)

const (
	// MaxPageSize is the largest page the search endpoint serves without
	// throttling the caller.
	MaxPageSize = 90

	httpTimeout = 15 * time.Second

	// SAM.gov expects US-style dates in query parameters.
	dateParamLayout = "01/02/2006"
)

// Client fetches opportunity pages from the SAM.gov search API.
// It performs exactly one outbound call per FetchPage; pagination and retry
// policy belong to the caller.
type Client struct {
	apiKey  string
	baseURL string
	logger  *zap.Logger
	client  *http.Client
}

// NewClient constructs a Client with a shared HTTP client.
func NewClient(cfg config.SAMConfig, logger *zap.Logger) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		logger:  logger,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Query describes one bounded page request.
type Query struct {
	NAICS  string
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}

// Page is one page of raw opportunity records plus the total available for
// the query. Records are kept as raw JSON so the full payload survives into
// storage unmodified.
type Page struct {
	Records []json.RawMessage
	Total   int
}

// searchResponse mirrors the top-level SAM.gov search JSON.
type searchResponse struct {
	TotalRecords      int               `json:"totalRecords"`
	OpportunitiesData []json.RawMessage `json:"opportunitiesData"`
}

// Record mirrors the upstream fields of a single SAM.gov opportunity that
// the service normalises. Unknown fields are preserved through the raw
// payload, not here.
type Record struct {
	NoticeID           string `json:"noticeId"`
	Title              string `json:"title"`
	Department         string `json:"department"`
	SubTier            string `json:"subTier"`
	Office             string `json:"office"`
	FullParentPathName string `json:"fullParentPathName"`
	PostedDate         string `json:"postedDate"`
	ResponseDeadLine   string `json:"responseDeadLine"`
	Type               string `json:"type"`
	TypeOfSetAside     string `json:"typeOfSetAside"`
	NaicsCode          string `json:"naicsCode"`
	UILink             string `json:"uiLink"`
	Description        string `json:"description"`
}

// FetchPage performs a single paginated request. Limit is clamped to
// MaxPageSize. Network failures, non-200 responses and malformed payloads
// all surface as a *FetchError; nothing is retried here.
func (c *Client) FetchPage(ctx context.Context, q Query) (*Page, error) {
	limit := q.Limit
	if limit < 1 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("postedFrom", q.From.Format(dateParamLayout))
	params.Set("postedTo", q.To.Format(dateParamLayout))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.NAICS != "" {
		params.Set("ncode", q.NAICS)
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Category: q.NAICS, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching page",
		zap.String("naics", q.NAICS),
		zap.Int("offset", q.Offset),
		zap.Int("limit", limit),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Category: q.NAICS, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Category: q.NAICS, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Category: q.NAICS,
			Status:   resp.StatusCode,
			Body:     truncate(string(body), 512),
		}
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &FetchError{Category: q.NAICS, Status: resp.StatusCode, Err: err}
	}

	return &Page{
		Records: apiResp.OpportunitiesData,
		Total:   apiResp.TotalRecords,
	}, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
