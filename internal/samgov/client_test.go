package samgov

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"

	"samscout/opportunity-service/internal/config"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.SAMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zap.NewNop())
}

func testQuery() Query {
	return Query{
		NAICS:  "541512",
		From:   time.Date(2026, 7, 21, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Offset: 10,
		Limit:  25,
	}
}

func TestFetchPageBuildsQuery(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"totalRecords": 2, "opportunitiesData": [{"noticeId": "a"}, {"noticeId": "b"}]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv).FetchPage(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	tests := []struct {
		param, want string
	}{
		{"api_key", "test-key"},
		{"ncode", "541512"},
		{"postedFrom", "07/21/2026"},
		{"postedTo", "08/20/2026"},
		{"offset", "10"},
		{"limit", "25"},
	}
	for _, tt := range tests {
		if got.Get(tt.param) != tt.want {
			t.Errorf("param %s = %q, want %q", tt.param, got.Get(tt.param), tt.want)
		}
	}

	if page.Total != 2 || len(page.Records) != 2 {
		t.Errorf("page = %d records / total %d, want 2/2", len(page.Records), page.Total)
	}
}

func TestFetchPageClampsLimit(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("limit")
		w.Write([]byte(`{"totalRecords": 0, "opportunitiesData": []}`))
	}))
	defer srv.Close()

	q := testQuery()
	q.Limit = 5000
	if _, err := newTestClient(srv).FetchPage(context.Background(), q); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if got != "90" {
		t.Errorf("limit = %q, want clamped to 90", got)
	}
}

func TestFetchPageErrorStatuses(t *testing.T) {
	tests := []struct {
		status    int
		temporary bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream says no", tt.status)
		}))

		_, err := newTestClient(srv).FetchPage(context.Background(), testQuery())
		srv.Close()

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("status %d: err = %v, want *FetchError", tt.status, err)
		}
		if fe.Status != tt.status {
			t.Errorf("status %d: FetchError.Status = %d", tt.status, fe.Status)
		}
		if fe.Temporary() != tt.temporary {
			t.Errorf("status %d: Temporary() = %v, want %v", tt.status, fe.Temporary(), tt.temporary)
		}
	}
}

func TestFetchPageMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>maintenance window</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPage(context.Background(), testQuery())

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
}

func TestFetchPageConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listens anymore

	_, err := newTestClient(srv).FetchPage(context.Background(), testQuery())

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if !fe.Temporary() {
		t.Error("transport failures should be temporary")
	}
}
