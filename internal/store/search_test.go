package store

import (
	"context"
	"testing"

	"github.com/runmat-org/otell/internal/model"
)

func seedSearchLogs(t *testing.T, s *Store) {
	t.Helper()
	logs := []model.LogRecord{
		{Ts: 1, Service: "api", Severity: model.SeverityInfo, Body: "starting up"},
		{Ts: 2, Service: "api", Severity: model.SeverityError, Body: "connection refused"},
		{Ts: 3, Service: "api", Severity: model.SeverityInfo, Body: "request handled"},
		{Ts: 4, Service: "worker", Severity: model.SeverityWarn, Body: "queue backlog growing"},
		{Ts: 5, Service: "worker", Severity: model.SeverityError, Body: "connection refused again"},
	}
	if err := s.InsertLogs(context.Background(), logs); err != nil {
		t.Fatalf("InsertLogs: %v", err)
	}
}

func TestSearchFixedSubstring(t *testing.T) {
	s := newTestStore(t)
	seedSearchLogs(t, s)

	resp, err := s.Search(context.Background(), model.SearchRequest{Pattern: "connection refused", Fixed: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("Total = %d, want 2", resp.Total)
	}
	for _, hit := range resp.Records {
		if !hit.IsMatch {
			t.Errorf("unexpected non-match hit %+v with no context requested", hit)
		}
	}
}

func TestSearchCountOnlySkipsRecords(t *testing.T) {
	s := newTestStore(t)
	seedSearchLogs(t, s)

	resp, err := s.Search(context.Background(), model.SearchRequest{Pattern: "connection", Fixed: true, CountOnly: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("Total = %d, want 2", resp.Total)
	}
	if resp.Records != nil {
		t.Errorf("Records = %v, want nil under CountOnly", resp.Records)
	}
}

func TestSearchContextLinesExpandsWindow(t *testing.T) {
	s := newTestStore(t)
	seedSearchLogs(t, s)

	resp, err := s.Search(context.Background(), model.SearchRequest{
		Pattern: "queue backlog growing", Fixed: true, ContextLines: 1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// match at ts=4; ±1 context pulls ts=3 and ts=5.
	if len(resp.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3", len(resp.Records))
	}
	if resp.Records[0].Record.Ts != 3 || resp.Records[1].Record.Ts != 4 || resp.Records[2].Record.Ts != 5 {
		t.Errorf("unexpected record order: %+v", resp.Records)
	}
	if !resp.Records[1].IsMatch || resp.Records[0].IsMatch || resp.Records[2].IsMatch {
		t.Errorf("IsMatch flags wrong: %+v", resp.Records)
	}
}

func TestSearchLimitAppliesToMatchesBeforeContext(t *testing.T) {
	s := newTestStore(t)
	seedSearchLogs(t, s)

	resp, err := s.Search(context.Background(), model.SearchRequest{
		Pattern: "connection", Fixed: true, Limit: 1, ContextLines: 1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Two matches exist (ts=2, ts=5); limit=1 must bound the match set
	// to one before context expansion, not truncate the combined
	// match+context set down to one record.
	matches := 0
	for _, hit := range resp.Records {
		if hit.IsMatch {
			matches++
		}
	}
	if matches != 1 {
		t.Errorf("matches = %d, want 1 (limit applied to matches, not combined set)", matches)
	}
	// the single match at ts=2 plus its ±1 context (ts=1, ts=3).
	if len(resp.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3 (1 match + 2 context rows)", len(resp.Records))
	}
}

func TestSearchIncludeStatsCountsFullMatchSet(t *testing.T) {
	s := newTestStore(t)
	seedSearchLogs(t, s)

	resp, err := s.Search(context.Background(), model.SearchRequest{
		Pattern: "connection", Fixed: true, IncludeStats: true, Limit: 1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Stats == nil {
		t.Fatal("Stats is nil")
	}
	if resp.Stats.ByService["api"] != 1 || resp.Stats.ByService["worker"] != 1 {
		t.Errorf("ByService = %+v, want api:1 worker:1", resp.Stats.ByService)
	}
	if len(resp.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1 (Limit applied after stats)", len(resp.Records))
	}
}

func TestSearchRegexIgnoreCase(t *testing.T) {
	s := newTestStore(t)
	seedSearchLogs(t, s)

	resp, err := s.Search(context.Background(), model.SearchRequest{Pattern: "CONNECTION.*", IgnoreCase: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("Total = %d, want 2", resp.Total)
	}
}
