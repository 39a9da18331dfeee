package discovery

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		NewTelegramRecord("http://a.onion", "ch", t0.Add(2*time.Hour)),
		NewTelegramRecord("http://b.onion", "ch", t0),
		NewTelegramRecord("http://a.onion", "ch", t0.Add(time.Hour)),
		NewTelegramRecord("http://c.onion", "ch", t0.Add(5*time.Hour)),
		NewTelegramRecord("http://c.onion", "ch", t0.Add(6*time.Hour)),
		NewTelegramRecord("http://c.onion", "ch", t0.Add(3*time.Hour)),
		{Source: "manual", URL: "http://d.onion", DiscoveredAt: "garbage", Status: "checked"},
	}

	s := Summarize(records, 5)

	if s.Records != 7 {
		t.Errorf("records = %d, want 7", s.Records)
	}
	if s.UniqueURLs != 4 {
		t.Errorf("unique = %d, want 4", s.UniqueURLs)
	}
	if s.ByStatus["pending"] != 6 || s.ByStatus["checked"] != 1 {
		t.Errorf("by status = %v", s.ByStatus)
	}
	if s.BySource["telegram"] != 6 || s.BySource["manual"] != 1 {
		t.Errorf("by source = %v", s.BySource)
	}
	if !s.First.Equal(t0) {
		t.Errorf("first = %v, want %v", s.First, t0)
	}
	if !s.Last.Equal(t0.Add(6 * time.Hour)) {
		t.Errorf("last = %v", s.Last)
	}
	if len(s.TopURLs) != 2 {
		t.Fatalf("top urls = %v, want 2 entries", s.TopURLs)
	}
	if s.TopURLs[0] != (URLCount{URL: "http://c.onion", Count: 3}) {
		t.Errorf("top[0] = %+v", s.TopURLs[0])
	}
	if s.TopURLs[1] != (URLCount{URL: "http://a.onion", Count: 2}) {
		t.Errorf("top[1] = %+v", s.TopURLs[1])
	}
}

func TestSummarize_TopNLimit(t *testing.T) {
	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	var records []Record
	for _, u := range []string{"http://a.onion", "http://b.onion", "http://c.onion"} {
		records = append(records, NewTelegramRecord(u, "ch", t0), NewTelegramRecord(u, "ch", t0))
	}

	s := Summarize(records, 1)
	if len(s.TopURLs) != 1 {
		t.Fatalf("top urls = %v, want 1 entry", s.TopURLs)
	}
	if s.TopURLs[0].URL != "http://a.onion" {
		t.Errorf("tie should sort by url, got %q", s.TopURLs[0].URL)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 5)
	if s.Records != 0 || s.UniqueURLs != 0 {
		t.Errorf("summary = %+v, want empty", s)
	}
	if !s.First.IsZero() || !s.Last.IsZero() {
		t.Error("expected zero first/last")
	}
}
