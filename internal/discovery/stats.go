package discovery

import (
	"sort"
	"time"
)

// Summary aggregates a discovery log.
type Summary struct {
	Records    int
	UniqueURLs int
	ByStatus   map[string]int
	BySource   map[string]int
	First      time.Time
	Last       time.Time
	// TopURLs lists the most repeated URLs, most frequent first.
	TopURLs []URLCount
}

type URLCount struct {
	URL   string
	Count int
}

// Summarize computes counts over records, keeping up to topN repeated URLs.
func Summarize(records []Record, topN int) Summary {
	s := Summary{
		Records:  len(records),
		ByStatus: make(map[string]int),
		BySource: make(map[string]int),
	}

	counts := make(map[string]int)
	for _, r := range records {
		counts[r.URL]++
		s.ByStatus[r.Status]++
		s.BySource[r.Source]++

		ts := r.Time()
		if ts.IsZero() {
			continue
		}
		if s.First.IsZero() || ts.Before(s.First) {
			s.First = ts
		}
		if ts.After(s.Last) {
			s.Last = ts
		}
	}
	s.UniqueURLs = len(counts)

	for url, n := range counts {
		if n > 1 {
			s.TopURLs = append(s.TopURLs, URLCount{URL: url, Count: n})
		}
	}
	sort.Slice(s.TopURLs, func(i, j int) bool {
		if s.TopURLs[i].Count != s.TopURLs[j].Count {
			return s.TopURLs[i].Count > s.TopURLs[j].Count
		}
		return s.TopURLs[i].URL < s.TopURLs[j].URL
	})
	if topN >= 0 && len(s.TopURLs) > topN {
		s.TopURLs = s.TopURLs[:topN]
	}

	return s
}
