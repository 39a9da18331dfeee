// Package discovery defines the onion link record and its append-only JSONL log.
package discovery

import (
	"strings"
	"time"
)

const (
	SourceTelegram = "telegram"
	StatusPending  = "pending"

	// TimeLayout is second-precision UTC with a Z suffix.
	TimeLayout = "2006-01-02T15:04:05Z"
)

// Record is one matched URL occurrence. Field order is the on-disk order.
type Record struct {
	Source       string `json:"source"`
	URL          string `json:"url"`
	DiscoveredAt string `json:"discovered_at"`
	Context      string `json:"context"`
	Status       string `json:"status"`
}

// NewTelegramRecord builds a pending record for url found in channel at time at.
func NewTelegramRecord(url, channel string, at time.Time) Record {
	return Record{
		Source:       SourceTelegram,
		URL:          url,
		DiscoveredAt: at.UTC().Format(TimeLayout),
		Context:      "Found in Telegram channel @" + strings.TrimPrefix(channel, "@"),
		Status:       StatusPending,
	}
}

// Time parses DiscoveredAt. A malformed value yields the zero time.
func (r Record) Time() time.Time {
	t, err := time.Parse(TimeLayout, r.DiscoveredAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
