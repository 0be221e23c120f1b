package syncer

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

type Stats struct {
	Fetched    int `json:"fetched"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Errors     int `json:"errors"`
	Duplicates int `json:"duplicates"`
}

type ProviderResult struct {
	API    string `json:"api"`
	Status Status `json:"status"`
	Stats  *Stats `json:"stats,omitempty"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Report struct {
	Success   bool             `json:"success"`
	Timestamp time.Time        `json:"timestamp"`
	Duration  string           `json:"duration"`
	Results   []ProviderResult `json:"results"`
	Error     string           `json:"error,omitempty"`
}

// Result returns the entry for api, if present.
func (r Report) Result(api string) (ProviderResult, bool) {
	for _, res := range r.Results {
		if res.API == api {
			return res, true
		}
	}
	return ProviderResult{}, false
}

// Totals sums stats over every provider that ran.
func (r Report) Totals() Stats {
	var t Stats
	for _, res := range r.Results {
		if res.Stats == nil {
			continue
		}
		t.Fetched += res.Stats.Fetched
		t.New += res.Stats.New
		t.Updated += res.Stats.Updated
		t.Errors += res.Stats.Errors
		t.Duplicates += res.Stats.Duplicates
	}
	return t
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
