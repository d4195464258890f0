package hoa

import "time"

// DefaultFreshnessWindow is how long an enrichment is reused before a new
// provider call is made.
const DefaultFreshnessWindow = 30 * 24 * time.Hour

// FreshnessPolicy decides whether stored enrichment can be reused.
type FreshnessPolicy struct {
	Window time.Duration
}

func (p FreshnessPolicy) window() time.Duration {
	if p.Window <= 0 {
		return DefaultFreshnessWindow
	}
	return p.Window
}

// IsFresh reports whether rec was enriched less than one window before now.
func (p FreshnessPolicy) IsFresh(now time.Time, rec *PublicRecords) bool {
	if rec == nil || !rec.Enriched || rec.EnrichedAt == nil {
		return false
	}
	return now.Sub(*rec.EnrichedAt) < p.window()
}

// StaleBefore is the enrichment time at or before which a record is stale.
func (p FreshnessPolicy) StaleBefore(now time.Time) time.Time {
	return now.Add(-p.window())
}
