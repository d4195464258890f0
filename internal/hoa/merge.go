package hoa

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var leadingFee = regexp.MustCompile(`^\s*\$?\s*(\d[\d,]*(?:\.\d+)?)`)

// ParseMonthlyFee extracts the leading amount of a currency string such as
// "$1,250.50/month". Anything not starting with a digit (after an optional $)
// yields ok=false.
func ParseMonthlyFee(s string) (float64, bool) {
	m := leadingFee.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MergeResult is the outcome of folding a provider answer into an HOA.
// ManagementCompany and MonthlyFee are non-nil only when the stored column
// should be written.
type MergeResult struct {
	Records           *PublicRecords
	ManagementCompany *string
	MonthlyFee        *float64
}

// Merge folds a successful lookup into the HOA's public records. Stored
// management company and monthly fee columns are never overwritten; every
// metadata field is replaced with the lookup's data.
func Merge(h *HOA, res LookupResult, now time.Time, source string) MergeResult {
	rec := h.PublicRecords.Clone()
	if rec == nil {
		rec = &PublicRecords{}
	}
	at := now.UTC()
	rec.Enriched = true
	rec.EnrichedAt = &at
	rec.Found = res.Found
	rec.Confidence = confidenceFor(res)
	rec.Source = source
	rec.Error = ""
	rec.SubdivisionName = strings.TrimSpace(res.SubdivisionName)
	rec.MonthlyFeeEstimate = strings.TrimSpace(res.MonthlyFee)
	rec.Citations = append([]string(nil), res.Citations...)
	rec.ResponseTimeMs = res.ResponseTime.Milliseconds()
	rec.RawResponse = append([]byte(nil), res.Raw...)

	contact := &ContactInfo{
		Phone:   strings.TrimSpace(res.Phone),
		Email:   strings.TrimSpace(res.Email),
		Website: strings.TrimSpace(res.Website),
		Address: strings.TrimSpace(res.Address),
	}
	if contact.empty() {
		contact = nil
	}
	rec.ContactInfo = contact

	out := MergeResult{Records: rec}

	stored := strings.TrimSpace(h.StoredManagementCompany())
	found := strings.TrimSpace(res.ManagementCompany)
	switch {
	case found != "":
		rec.ManagementCompany = &ManagementCompany{Name: found, Verified: len(res.Citations) > 0}
		if stored == "" {
			out.ManagementCompany = &found
		}
	case stored != "":
		rec.ManagementCompany = &ManagementCompany{Name: stored, Verified: false}
	default:
		rec.ManagementCompany = nil
	}

	if h.MonthlyFee == nil {
		if fee, ok := ParseMonthlyFee(res.MonthlyFee); ok {
			out.MonthlyFee = &fee
		}
	}
	return out
}

// FailedAttempt records a provider failure so the freshness window also
// suppresses immediate retries.
func FailedAttempt(h *HOA, cause error, now time.Time, source string) *PublicRecords {
	rec := h.PublicRecords.Clone()
	if rec == nil {
		rec = &PublicRecords{}
	}
	at := now.UTC()
	rec.Enriched = true
	rec.EnrichedAt = &at
	rec.Found = false
	rec.Confidence = ConfidenceLow
	rec.Source = source + " (Failed)"
	if cause != nil {
		rec.Error = cause.Error()
	}
	return rec
}

func confidenceFor(res LookupResult) Confidence {
	if !res.Found {
		return ConfidenceLow
	}
	if res.ManagementCompany != "" && len(res.Citations) >= 2 {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}
