// Package hoa holds the HOA profile model and the rules that decide how
// enrichment data is merged into it.
package hoa

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no HOA exists for an identifier.
var ErrNotFound = errors.New("hoa not found")

// ValidationError reports bad or missing caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// HOA is a stored homeowners-association profile.
type HOA struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Address           string         `json:"address"`
	City              string         `json:"city"`
	State             string         `json:"state"`
	Zip               string         `json:"zip"`
	ManagementCompany *string        `json:"management_company"`
	MonthlyFee        *float64       `json:"monthly_fee"`
	OverallScore      *float64       `json:"overall_score"`
	PublicRecords     *PublicRecords `json:"public_records"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// StoredManagementCompany returns the management company column, or "" when unset.
func (h *HOA) StoredManagementCompany() string {
	if h == nil || h.ManagementCompany == nil {
		return ""
	}
	return *h.ManagementCompany
}

// Summary is the projection returned by name search.
type Summary struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	City              string  `json:"city"`
	State             string  `json:"state"`
	Zip               string  `json:"zip"`
	ManagementCompany *string `json:"management_company"`
}

// LookupQuery is what the web-search provider is asked about.
type LookupQuery struct {
	Name    string
	Address string
	City    string
	State   string
	Zip     string
}

// LookupResult is the transient answer of the web-search provider.
type LookupResult struct {
	Success           bool
	Found             bool
	ManagementCompany string
	Phone             string
	Email             string
	Website           string
	Address           string
	SubdivisionName   string
	MonthlyFee        string
	Citations         []string
	ResponseTime      time.Duration
	Raw               []byte
}
