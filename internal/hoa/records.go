package hoa

import (
	"encoding/json"
	"time"
)

// Confidence grades how much an enrichment can be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ManagementCompany records the company the provider reported.
type ManagementCompany struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
}

func (c *ContactInfo) empty() bool {
	return c == nil || (c.Phone == "" && c.Email == "" && c.Website == "" && c.Address == "")
}

// PublicRecords is the enrichment metadata kept in the public_records column.
// Keys written by other tools are carried through untouched.
type PublicRecords struct {
	Enriched           bool               `json:"enriched"`
	EnrichedAt         *time.Time         `json:"enrichedAt,omitempty"`
	Found              bool               `json:"found"`
	Confidence         Confidence         `json:"confidence,omitempty"`
	Source             string             `json:"source,omitempty"`
	ManagementCompany  *ManagementCompany `json:"managementCompany,omitempty"`
	ContactInfo        *ContactInfo       `json:"contactInfo,omitempty"`
	SubdivisionName    string             `json:"subdivisionName,omitempty"`
	MonthlyFeeEstimate string             `json:"monthlyFeeEstimate,omitempty"`
	Citations          []string           `json:"citations,omitempty"`
	ResponseTimeMs     int64              `json:"responseTimeMs,omitempty"`
	RawResponse        json.RawMessage    `json:"rawResponse,omitempty"`
	Error              string             `json:"error,omitempty"`

	extra map[string]json.RawMessage
}

type plainRecords PublicRecords

var knownRecordKeys = []string{
	"enriched", "enrichedAt", "found", "confidence", "source", "managementCompany",
	"contactInfo", "subdivisionName", "monthlyFeeEstimate", "citations",
	"responseTimeMs", "rawResponse", "error",
}

func (p *PublicRecords) UnmarshalJSON(b []byte) error {
	var plain plainRecords
	if err := json.Unmarshal(b, &plain); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range knownRecordKeys {
		delete(all, k)
	}
	*p = PublicRecords(plain)
	if len(all) > 0 {
		p.extra = all
	}
	return nil
}

func (p PublicRecords) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(plainRecords(p))
	if err != nil || len(p.extra) == 0 {
		return b, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	for k, v := range p.extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// Extra returns a stored key this model does not know about.
func (p *PublicRecords) Extra(key string) (json.RawMessage, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.extra[key]
	return v, ok
}

// Clone returns a deep copy.
func (p *PublicRecords) Clone() *PublicRecords {
	if p == nil {
		return nil
	}
	c := *p
	if p.EnrichedAt != nil {
		t := *p.EnrichedAt
		c.EnrichedAt = &t
	}
	if p.ManagementCompany != nil {
		mc := *p.ManagementCompany
		c.ManagementCompany = &mc
	}
	if p.ContactInfo != nil {
		ci := *p.ContactInfo
		c.ContactInfo = &ci
	}
	c.Citations = append([]string(nil), p.Citations...)
	c.RawResponse = append(json.RawMessage(nil), p.RawResponse...)
	if p.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(p.extra))
		for k, v := range p.extra {
			c.extra[k] = v
		}
	}
	return &c
}
