package perplexity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yourorg/hoa-scout/internal/hoa"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

const systemPrompt = `You research homeowners associations in the United States using public web sources.
Reply with a single JSON object and nothing else, using these keys:
"found" (boolean), "management_company", "phone", "email", "website", "address",
"subdivision_name", "monthly_fee" (as written by the source, e.g. "$150/month").
Use null for anything you cannot confirm from a source.`

func userPrompt(q hoa.LookupQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find the management company, contact details, subdivision name and monthly dues for the HOA %q", q.Name)
	loc := make([]string, 0, 3)
	for _, v := range []string{q.City, q.State, q.Zip} {
		if v != "" {
			loc = append(loc, v)
		}
	}
	if len(loc) > 0 {
		fmt.Fprintf(&b, " in %s", strings.Join(loc, ", "))
	}
	if q.Address != "" {
		fmt.Fprintf(&b, " (address: %s)", q.Address)
	}
	b.WriteString(".")
	return b.String()
}

// stringNumber accepts a JSON string or number and keeps its text.
type stringNumber string

func (s *stringNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = stringNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = stringNumber(num.String())
	return nil
}

type answer struct {
	Found             *bool        `json:"found"`
	ManagementCompany stringNumber `json:"management_company"`
	Phone             stringNumber `json:"phone"`
	Email             stringNumber `json:"email"`
	Website           stringNumber `json:"website"`
	Address           stringNumber `json:"address"`
	SubdivisionName   stringNumber `json:"subdivision_name"`
	MonthlyFee        stringNumber `json:"monthly_fee"`
}

// mapAnswer reads the model's JSON reply, which may be wrapped in a code
// fence or surrounded by prose.
func mapAnswer(content string) hoa.LookupResult {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return hoa.LookupResult{}
	}
	var a answer
	if err := json.Unmarshal([]byte(content[start:end+1]), &a); err != nil {
		return hoa.LookupResult{}
	}
	res := hoa.LookupResult{
		ManagementCompany: clean(a.ManagementCompany),
		Phone:             clean(a.Phone),
		Email:             clean(a.Email),
		Website:           clean(a.Website),
		Address:           clean(a.Address),
		SubdivisionName:   clean(a.SubdivisionName),
		MonthlyFee:        clean(a.MonthlyFee),
	}
	hasData := res.ManagementCompany != "" || res.Phone != "" || res.Email != "" ||
		res.Website != "" || res.Address != "" || res.SubdivisionName != "" || res.MonthlyFee != ""
	if a.Found != nil {
		res.Found = *a.Found && hasData
	} else {
		res.Found = hasData
	}
	return res
}

func clean(v stringNumber) string {
	s := strings.TrimSpace(string(v))
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a", "na", "unknown", "not found", "not available":
		return ""
	}
	return s
}
