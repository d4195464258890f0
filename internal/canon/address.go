package canon

import (
	"strings"

	"github.com/yourorg/hoa-scout/internal/hoa"
)

// Query tidies an HOA's location before it is sent to the search provider:
// whitespace is collapsed, states become USPS codes and ZIP+4 is cut to five
// digits. Casing of names is left alone since the provider searches text.
func Query(q hoa.LookupQuery) hoa.LookupQuery {
	return hoa.LookupQuery{
		Name:    collapseSpaces(q.Name),
		Address: stripUnit(collapseSpaces(q.Address)),
		City:    collapseSpaces(q.City),
		State:   State(q.State),
		Zip:     trimZIP(q.Zip),
	}
}

// State returns the two-letter code for a state name or code.
func State(s string) string {
	st := strings.ToUpper(collapseSpaces(s))
	if len(st) > 2 {
		if v, ok := stateCodes[st]; ok {
			return v
		}
	}
	return st
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimZIP(z string) string {
	z = strings.TrimSpace(z)
	if len(z) >= 5 {
		return z[:5]
	}
	return z
}

// stripUnit drops trailing unit designators (APT, UNIT, STE, SUITE, #).
// The first word is never treated as a designator.
func stripUnit(s string) string {
	f := strings.Fields(s)
	for i := 1; i < len(f); i++ {
		if isUnitMarker(f[i]) {
			return strings.Join(f[:i], " ")
		}
	}
	return s
}

func isUnitMarker(w string) bool {
	if strings.HasPrefix(w, "#") {
		return true
	}
	for _, t := range []string{"APT", "UNIT", "STE", "SUITE"} {
		if strings.EqualFold(w, t) {
			return true
		}
	}
	return false
}

var stateCodes = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR", "CALIFORNIA": "CA",
	"COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE", "DISTRICT OF COLUMBIA": "DC",
	"FLORIDA": "FL", "GEORGIA": "GA", "HAWAII": "HI", "IDAHO": "ID", "ILLINOIS": "IL",
	"INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS", "KENTUCKY": "KY", "LOUISIANA": "LA",
	"MAINE": "ME", "MARYLAND": "MD", "MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN",
	"MISSISSIPPI": "MS", "MISSOURI": "MO", "MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV",
	"NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM", "NEW YORK": "NY",
	"NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK", "OREGON": "OR",
	"PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC", "SOUTH DAKOTA": "SD",
	"TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT", "VIRGINIA": "VA",
	"WASHINGTON": "WA", "WEST VIRGINIA": "WV", "WISCONSIN": "WI", "WYOMING": "WY",
}
