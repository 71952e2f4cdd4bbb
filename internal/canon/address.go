package canon

import (
	"regexp"
	"strings"
)

var rePunct = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// Address is a normalized postal address plus the key that identifies its parcel.
type Address struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
	Key   string `json:"property_key"`
}

// Complete reports whether every component needed for a stable key is present.
func (a Address) Complete() bool {
	return a.Line1 != "" && a.City != "" && a.State != "" && a.Zip != ""
}

// Normalize upper-cases, strips punctuation and unit designators, abbreviates
// street suffixes and state names, and truncates ZIP+4. Units are dropped so
// every unit in a building maps to the same parcel key.
func Normalize(line1, city, state, zip string) Address {
	a := Address{
		Line1: normalizeLine1(line1),
		City:  collapseSpaces(rePunct.ReplaceAllString(strings.ToUpper(strings.TrimSpace(city)), " ")),
		State: normalizeState(state),
		Zip:   trimZIP(zip),
	}
	if a.Complete() {
		a.Key = strings.ToLower(strings.Join([]string{a.Line1, a.City, a.State, a.Zip}, "|"))
	}
	return a
}

// SameParcel ignores ZIP so a mistyped or ZIP+4 postal code still matches.
func SameParcel(a, b Address) bool {
	return a.Line1 == b.Line1 && a.City == b.City && a.State == b.State
}

func normalizeLine1(s string) string {
	s = stripUnit(strings.ToUpper(strings.TrimSpace(s)))
	s = rePunct.ReplaceAllString(s, " ")
	s = collapseSpaces(s)
	return abbreviateSuffix(s)
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

var unitMarkers = []string{" APT ", " UNIT ", " STE ", " SUITE ", " #"}

func stripUnit(s string) string {
	padded := " " + s + " "
	for _, m := range unitMarkers {
		if i := strings.Index(padded, m); i >= 0 {
			return strings.TrimSpace(padded[:i])
		}
	}
	return strings.TrimSpace(s)
}

var suffixes = map[string]string{
	"STREET": "ST", "ROAD": "RD", "AVENUE": "AVE", "BOULEVARD": "BLVD", "DRIVE": "DR",
	"LANE": "LN", "COURT": "CT", "CIRCLE": "CIR", "TERRACE": "TER", "PLACE": "PL",
	"PARKWAY": "PKWY", "HIGHWAY": "HWY", "TRAIL": "TRL",
}

// abbreviateSuffix works on whole words so "STREETSIDE" is left alone.
func abbreviateSuffix(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if i == 0 {
			continue // house number
		}
		if abbr, ok := suffixes[w]; ok {
			words[i] = abbr
		}
	}
	return strings.Join(words, " ")
}

var states = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR", "CALIFORNIA": "CA", "COLORADO": "CO",
	"CONNECTICUT": "CT", "DELAWARE": "DE", "DISTRICT OF COLUMBIA": "DC", "FLORIDA": "FL", "GEORGIA": "GA",
	"HAWAII": "HI", "IDAHO": "ID", "ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS",
	"KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD", "MASSACHUSETTS": "MA",
	"MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS", "MISSOURI": "MO", "MONTANA": "MT",
	"NEBRASKA": "NE", "NEVADA": "NV", "NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM",
	"NEW YORK": "NY", "NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK",
	"OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC", "SOUTH DAKOTA": "SD",
	"TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT", "VIRGINIA": "VA", "WASHINGTON": "WA",
	"WEST VIRGINIA": "WV", "WISCONSIN": "WI", "WYOMING": "WY",
}

func normalizeState(s string) string {
	st := collapseSpaces(strings.ToUpper(strings.TrimSpace(s)))
	if len(st) <= 2 {
		return st
	}
	if abbr, ok := states[st]; ok {
		return abbr
	}
	return st
}
