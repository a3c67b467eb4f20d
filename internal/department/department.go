// Package department resolves the many spellings a department name
// arrives in (form inputs, spreadsheets, legacy records) to one
// canonical code, and normalises year-of-study values. Two department
// strings denote the same department iff their normalised forms are
// equal; raw string comparison is never meaningful.
package department

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical department codes.
const (
	CSE  = "CSE"
	CSD  = "CSD"
	CSM  = "CSM"
	ECE  = "ECE"
	EEE  = "EEE"
	Civil = "CIV"
	Mech = "MECH"
	IT   = "IT"
)

// aliases maps folded spellings (uppercased, alphanumerics only) to the
// canonical code. The fold makes the lookup case, space and punctuation
// insensitive, so "CSE(DS)", "cse ds" and "CSEDS" all land on CSD.
var aliases = map[string]string{
	"CSE":                             CSE,
	"CS":                              CSE,
	"COMPUTERSCIENCE":                 CSE,
	"COMPUTERSCIENCEANDENGINEERING":   CSE,
	"COMPUTERSCIENCEENGINEERING":      CSE,
	"CSD":                             CSD,
	"CSEDS":                           CSD,
	"CSEDATASCIENCE":                  CSD,
	"DATASCIENCE":                     CSD,
	"CSM":                             CSM,
	"CSEAIML":                         CSM,
	"AIML":                            CSM,
	"CSEAIANDML":                      CSM,
	"ECE":                             ECE,
	"EC":                              ECE,
	"ELECTRONICSANDCOMMUNICATION":     ECE,
	"ELECTRONICSANDCOMMUNICATIONENGINEERING": ECE,
	"EEE":                             EEE,
	"ELECTRICALANDELECTRONICS":        EEE,
	"ELECTRICALANDELECTRONICSENGINEERING": EEE,
	"CIV":                             Civil,
	"CE":                              Civil,
	"CIVIL":                           Civil,
	"CIVILENGINEERING":                Civil,
	"MECH":                            Mech,
	"ME":                              Mech,
	"MECHANICAL":                      Mech,
	"MECHANICALENGINEERING":           Mech,
	"IT":                              IT,
	"INFORMATIONTECHNOLOGY":           IT,
}

// Normalize maps any known spelling variant to its canonical department
// code. Unrecognised input is returned unchanged apart from whitespace
// trimming: unknown departments fail open rather than blocking callers.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if code, ok := aliases[fold(trimmed)]; ok {
		return code
	}
	return trimmed
}

// Equal reports whether two raw department values denote the same
// department after normalisation.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func fold(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var romanYears = map[string]int{"I": 1, "II": 2, "III": 3, "IV": 4}

// ParseYear normalises a year-of-study value to an integer in 1..4.
// Both Roman numeral strings ("II") and digit strings ("2") are
// accepted; every ingress boundary must go through this.
func ParseYear(raw string) (int, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return 0, fmt.Errorf("year of study is empty")
	}
	if year, ok := romanYears[trimmed]; ok {
		return year, nil
	}
	year, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("unrecognised year of study %q", raw)
	}
	if year < 1 || year > 4 {
		return 0, fmt.Errorf("year of study %d out of range", year)
	}
	return year, nil
}
