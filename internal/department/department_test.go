package department

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVariants(t *testing.T) {
	cases := map[string]string{
		"CSE":                 "CSE",
		"cse":                 "CSE",
		"Computer Science":    "CSE",
		"CSE(DS)":             "CSD",
		"CSEDS":               "CSD",
		"cse ds":              "CSD",
		"CSE - Data Science":  "CSD",
		"CSE(AI&ML)":          "CSM",
		"AI ML":               "CSM",
		"E.C.E":               "ECE",
		"electronics and communication": "ECE",
		"EEE":                 "EEE",
		"Civil Engineering":   "CIV",
		"mech":                "MECH",
		"Information Technology": "IT",
	}
	for raw, want := range cases {
		assert.Equal(t, want, Normalize(raw), "raw=%q", raw)
	}
}

func TestNormalizeUnknownFailsOpen(t *testing.T) {
	assert.Equal(t, "MARINE", Normalize("  MARINE "))
	assert.Equal(t, "", Normalize("   "))
}

func TestEqualTreatsSpellingVariantsAsSame(t *testing.T) {
	assert.True(t, Equal("CSE(DS)", "CSEDS"))
	assert.True(t, Equal("cse", "Computer Science and Engineering"))
	assert.False(t, Equal("CSE(DS)", "CSE"))
}

func TestParseYear(t *testing.T) {
	for raw, want := range map[string]int{
		"1": 1, "2": 2, "3": 3, "4": 4,
		"I": 1, "ii": 2, " III ": 3, "IV": 4,
	} {
		year, err := ParseYear(raw)
		require.NoError(t, err, "raw=%q", raw)
		assert.Equal(t, want, year, "raw=%q", raw)
	}
}

func TestParseYearRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "V", "0", "5", "second", "2nd"} {
		_, err := ParseYear(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
