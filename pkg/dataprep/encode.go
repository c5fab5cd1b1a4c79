package dataprep

import (
	"slices"
	"strings"
)

// AgeMarriedLevels is the ordered set of marriage-age buckets.
var AgeMarriedLevels = []string{"0to15", "15to18", "18to20", "20to22", "22to25", "25to30", "30toInf"}

// LevelIndex returns the position of an ageMarried bucket, or -1.
func LevelIndex(level string) int {
	return slices.Index(AgeMarriedLevels, strings.TrimSpace(level))
}

// Literacy labels after normalisation.
const (
	Literate   = "yes"
	Illiterate = "no"
)

// EncodeLiteracy maps a raw literacy token to its label and the 0/1 dummy
// used as a predictor (1 = literate, the non-reference level).
func EncodeLiteracy(raw string) (label string, code float64, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "literate", "1", "true":
		return Literate, 1, true
	case "no", "illiterate", "0", "false":
		return Illiterate, 0, true
	}
	return "", 0, false
}

// LevelCounts tallies how often each label occurs, keeping first-seen order.
func LevelCounts(values []string) (levels []string, counts map[string]int) {
	counts = map[string]int{}
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			levels = append(levels, v)
		}
		counts[v]++
	}
	return levels, counts
}
