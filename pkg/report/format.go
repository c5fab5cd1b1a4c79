package report

import (
	"math"
	"strconv"
)

// PValueFloor is the smallest p-value printed as a number.
const PValueFloor = 2.2e-16

// NA marks a missing or undefined number.
const NA = "NA"

// Signif formats v to the given number of significant digits, using plain
// notation for ordinary magnitudes and scientific notation otherwise.
func Signif(v float64, digits int) string {
	switch {
	case math.IsNaN(v):
		return NA
	case math.IsInf(v, 1):
		return "Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v == 0:
		return "0"
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', digits, 64), 64)
	if err != nil {
		return strconv.FormatFloat(v, 'g', digits, 64)
	}
	exp := int(math.Floor(math.Log10(math.Abs(rounded))))
	if exp < -4 || exp >= 15 {
		return strconv.FormatFloat(rounded, 'g', digits, 64)
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// FormatPValue prints p to three significant digits, or "< 2.2e-16".
func FormatPValue(p float64) string {
	switch {
	case math.IsNaN(p):
		return NA
	case p < PValueFloor:
		return "< 2.2e-16"
	}
	return strconv.FormatFloat(p, 'g', 3, 64)
}
