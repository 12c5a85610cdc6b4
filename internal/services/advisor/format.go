package advisor

import (
	"math"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const plantDateLayout = "02 Jan 2006"

// formatFloat prints whole numbers with one decimal (25 -> "25.0") and
// everything else with the shortest exact representation.
func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatReading prints a provider value as-is ("48", "31.4"), or "n/a".
func formatReading(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// titleCase capitalises every word; a Caser is not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func formatPlantDate(t time.Time) string {
	return t.Format(plantDateLayout)
}
