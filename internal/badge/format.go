package badge

import (
	"math"
	"strconv"
	"strings"
)

// CategoryLabels are the display names of badge categories. Unknown
// categories are shown as is.
var CategoryLabels = map[string]string{
	"books_completed": "Livres",
	"reading_time":    "Temps de lecture",
	"streak":          "Régularité",
	"goals":           "Objectifs",
	"social":          "Social",
	"genres":          "Genres",
	"engagement":      "Engagement",
	"animated":        "Spécial",
	"secret":          "Secret",
	"style":           "Style de lecture",
	"monthly":         "Mensuel",
	"yearly":          "Annuel",
	"anniversary":     "Anniversaire",
	"annual_books":    "Livres annuels",
	"occasion":        "Occasion",
}

func CategoryLabel(category string) string {
	if l, ok := CategoryLabels[category]; ok {
		return l
	}
	return category
}

// FormatNumber abbreviates thousands: 1000 is "1k", 1250 is "1.3k".
func FormatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}
	s := strconv.FormatFloat(float64(n)/1000, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "k"
}

// FormatHours shows whole hours, or minutes below the first hour.
func FormatHours(minutes float64) string {
	h := int(math.Floor(minutes / 60))
	if h == 0 {
		return strconv.Itoa(int(math.Round(minutes))) + "min"
	}
	return strconv.Itoa(h) + "h"
}
