package compositions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	assert.Equal(t, "45 min", FormatDuration(45))
	assert.Equal(t, "2h", FormatDuration(120))
	assert.Equal(t, "1h 5min", FormatDuration(65))

	assert.Equal(t, "-", FormatPace(0, 10))
	assert.Equal(t, "-", FormatPace(10, 0))
	assert.Equal(t, "2.0 p/min", FormatPace(20, 10))
	assert.Equal(t, "1.5 min/p", FormatPace(30, 45))

	assert.Equal(t, "59min", FormatClock(59))
	assert.Equal(t, "24h", FormatClock(1440))
	assert.Equal(t, "24h40", FormatClock(1480))
	assert.Equal(t, "1h5", FormatClock(65))

	assert.Equal(t, "999", FormatThousands(999))
	assert.Equal(t, "12k", FormatThousands(12000))
	assert.Equal(t, "12k", FormatThousands(12050))
	assert.Equal(t, "1\u202f482", FormatThousands(1482))

	assert.Equal(t, "Night Owl", ShortBadge("Night Owl Reader"))
	assert.Equal(t, "Bookworm", ShortBadge("Bookworm"))

	assert.Equal(t, 26.0, TitleFontSize("Dune"))
	assert.Equal(t, 22.0, TitleFontSize("Les Frères Karamazov"))
	assert.Equal(t, 18.0, TitleFontSize("L'Insoutenable Légèreté de l'être"))

	assert.Equal(t, "↑ 23%", VsLastMonth(23))
	assert.Equal(t, "↓ 7%", VsLastMonth(-7))
}

func TestCalendarNames(t *testing.T) {
	assert.Equal(t, "Mai", MonthName(5))
	assert.Equal(t, "", MonthName(13))
	assert.Equal(t, "décembre", PreviousMonthName(1))
	assert.Equal(t, "avril", PreviousMonthName(5))

	assert.Equal(t, ThemeForMonth(1), ThemeForMonth(0))
	assert.Equal(t, "#FF6B8A", ThemeForMonth(5).Accent)
}
