package compositions

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatDuration renders minutes as "45 min", "2h" or "1h 5min".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m > 0 {
		return fmt.Sprintf("%dh %dmin", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

// FormatPace is pages per minute, or minutes per page when reading slower
// than one page a minute.
func FormatPace(pagesRead, durationMinutes int) string {
	if pagesRead == 0 || durationMinutes == 0 {
		return "-"
	}
	ppm := float64(pagesRead) / float64(durationMinutes)
	if ppm >= 1 {
		return fmt.Sprintf("%.1f p/min", ppm)
	}
	return fmt.Sprintf("%.1f min/p", float64(durationMinutes)/float64(pagesRead))
}

// FormatClock renders minutes as "45min", "24h" or "24h40".
func FormatClock(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	h, m := minutes/60, minutes%60
	if m > 0 {
		return fmt.Sprintf("%dh%d", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

// FormatThousands groups large counts with a narrow no-break space, and
// collapses to "Nk" when the hundreds digit is zero.
func FormatThousands(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	k := n / 1000
	if (n%1000)/100 == 0 {
		return fmt.Sprintf("%dk", k)
	}
	return fmt.Sprintf("%d\u202f%03d", k, n%1000)
}

// ShortBadge keeps the first two words of a reader type.
func ShortBadge(badge string) string {
	words := strings.Split(badge, " ")
	if len(words) > 2 {
		return strings.Join(words[:2], " ")
	}
	return badge
}

// TitleFontSize shrinks long book titles.
func TitleFontSize(title string) float64 {
	n := utf8.RuneCountInString(title)
	switch {
	case n <= 12:
		return 26
	case n <= 25:
		return 22
	}
	return 18
}

// VsLastMonth renders "↑ 23%" or "↓ 5%".
func VsLastMonth(percent int) string {
	arrow := "↑"
	if percent < 0 {
		arrow = "↓"
		percent = -percent
	}
	return fmt.Sprintf("%s %d%%", arrow, percent)
}
