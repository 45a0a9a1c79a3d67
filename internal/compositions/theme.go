package compositions

// Palettes shared with the mobile share cards.
var (
	SessionColors = struct {
		Accent, Dark, GlowCenter string
	}{"#7FA497", "#0A1F1A", "#0F2A22"}

	YearlyColors = struct {
		Gold, Cream, Bordeaux, DeepBg, GlowCenter string
	}{"#D4A853", "#F5E6C8", "#6B1D3A", "#0C0A14", "#1A1428"}
)

// MonthTheme is the per-month look of the monthly wrap.
type MonthTheme struct {
	Gradient [2]string
	Accent   string
	Emoji    string
}

var monthThemes = map[int]MonthTheme{
	1:  {[2]string{"#0B1120", "#1B2A4A"}, "#7EC8E3", "❄️"},
	2:  {[2]string{"#1A0A2E", "#3D1F56"}, "#E8A0BF", "\U0001F49C"},
	3:  {[2]string{"#0A1F0A", "#1B3D2F"}, "#90EE90", "\U0001F331"},
	4:  {[2]string{"#1F1A0A", "#3D3520"}, "#FFD700", "\U0001F324️"},
	5:  {[2]string{"#0A1A1F", "#1B3540"}, "#FF6B8A", "\U0001F338"},
	6:  {[2]string{"#1F0F00", "#4A2800"}, "#FFA24C", "☀️"},
	7:  {[2]string{"#00101F", "#002040"}, "#00D4FF", "\U0001F3D6️"},
	8:  {[2]string{"#1A0F00", "#3D2400"}, "#FFB347", "\U0001F305"},
	9:  {[2]string{"#150A00", "#3A2010"}, "#D4915E", "\U0001F342"},
	10: {[2]string{"#0F0A1A", "#2A1F3D"}, "#C77DFF", "\U0001F383"},
	11: {[2]string{"#0D0D0D", "#2A2A2A"}, "#A0A0A0", "\U0001F32B️"},
	12: {[2]string{"#0A0015", "#1A0A3D"}, "#FFD93D", "✨"},
}

// ThemeForMonth falls back to January outside 1-12.
func ThemeForMonth(month int) MonthTheme {
	if t, ok := monthThemes[month]; ok {
		return t
	}
	return monthThemes[1]
}

var monthNames = [...]string{
	"", "Janvier", "Fevrier", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Aout", "Septembre", "Octobre", "Novembre", "Decembre",
}

func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month]
}

var previousMonthNames = [...]string{
	"", "décembre", "janvier", "février", "mars", "avril", "mai",
	"juin", "juillet", "août", "septembre", "octobre", "novembre",
}

// PreviousMonthName is the lowercase name of the month before month.
func PreviousMonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return previousMonthNames[month]
}
