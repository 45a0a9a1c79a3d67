package scene

import "strings"

// WrapWords splits s into at most maxLines lines of roughly width runes.
// The last line keeps the rest, for a MaxWidth style to ellipsise.
func WrapWords(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	var (
		lines []string
		cur   string
	)
	for i, w := range words {
		if len(lines) == maxLines-1 {
			rest := strings.Join(words[i:], " ")
			if cur != "" {
				rest = cur + " " + rest
			}
			return append(lines, rest)
		}
		switch {
		case cur == "":
			cur = w
		case len([]rune(cur))+1+len([]rune(w)) > width:
			lines = append(lines, cur)
			cur = w
		default:
			cur += " " + w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
