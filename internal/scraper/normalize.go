package scraper

import "strings"

var lineBreakReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize collapses whitespace inside each line to single spaces, trims every
// line, squeezes consecutive blank lines down to one and trims the result.
// Line structure is kept so that section scanning can still work on the output.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	lines := strings.Split(lineBreakReplacer.Replace(text), "\n")

	out := make([]string, 0, len(lines))
	previousBlank := true // drops leading blank lines
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if previousBlank {
				continue
			}
			previousBlank = true
			out = append(out, "")
			continue
		}
		previousBlank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
