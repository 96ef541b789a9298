package scraper

import "strings"

var (
	requirementKeywords = []string{"requirements", "qualifications", "skills", "must have", "required"}
	stopKeywords        = []string{"about us", "benefits", "how to apply"}
)

// minLinesBeforeStop is how many lines must already be collected before a
// stop keyword can end the section.
const minLinesBeforeStop = 3

type scanState int

const (
	stateScanning scanState = iota
	stateCollecting
	stateDone
)

// requirementsScanner locates the requirements section of a description one line at a time.
type requirementsScanner struct {
	state scanState
	lines []string
}

func (s *requirementsScanner) feed(line string) {
	lower := strings.ToLower(line)

	switch s.state {
	case stateScanning:
		if containsAny(lower, requirementKeywords) {
			s.state = stateCollecting
			s.lines = append(s.lines, line)
		}
	case stateCollecting:
		if len(s.lines) >= minLinesBeforeStop && containsAny(lower, stopKeywords) {
			s.state = stateDone
			return
		}
		s.lines = append(s.lines, line)
	}
}

func (s *requirementsScanner) result() string {
	return strings.TrimSpace(strings.Join(s.lines, "\n"))
}

// ExtractRequirements returns the block of description lines starting at the
// first line that mentions a requirements keyword. The block ends before the
// first later stop-keyword line once at least three lines are collected, or
// at the end of the description. It returns "" when no keyword is present.
func ExtractRequirements(description string) string {
	var scanner requirementsScanner
	for line := range strings.SplitSeq(description, "\n") {
		if scanner.state == stateDone {
			break
		}
		scanner.feed(line)
	}
	return scanner.result()
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
