// Package scraper turns arbitrary job posting pages into structured job records.
//
// Extraction is heuristic and never fails: every field that cannot be located
// falls back to a fixed literal, and a page that cannot be fetched at all yields
// a degraded record flagged with ExtractionFailed.
package scraper

import "fmt"

const (
	// FallbackTitle is used when no title rule produces a plausible value.
	FallbackTitle = "Position"
	// FallbackCompany is used when no company rule produces a plausible value.
	FallbackCompany = "Company"
)

// JobRecord is the structured result of extracting one job posting.
type JobRecord struct {
	SourceURL        string `json:"sourceUrl"`
	Title            string `json:"title"`
	Company          string `json:"company"`
	Description      string `json:"description"`
	Requirements     string `json:"requirements"`
	ExtractionFailed bool   `json:"extractionFailed"`

	// FailureReason holds the fetch error message of a degraded record.
	// It is diagnostic only.
	FailureReason string `json:"failureReason,omitempty"`
}

// DegradedRecord builds the placeholder record returned when a page cannot be fetched.
func DegradedRecord(sourceURL string, cause error) JobRecord {
	record := JobRecord{
		SourceURL:        sourceURL,
		Title:            FallbackTitle,
		Company:          FallbackCompany,
		Description:      fmt.Sprintf("Job posting at %s", sourceURL),
		Requirements:     "",
		ExtractionFailed: true,
	}
	if cause != nil {
		record.FailureReason = cause.Error()
	}
	return record
}
