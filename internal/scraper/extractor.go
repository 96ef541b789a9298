package scraper

import (
	"github.com/PuerkitoBio/goquery"
)

// Extract builds a JobRecord from a parsed page. Missing fields fall back to
// their literals; the description falls back to the visible body text.
func Extract(doc *goquery.Document, sourceURL string) JobRecord {
	title, ok := SelectFirst(doc, titleRules)
	if !ok {
		title = FallbackTitle
	}

	company, ok := SelectFirst(doc, companyRules)
	if !ok {
		company = FallbackCompany
	}

	description, ok := SelectFirst(doc, descriptionRules)
	if !ok {
		description = bodyText(doc)
	}
	description = Normalize(description)

	return JobRecord{
		SourceURL:    sourceURL,
		Title:        title,
		Company:      company,
		Description:  description,
		Requirements: ExtractRequirements(description),
	}
}

func bodyText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return blockText(doc.Selection)
	}
	return blockText(body)
}
