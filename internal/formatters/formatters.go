package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"jobtailor/internal/pipeline"
	"jobtailor/internal/scraper"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Result", &ResultTextFormatter{})
	registry.RegisterFormatter("markdown", "Result", &ResultMarkdownFormatter{})
	registry.RegisterFormatter("text", "JobRecord", &JobTextFormatter{})
	registry.RegisterFormatter("markdown", "JobRecord", &JobMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// FormatsFor returns the sorted formats that have a formatter for data's type
func (fr *FormatterRegistry) FormatsFor(data any) []string {
	dataType := getDataType(data)

	var formats []string
	for format, byType := range fr.formatters {
		if _, ok := byType[dataType]; ok {
			formats = append(formats, format)
		} else if _, ok := byType["any"]; ok {
			formats = append(formats, format)
		}
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case pipeline.Result, *pipeline.Result:
		return "Result"
	case scraper.JobRecord, *scraper.JobRecord:
		return "JobRecord"
	default:
		return "any"
	}
}

func asResult(data any) (pipeline.Result, error) {
	switch v := data.(type) {
	case pipeline.Result:
		return v, nil
	case *pipeline.Result:
		if v != nil {
			return *v, nil
		}
	}
	return pipeline.Result{}, fmt.Errorf("expected Result, got %T", data)
}

func asJobRecord(data any) (scraper.JobRecord, error) {
	switch v := data.(type) {
	case scraper.JobRecord:
		return v, nil
	case *scraper.JobRecord:
		if v != nil {
			return *v, nil
		}
	}
	return scraper.JobRecord{}, fmt.Errorf("expected JobRecord, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ResultTextFormatter handles text formatting for pipeline results
type ResultTextFormatter struct{}

func (rtf *ResultTextFormatter) Format(data any) (string, error) {
	result, err := asResult(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== TAILORING COMPLETE ===\n\n")
	fmt.Fprintf(&output, "Job:          %s at %s\n", result.JobTitle, result.JobCompany)
	fmt.Fprintf(&output, "Resume:       %s\n", result.ResumeURL)
	fmt.Fprintf(&output, "Cover letter: %s\n", result.CoverLetterURL)
	if result.ExtractionFailed {
		output.WriteString("\nWarning: the job posting could not be extracted; placeholder details were used.\n")
	}

	return output.String(), nil
}

func (rtf *ResultTextFormatter) SupportedType() string {
	return "Result"
}

// ResultMarkdownFormatter handles markdown formatting for pipeline results
type ResultMarkdownFormatter struct{}

func (rmf *ResultMarkdownFormatter) Format(data any) (string, error) {
	result, err := asResult(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	fmt.Fprintf(&output, "# %s at %s\n\n", result.JobTitle, result.JobCompany)
	fmt.Fprintf(&output, "- [Tailored resume](%s)\n", result.ResumeURL)
	fmt.Fprintf(&output, "- [Cover letter](%s)\n", result.CoverLetterURL)
	if result.ExtractionFailed {
		output.WriteString("\n> **Warning:** the job posting could not be extracted; placeholder details were used.\n")
	}

	return output.String(), nil
}

func (rmf *ResultMarkdownFormatter) SupportedType() string {
	return "Result"
}

// JobTextFormatter handles text formatting for extracted job postings
type JobTextFormatter struct{}

func (jtf *JobTextFormatter) Format(data any) (string, error) {
	job, err := asJobRecord(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== JOB POSTING ===\n\n")
	fmt.Fprintf(&output, "Source:  %s\n", job.SourceURL)
	fmt.Fprintf(&output, "Title:   %s\n", job.Title)
	fmt.Fprintf(&output, "Company: %s\n", job.Company)
	if job.ExtractionFailed {
		fmt.Fprintf(&output, "Extraction failed: %s\n", job.FailureReason)
	}

	output.WriteString("\n=== DESCRIPTION ===\n\n")
	output.WriteString(job.Description)
	output.WriteString("\n")

	if job.Requirements != "" {
		output.WriteString("\n=== REQUIREMENTS ===\n\n")
		output.WriteString(job.Requirements)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (jtf *JobTextFormatter) SupportedType() string {
	return "JobRecord"
}

// JobMarkdownFormatter handles markdown formatting for extracted job postings
type JobMarkdownFormatter struct{}

func (jmf *JobMarkdownFormatter) Format(data any) (string, error) {
	job, err := asJobRecord(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	fmt.Fprintf(&output, "# %s\n\n", job.Title)
	fmt.Fprintf(&output, "**Company:** %s  \n", job.Company)
	fmt.Fprintf(&output, "**Source:** <%s>\n", job.SourceURL)
	if job.ExtractionFailed {
		fmt.Fprintf(&output, "\n> **Extraction failed:** %s\n", job.FailureReason)
	}

	output.WriteString("\n## Description\n\n")
	output.WriteString(job.Description)
	output.WriteString("\n")

	if job.Requirements != "" {
		output.WriteString("\n## Requirements\n\n")
		output.WriteString(job.Requirements)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (jmf *JobMarkdownFormatter) SupportedType() string {
	return "JobRecord"
}
