package scraper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobtailor/internal/errors"
)

const (
	// DefaultTimeout bounds a single page retrieval.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent mimics a desktop Chrome browser; many job boards refuse unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// DefaultMaxBodyBytes caps how much of a page is parsed.
	DefaultMaxBodyBytes int64 = 5 * 1024 * 1024
)

// FetcherConfig configures a Fetcher. Zero values fall back to the defaults above.
type FetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64

	// HTTPClient overrides the client used for requests. Its Timeout is
	// replaced by the configured Timeout.
	HTTPClient *http.Client
}

// Fetcher retrieves job posting pages and extracts them into JobRecords.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *errors.Logger
}

// NewFetcher creates a fetcher from cfg
func NewFetcher(cfg FetcherConfig, logger *errors.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	client := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		client = &copied
	}
	client.Timeout = timeout

	return &Fetcher{
		client:       client,
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Fetch retrieves url and extracts a JobRecord from it. It never fails: any
// retrieval or parse problem yields a degraded record carrying the reason.
func (f *Fetcher) Fetch(ctx context.Context, url string) JobRecord {
	doc, err := f.fetchDocument(ctx, url)
	if err != nil {
		if f.logger != nil {
			f.logger.Warn("Job page fetch failed, using degraded record",
				"job_url", url,
				"reason", err.Error())
		}
		return DegradedRecord(url, err)
	}

	record := Extract(doc, url)
	if f.logger != nil {
		f.logger.Debug("Job page extracted",
			"job_url", url,
			"title", record.Title,
			"company", record.Company,
			"description_length", len(record.Description),
			"has_requirements", record.Requirements != "")
	}
	return record
}

func (f *Fetcher) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid job URL: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// checkResponse rejects non-2xx statuses and bodies that are not markup.
// A missing Content-Type is accepted.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/xml", "application/xml":
		return nil
	default:
		return fmt.Errorf("unsupported content type: %s", mediaType)
	}
}
