// Package pipeline sequences the tailoring stages for one job posting: read
// the base documents, extract the job, rewrite, publish.
//
// Stages run strictly one after another. Only the job fetch absorbs its own
// failures (as a degraded record); every other stage failure aborts the run
// and is reported as a *StageError naming the stage.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jobtailor/internal/config"
	"jobtailor/internal/errors"
	"jobtailor/internal/observability"
	"jobtailor/internal/scraper"
)

// Stage names, in execution order
const (
	StageFetchResume        = "fetch_resume"
	StageFetchTemplate      = "fetch_template"
	StageFetchJob           = "fetch_job"
	StageTailorResume       = "tailor_resume"
	StageCoverLetter        = "cover_letter"
	StagePublishResume      = "publish_resume"
	StagePublishCoverLetter = "publish_cover_letter"
)

// DocumentStore reads and publishes documents
type DocumentStore interface {
	GetDocumentContent(ctx context.Context, documentID string) (string, error)
	CreateDocument(ctx context.Context, title, content, folderID string) (string, error)
}

// Rewriter produces tailored text for a job
type Rewriter interface {
	TailorResume(ctx context.Context, resume string, job scraper.JobRecord) (string, error)
	GenerateCoverLetter(ctx context.Context, template, resume string, job scraper.JobRecord) (string, error)
}

// JobSource turns a job URL into a JobRecord. It never fails; problems
// surface as a record with ExtractionFailed set.
type JobSource interface {
	Fetch(ctx context.Context, url string) scraper.JobRecord
}

// Result is returned by a successful run
type Result struct {
	ResumeURL        string `json:"resumeUrl"`
	CoverLetterURL   string `json:"coverLetterUrl"`
	JobTitle         string `json:"jobTitle"`
	JobCompany       string `json:"jobCompany"`
	ExtractionFailed bool   `json:"extractionFailed"`
}

// StageError reports the stage that aborted a run
type StageError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Dependencies are the collaborators an Orchestrator drives. Metrics and
// Tracer are optional.
type Dependencies struct {
	Documents DocumentStore
	Rewriter  Rewriter
	Jobs      JobSource
	Docs      config.DocsConfig
	Metrics   *observability.Metrics
	Tracer    trace.Tracer
}

// Orchestrator runs the tailoring pipeline. It holds no per-run state and is
// safe for concurrent use.
type Orchestrator struct {
	documents DocumentStore
	rewriter  Rewriter
	jobs      JobSource
	docs      config.DocsConfig
	metrics   *observability.Metrics
	tracer    trace.Tracer
	logger    *errors.Logger
}

// NewOrchestrator creates an orchestrator from deps
func NewOrchestrator(deps Dependencies, logger *errors.Logger) *Orchestrator {
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("jobtailor.pipeline")
	}

	return &Orchestrator{
		documents: deps.Documents,
		rewriter:  deps.Rewriter,
		jobs:      deps.Jobs,
		docs:      deps.Docs,
		metrics:   deps.Metrics,
		tracer:    tracer,
		logger:    logger,
	}
}

// ResumeTitle is the title of a published tailored résumé
func ResumeTitle(job scraper.JobRecord) string {
	return fmt.Sprintf("Resume - %s - %s", job.Company, job.Title)
}

// CoverLetterTitle is the title of a published cover letter
func CoverLetterTitle(job scraper.JobRecord) string {
	return fmt.Sprintf("Cover Letter - %s - %s", job.Company, job.Title)
}

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// TailorForJob tailors the configured résumé and cover letter to the posting
// at jobURL and publishes both.
func (o *Orchestrator) TailorForJob(ctx context.Context, jobURL string) (*Result, error) {
	jobURL = strings.TrimSpace(jobURL)
	if jobURL == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidJobURL, "jobUrl is required", nil)
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.tailor_for_job",
		trace.WithAttributes(attribute.String("job.url", jobURL)))
	defer span.End()

	start := time.Now()
	o.logger.Info("Tailoring pipeline started", "job_url", jobURL)

	var (
		resume, template          string
		job                       scraper.JobRecord
		tailored, coverLetter     string
		resumeURL, coverLetterURL string
	)

	stages := []stage{
		{StageFetchResume, func(ctx context.Context) (err error) {
			resume, err = o.documents.GetDocumentContent(ctx, o.docs.ResumeDocID)
			return err
		}},
		{StageFetchTemplate, func(ctx context.Context) (err error) {
			template, err = o.documents.GetDocumentContent(ctx, o.docs.CoverLetterTemplateDocID)
			return err
		}},
		{StageFetchJob, func(ctx context.Context) error {
			job = o.jobs.Fetch(ctx, jobURL)
			if job.ExtractionFailed {
				o.logger.Warn("Job extraction degraded, continuing with placeholder record",
					"stage", StageFetchJob,
					"job_url", jobURL,
					"reason", job.FailureReason)
				o.metrics.RecordDegradedFetch(ctx)
			}
			return nil
		}},
		{StageTailorResume, func(ctx context.Context) (err error) {
			tailored, err = o.rewriter.TailorResume(ctx, resume, job)
			return err
		}},
		{StageCoverLetter, func(ctx context.Context) (err error) {
			coverLetter, err = o.rewriter.GenerateCoverLetter(ctx, template, resume, job)
			return err
		}},
		{StagePublishResume, func(ctx context.Context) (err error) {
			resumeURL, err = o.documents.CreateDocument(ctx, ResumeTitle(job), tailored, o.docs.OutputFolderID)
			return err
		}},
		{StagePublishCoverLetter, func(ctx context.Context) (err error) {
			coverLetterURL, err = o.documents.CreateDocument(ctx, CoverLetterTitle(job), coverLetter, o.docs.OutputFolderID)
			return err
		}},
	}

	for _, s := range stages {
		if err := o.runStage(ctx, s, jobURL); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.metrics.RecordPipelineRun(ctx, s.name)
			return nil, err
		}
	}

	o.metrics.RecordPipelineRun(ctx, "")
	span.SetAttributes(
		attribute.String("job.company", job.Company),
		attribute.String("job.title", job.Title),
		attribute.Bool("job.extraction_failed", job.ExtractionFailed),
	)
	o.logger.Info("Tailoring pipeline completed",
		"job_url", jobURL,
		"company", job.Company,
		"title", job.Title,
		"duration_ms", time.Since(start).Milliseconds())

	return &Result{
		ResumeURL:        resumeURL,
		CoverLetterURL:   coverLetterURL,
		JobTitle:         job.Title,
		JobCompany:       job.Company,
		ExtractionFailed: job.ExtractionFailed,
	}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, s stage, jobURL string) error {
	ctx, span := o.tracer.Start(ctx, "pipeline."+s.name,
		trace.WithAttributes(attribute.String("pipeline.stage", s.name)))
	defer span.End()

	o.logger.Debug("Pipeline stage started", "stage", s.name, "job_url", jobURL)

	start := time.Now()
	err := s.run(ctx)
	duration := time.Since(start)
	o.metrics.RecordStage(ctx, s.name, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.LogError(err, "Pipeline stage failed",
			"stage", s.name,
			"job_url", jobURL,
			"duration_ms", duration.Milliseconds())
		return &StageError{Stage: s.name, Message: err.Error(), Err: err}
	}

	o.logger.Info("Pipeline stage completed",
		"stage", s.name,
		"job_url", jobURL,
		"duration_ms", duration.Milliseconds())
	return nil
}
