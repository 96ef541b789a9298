package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"jobtailor/internal/config"
)

// Metrics holds all custom metrics for jobtailor. A nil *Metrics records
// nothing, so callers never need to check whether observability is on.
type Metrics struct {
	settings config.CustomMetricsConfig

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Pipeline metrics
	PipelineRuns          metric.Int64Counter
	PipelineStageDuration metric.Float64Histogram
	PipelineStageErrors   metric.Int64Counter
	DegradedFetches       metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// DefaultCustomMetrics enables every custom metric
func DefaultCustomMetrics() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		AIOperations: config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		Pipeline:     config.PipelineMetricsConfig{Enabled: true, TrackStageDuration: true, TrackDegradedFetches: true},
		Infrastructure: config.InfrastructureMetricsConfig{
			Enabled:         true,
			TrackRateLimits: true,
		},
	}
}

// NewMetrics creates the custom instruments on meter
func NewMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"jobtailor_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"jobtailor_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"jobtailor_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"jobtailor_ai_token_usage",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.PipelineRuns, err = meter.Int64Counter(
		"jobtailor_pipeline_runs_total",
		metric.WithDescription("Total number of tailoring pipeline runs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pipeline runs metric: %w", err)
	}

	if m.PipelineStageDuration, err = meter.Float64Histogram(
		"jobtailor_pipeline_stage_duration_seconds",
		metric.WithDescription("Time spent in each pipeline stage"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pipeline stage duration metric: %w", err)
	}

	if m.PipelineStageErrors, err = meter.Int64Counter(
		"jobtailor_pipeline_stage_errors_total",
		metric.WithDescription("Total number of fatal pipeline stage failures"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pipeline stage errors metric: %w", err)
	}

	if m.DegradedFetches, err = meter.Int64Counter(
		"jobtailor_degraded_fetches_total",
		metric.WithDescription("Job page fetches that fell back to a placeholder record"),
	); err != nil {
		return nil, fmt.Errorf("failed to create degraded fetches metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"jobtailor_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperation instruments an AI operation with a span, duration,
// request and error counts, and token usage
func (m *Metrics) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	ctx, span := otel.Tracer("jobtailor.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m != nil && m.settings.AIOperations.Enabled {
		m.recordAIMetrics(ctx, operation, err, duration, result, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	opt := metric.WithAttributes(attrs...)

	if m.settings.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, opt)
	}
	m.AIRequestCount.Add(ctx, 1, opt)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, opt)
	}

	if result != nil && result.TokenUsage != nil {
		usage := result.TokenUsage
		if m.settings.AIOperations.TrackTokenUsage {
			for _, tokens := range []struct {
				tokenType string
				value     int64
			}{
				{"input", usage.InputTokens},
				{"output", usage.OutputTokens},
				{"total", usage.TotalTokens},
			} {
				m.AITokenUsage.Record(ctx, tokens.value, metric.WithAttributes(
					attribute.String("operation", operation),
					attribute.String("token_type", tokens.tokenType),
				))
			}
		}

		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	span.SetAttributes(attrs...)
}

// RecordStage records the duration and outcome of one pipeline stage
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	if m == nil || !m.settings.Pipeline.Enabled {
		return
	}

	opt := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", err == nil),
	)
	if m.settings.Pipeline.TrackStageDuration {
		m.PipelineStageDuration.Record(ctx, duration.Seconds(), opt)
	}
	if err != nil {
		m.PipelineStageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordPipelineRun counts a finished pipeline run. failedStage is empty on success.
func (m *Metrics) RecordPipelineRun(ctx context.Context, failedStage string) {
	if m == nil || !m.settings.Pipeline.Enabled {
		return
	}

	attrs := []attribute.KeyValue{attribute.Bool("success", failedStage == "")}
	if failedStage != "" {
		attrs = append(attrs, attribute.String("failed_stage", failedStage))
	}
	m.PipelineRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDegradedFetch counts a job page fetch that produced a placeholder record
func (m *Metrics) RecordDegradedFetch(ctx context.Context) {
	if m == nil || !m.settings.Pipeline.Enabled || !m.settings.Pipeline.TrackDegradedFetches {
		return
	}
	m.DegradedFetches.Add(ctx, 1)
}

// RecordRateLimitHit counts a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attributes ...attribute.KeyValue) {
	if m == nil || !m.settings.Infrastructure.Enabled || !m.settings.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
}
