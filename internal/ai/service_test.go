package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"jobtailor/internal/config"
	jobtailorErrors "jobtailor/internal/errors"
	"jobtailor/internal/observability"
	"jobtailor/internal/scraper"
)

type fakeProvider struct {
	output string
	err    error
	closed bool
	calls  []PromptData
}

func (f *fakeProvider) Generate(_ context.Context, data PromptData) (string, *observability.TokenUsage, error) {
	f.calls = append(f.calls, data)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.output, &observability.TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}, nil
}

func (f *fakeProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake", Available: f.err == nil}
}

func (f *fakeProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"overall_healthy": true}
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

var testJob = scraper.JobRecord{
	SourceURL:    "https://jobs.example.com/42",
	Title:        "Platform Engineer",
	Company:      "Initech",
	Description:  "Run the platform",
	Requirements: "Requirements: Kubernetes",
}

func TestServiceTailorResume(t *testing.T) {
	tailor := &fakeProvider{output: "tailored"}
	service := NewServiceWithProviders(tailor, &fakeProvider{}, nil, testLogger())

	text, err := service.TailorResume(context.Background(), "my resume", testJob)
	require.NoError(t, err)
	assert.Equal(t, "tailored", text)

	require.Len(t, tailor.calls, 1)
	assert.Equal(t, PromptData{
		Resume:          "my resume",
		JobTitle:        "Platform Engineer",
		JobCompany:      "Initech",
		JobDescription:  "Run the platform",
		JobRequirements: "Requirements: Kubernetes",
		JobURL:          "https://jobs.example.com/42",
	}, tailor.calls[0])
}

func TestServiceGenerateCoverLetter(t *testing.T) {
	tailor := &fakeProvider{}
	coverLetter := &fakeProvider{output: "Dear Initech"}
	service := NewServiceWithProviders(tailor, coverLetter, nil, testLogger())

	text, err := service.GenerateCoverLetter(context.Background(), "template", "my resume", testJob)
	require.NoError(t, err)
	assert.Equal(t, "Dear Initech", text)

	assert.Empty(t, tailor.calls, "cover letters use their own provider")
	require.Len(t, coverLetter.calls, 1)
	assert.Equal(t, "template", coverLetter.calls[0].Template)
	assert.Equal(t, "my resume", coverLetter.calls[0].Resume)
}

func TestServiceRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := observability.NewMetrics(provider.Meter("test"), observability.DefaultCustomMetrics())
	require.NoError(t, err)

	failure := errors.New("quota exceeded")
	service := NewServiceWithProviders(&fakeProvider{output: "ok"}, &fakeProvider{err: failure}, metrics, testLogger())

	_, err = service.TailorResume(context.Background(), "resume", testJob)
	require.NoError(t, err)
	_, err = service.GenerateCoverLetter(context.Background(), "template", "resume", testJob)
	assert.ErrorIs(t, err, failure)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), totals["jobtailor_ai_requests_total"])
	assert.Equal(t, int64(1), totals["jobtailor_ai_errors_total"])
}

func TestServiceStatsAndClose(t *testing.T) {
	tailor := &fakeProvider{}
	coverLetter := &fakeProvider{err: errors.New("down")}
	service := NewServiceWithProviders(tailor, coverLetter, nil, testLogger())

	info := service.GetModelInfo(context.Background())
	assert.True(t, info[config.OperationTailor].Available)
	assert.False(t, info[config.OperationCoverLetter].Available)

	stats := service.GetCircuitBreakerStats()
	assert.Contains(t, stats, config.OperationTailor)
	assert.Contains(t, stats, config.OperationCoverLetter)

	require.NoError(t, service.Close())
	assert.True(t, tailor.closed)
	assert.True(t, coverLetter.closed)
}

func TestNewServiceUnsupportedProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.AI.Provider = "openai"

	_, err := NewService(context.Background(), cfg, nil, testLogger())
	require.Error(t, err)
	assert.True(t, jobtailorErrors.IsType(err, jobtailorErrors.ErrorTypeConfig))
}

func TestNewServiceGemini(t *testing.T) {
	cfg := &config.Config{}
	cfg.AI.Provider = "gemini"
	cfg.AI.Model = "gemini-2.0-flash"
	cfg.AI.APIKey = "test-key"

	service, err := NewService(context.Background(), cfg, nil, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = service.Close() })

	tailor, ok := service.tailor.(*GeminiProvider)
	require.True(t, ok)
	assert.Equal(t, int32(4096), tailor.config.MaxOutputTokens)
	assert.Equal(t, config.OperationTailor, tailor.operationType)

	coverLetter, ok := service.coverLetter.(*GeminiProvider)
	require.True(t, ok)
	assert.Equal(t, int32(2048), coverLetter.config.MaxOutputTokens)
}
