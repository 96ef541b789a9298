package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"jobtailor/internal/config"
	jobtailorErrors "jobtailor/internal/errors"
)

// fakeGemini serves the generateContent and models.get endpoints
type fakeGemini struct {
	mu        sync.Mutex
	bodies    []string
	responses []fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

const generateOK = `{
  "candidates": [{"content": {"parts": [{"text": "  Tailored resume text  "}], "role": "model"}}],
  "usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 80, "totalTokenCount": 200}
}`

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash") {
		_, _ = io.WriteString(w, `{"name": "models/gemini-2.0-flash", "displayName": "Gemini 2.0 Flash", "version": "2.0"}`)
		return
	}
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}

	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	resp := fakeResponse{status: http.StatusOK, body: generateOK}
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.mu.Unlock()

	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeGemini) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

type staticPrompts config.OperationLoadedPrompts

func (p staticPrompts) ForOperation(string) config.OperationLoadedPrompts {
	return config.OperationLoadedPrompts(p)
}

func testLogger() *jobtailorErrors.Logger {
	return jobtailorErrors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

func testOperationConfig() *config.OperationAIConfig {
	timeout := 10 * time.Second
	retries := 0
	temperature := float32(0.7)
	useSystem := true
	return &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "gemini-2.0-flash",
		APIKey:           "test-key",
		Timeout:          &timeout,
		MaxRetries:       &retries,
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		UseSystemPrompts: &useSystem,
	}
}

func newTestProvider(t *testing.T, cfg *config.OperationAIConfig, operation string, prompts PromptSource, fake *fakeGemini) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)

	return newGeminiProvider(client, cfg, operation, prompts, testLogger())
}

func testPromptData() PromptData {
	return PromptData{
		Resume:          "Jane Doe, Go developer",
		Template:        "Dear Hiring Manager",
		JobTitle:        "Senior Go Engineer",
		JobCompany:      "Acme",
		JobDescription:  "Build distributed systems",
		JobRequirements: "Requirements: 5 years Go",
		JobURL:          "https://jobs.example.com/1",
	}
}

func TestGenerateTailoredResume(t *testing.T) {
	fake := &fakeGemini{}
	provider := newTestProvider(t, testOperationConfig(), config.OperationTailor, nil, fake)

	text, usage, err := provider.Generate(context.Background(), testPromptData())
	require.NoError(t, err)

	assert.Equal(t, "Tailored resume text", text)
	require.NotNil(t, usage)
	assert.Equal(t, int64(120), usage.InputTokens)
	assert.Equal(t, int64(80), usage.OutputTokens)
	assert.Equal(t, int64(200), usage.TotalTokens)

	requests := fake.requests()
	require.Len(t, requests, 1)
	body := requests[0]
	assert.Contains(t, body, "Title: Senior Go Engineer")
	assert.Contains(t, body, "Company: Acme")
	assert.Contains(t, body, "Jane Doe, Go developer")
	assert.Contains(t, body, "Requirements: 5 years Go")
	assert.Contains(t, body, "Please provide ONLY the tailored resume text")
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "You are an expert resume writer")
	assert.Contains(t, body, `"maxOutputTokens":4096`)
}

func TestGenerateCoverLetterPrompt(t *testing.T) {
	fake := &fakeGemini{}
	cfg := testOperationConfig()
	cfg.MaxOutputTokens = 2048
	provider := newTestProvider(t, cfg, config.OperationCoverLetter, nil, fake)

	_, _, err := provider.Generate(context.Background(), testPromptData())
	require.NoError(t, err)

	body := fake.requests()[0]
	assert.Contains(t, body, "COVER LETTER TEMPLATE")
	assert.Contains(t, body, "Dear Hiring Manager")
	assert.Contains(t, body, "You are an expert career coach")
	assert.Contains(t, body, `"maxOutputTokens":2048`)
}

func TestGenerateWithoutSystemPrompts(t *testing.T) {
	fake := &fakeGemini{}
	cfg := testOperationConfig()
	useSystem := false
	cfg.UseSystemPrompts = &useSystem
	provider := newTestProvider(t, cfg, config.OperationTailor, nil, fake)

	_, _, err := provider.Generate(context.Background(), testPromptData())
	require.NoError(t, err)

	body := fake.requests()[0]
	assert.NotContains(t, body, "systemInstruction")
	assert.Contains(t, body, "You are an expert resume writer", "role text moves into the user prompt")
}

func TestGeneratePromptPriority(t *testing.T) {
	cfg := testOperationConfig()
	cfg.CustomPrompts.UserPrompts.TailorResume = "Configured prompt for {{.JobCompany}}"

	t.Run("configured prompt overrides default", func(t *testing.T) {
		fake := &fakeGemini{}
		provider := newTestProvider(t, cfg, config.OperationTailor, nil, fake)

		_, _, err := provider.Generate(context.Background(), testPromptData())
		require.NoError(t, err)
		assert.Contains(t, fake.requests()[0], "Configured prompt for Acme")
	})

	t.Run("file prompt overrides configured prompt", func(t *testing.T) {
		fake := &fakeGemini{}
		var loaded config.OperationLoadedPrompts
		loaded.UserPrompts.TailorResume = "File prompt for {{.JobTitle}}"
		provider := newTestProvider(t, cfg, config.OperationTailor, staticPrompts(loaded), fake)

		_, _, err := provider.Generate(context.Background(), testPromptData())
		require.NoError(t, err)
		body := fake.requests()[0]
		assert.Contains(t, body, "File prompt for Senior Go Engineer")
		assert.NotContains(t, body, "Configured prompt")
	})
}

func TestGenerateInvalidTemplate(t *testing.T) {
	fake := &fakeGemini{}
	cfg := testOperationConfig()
	cfg.CustomPrompts.UserPrompts.TailorResume = "Hello {{.Salary}}"
	provider := newTestProvider(t, cfg, config.OperationTailor, nil, fake)

	_, _, err := provider.Generate(context.Background(), testPromptData())
	require.Error(t, err)

	var appErr *jobtailorErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, jobtailorErrors.ErrCodeAIPromptInvalid, appErr.Code)
	assert.Empty(t, fake.requests(), "model must not be called with a broken prompt")
}

func TestGenerateEmptyResponse(t *testing.T) {
	fake := &fakeGemini{responses: []fakeResponse{{
		status: http.StatusOK,
		body:   `{"candidates": [{"content": {"parts": [{"text": "   "}], "role": "model"}}]}`,
	}}}
	provider := newTestProvider(t, testOperationConfig(), config.OperationTailor, nil, fake)

	_, _, err := provider.Generate(context.Background(), testPromptData())

	var appErr *jobtailorErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, jobtailorErrors.ErrCodeAIEmptyResponse, appErr.Code)
}

func TestGenerateAPIError(t *testing.T) {
	fake := &fakeGemini{responses: []fakeResponse{{
		status: http.StatusBadRequest,
		body:   `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`,
	}}}
	cfg := testOperationConfig()
	retries := 3
	cfg.MaxRetries = &retries
	provider := newTestProvider(t, cfg, config.OperationTailor, nil, fake)

	_, _, err := provider.Generate(context.Background(), testPromptData())

	var appErr *jobtailorErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, jobtailorErrors.ErrCodeAIServiceFailed, appErr.Code)
	assert.Len(t, fake.requests(), 1, "client errors are not retried")
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	fake := &fakeGemini{responses: []fakeResponse{{
		status: http.StatusServiceUnavailable,
		body:   `{"error": {"code": 503, "message": "overloaded", "status": "UNAVAILABLE"}}`,
	}}}
	cfg := testOperationConfig()
	retries := 1
	cfg.MaxRetries = &retries
	provider := newTestProvider(t, cfg, config.OperationTailor, nil, fake)

	text, _, err := provider.Generate(context.Background(), testPromptData())
	require.NoError(t, err)
	assert.Equal(t, "Tailored resume text", text)
	assert.Len(t, fake.requests(), 2)
}

func TestGenerateOpenCircuitBreaker(t *testing.T) {
	fake := &fakeGemini{responses: []fakeResponse{{
		status: http.StatusBadRequest,
		body:   `{"error": {"code": 400, "message": "bad request", "status": "INVALID_ARGUMENT"}}`,
	}}}
	cfg := testOperationConfig()
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      1,
		FailureThreshold: 0.5,
	}
	provider := newTestProvider(t, cfg, config.OperationTailor, nil, fake)

	_, _, err := provider.Generate(context.Background(), testPromptData())
	require.Error(t, err)
	_, _, err = provider.Generate(context.Background(), testPromptData())
	require.Error(t, err)

	assert.Len(t, fake.requests(), 1, "open breaker short-circuits the second call")
	stats := provider.GetCircuitBreakerStats()
	assert.Equal(t, false, stats["overall_healthy"])
}

func TestGetModelInfo(t *testing.T) {
	provider := newTestProvider(t, testOperationConfig(), config.OperationTailor, nil, &fakeGemini{})

	info := provider.GetModelInfo(context.Background())
	assert.True(t, info.Available, info.Error)
	assert.Equal(t, "gemini-2.0-flash", info.Name)
	assert.Equal(t, "Gemini 2.0 Flash", info.DisplayName)
	assert.Equal(t, "2.0", info.Version)
}

func TestGetModelInfoUnavailable(t *testing.T) {
	cfg := testOperationConfig()
	cfg.Model = "gemini-unknown"
	provider := newTestProvider(t, cfg, config.OperationTailor, nil, &fakeGemini{})

	info := provider.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.NotEmpty(t, info.Error)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"network error", timeoutError{}, true},
		{"genai rate limited", genai.APIError{Code: http.StatusTooManyRequests}, true},
		{"genai unavailable", genai.APIError{Code: http.StatusServiceUnavailable}, true},
		{"genai bad request", genai.APIError{Code: http.StatusBadRequest}, false},
		{"googleapi gateway timeout", &googleapi.Error{Code: http.StatusGatewayTimeout}, true},
		{"googleapi forbidden", &googleapi.Error{Code: http.StatusForbidden}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableError(tt.err))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, time.Second, 1100 * time.Millisecond},
		{2, 2 * time.Second, 2200 * time.Millisecond},
		{3, 4 * time.Second, 4400 * time.Millisecond},
		{10, 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		delay := backoffDelay(tt.attempt)
		assert.GreaterOrEqual(t, delay, tt.min, "attempt %d", tt.attempt)
		assert.LessOrEqual(t, delay, tt.max, "attempt %d", tt.attempt)
	}
}
