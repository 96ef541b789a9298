// Package server exposes the tailoring pipeline over HTTP.
package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"jobtailor/internal/ai"
	"jobtailor/internal/config"
	jobtailorErrors "jobtailor/internal/errors"
	"jobtailor/internal/observability"
	"jobtailor/internal/pipeline"
	"jobtailor/internal/scraper"
)

// TailorResumeRequest is the body of POST /tailor-resume
type TailorResumeRequest struct {
	JobURL string `json:"jobUrl"`
}

// ExtractJobRequest is the body of POST /extract-job
type ExtractJobRequest struct {
	JobURL string `json:"jobUrl"`
}

// JobDetails identifies the job a tailoring run was for
type JobDetails struct {
	Company string `json:"company"`
	Title   string `json:"title"`
}

// TailorResumeResponse is returned by a successful POST /tailor-resume
type TailorResumeResponse struct {
	Success          bool       `json:"success"`
	Message          string     `json:"message"`
	ResumeURL        string     `json:"resumeUrl"`
	CoverLetterURL   string     `json:"coverLetterUrl"`
	JobDetails       JobDetails `json:"jobDetails"`
	ExtractionFailed bool       `json:"extractionFailed,omitempty"`
}

// ErrorResponse represents an error response. Stage is set when a pipeline stage failed.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// TailorRunner runs the tailoring pipeline
type TailorRunner interface {
	TailorForJob(ctx context.Context, jobURL string) (*pipeline.Result, error)
}

// JobExtractor turns a job URL into a JobRecord
type JobExtractor interface {
	Fetch(ctx context.Context, url string) scraper.JobRecord
}

// OAuthFlow performs the Google consent flow
type OAuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// AIStatus reports model availability and circuit breaker state
type AIStatus interface {
	GetModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// PromptWatchStatus reports prompt file hot reloading
type PromptWatchStatus interface {
	IsRunning() bool
	WatchedFiles() []string
}

// Dependencies are the collaborators the HTTP handlers call. Any of them
// may be nil, in which case the matching endpoints answer 503.
type Dependencies struct {
	Pipeline      TailorRunner
	Jobs          JobExtractor
	OAuth         OAuthFlow
	AI            AIStatus
	PromptWatcher PromptWatchStatus
	Observability *observability.ObservabilityManager
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication, replaceable at runtime by the Vault watcher
	apiKeysMu sync.RWMutex
	apiKeys   map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	deps         Dependencies
	vaultWatcher *VaultWatcher
	Logger       *jobtailorErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom builds a ServerConfig from the application configuration
func ServerConfigFrom(appCfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		APIKeys:        appCfg.Server.APIKeys,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestBytes,
		RateLimit:      &appCfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *jobtailorErrors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		deps:           deps,
		Logger:         logger,
	}
	s.SetAPIKeys(cfg.APIKeys)
	return s
}

// SetAPIKeys replaces the accepted API keys. Blank keys are ignored.
func (s *Server) SetAPIKeys(keys []string) {
	apiKeyMap := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	s.apiKeysMu.Lock()
	defer s.apiKeysMu.Unlock()
	s.apiKeys = apiKeyMap
}

func (s *Server) apiKeyCount() int {
	s.apiKeysMu.RLock()
	defer s.apiKeysMu.RUnlock()
	return len(s.apiKeys)
}

// checkAPIKey reports whether authentication is required and, if so, whether key is accepted
func (s *Server) checkAPIKey(key string) (required, valid bool) {
	s.apiKeysMu.RLock()
	defer s.apiKeysMu.RUnlock()
	if len(s.apiKeys) == 0 {
		return false, true
	}
	return true, s.apiKeys[key]
}
