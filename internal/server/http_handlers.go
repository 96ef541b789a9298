package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"
)

const deepHealthCheckTimeout = 10 * time.Second

// healthHandler reports liveness. With ?deep=true it also probes the language models.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "ok",
		"message": "Resume Tailor Service is running",
		"service": "jobtailor",
		"version": s.Version,
		"components": map[string]bool{
			"pipeline":       s.deps.Pipeline != nil,
			"job_extraction": s.deps.Jobs != nil,
			"oauth":          s.deps.OAuth != nil,
		},
	}

	if s.deps.AI != nil {
		response["circuit_breakers"] = s.deps.AI.GetCircuitBreakerStats()
	}

	status := http.StatusOK
	if r.URL.Query().Get("deep") == "true" && s.deps.AI != nil {
		ctx, cancel := context.WithTimeout(r.Context(), deepHealthCheckTimeout)
		defer cancel()

		models := s.deps.AI.GetModelInfo(ctx)
		response["ai_models"] = models
		for _, info := range models {
			if info == nil || !info.Available {
				response["status"] = "degraded"
				status = http.StatusServiceUnavailable
				break
			}
		}
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "jobtailor",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    s.apiKeyCount(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.deps.AI != nil {
		response["circuit_breakers"] = s.deps.AI.GetCircuitBreakerStats()
	}

	if s.AppConfig != nil {
		prompts := map[string]any{
			"version":       s.AppConfig.Prompts().Version(),
			"watch_enabled": s.deps.PromptWatcher != nil,
		}
		if s.deps.PromptWatcher != nil {
			prompts["watcher_running"] = s.deps.PromptWatcher.IsRunning()
			prompts["watched_files"] = s.deps.PromptWatcher.WatchedFiles()
		}
		response["prompts"] = prompts
	}

	if s.vaultWatcher != nil {
		response["vault_api_keys"] = s.vaultWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
