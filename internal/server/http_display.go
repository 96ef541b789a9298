package server

import (
	"fmt"

	"jobtailor/internal/utils"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health          - Health check (?deep=true probes the models)")
	fmt.Println("  GET  /stats           - Server statistics")
	fmt.Println("  POST /tailor-resume   - Tailor resume and cover letter to a job URL (requires API key)")
	fmt.Println("  POST /extract-job     - Extract a job posting (requires API key)")
	fmt.Println("  GET  /auth            - Start Google authorization")
	fmt.Println("  GET  /oauth2callback  - Google authorization callback")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if count := s.apiKeyCount(); count > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", count)
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /tailor-resume and /extract-job")
		if s.vaultWatcher != nil {
			fmt.Println("  - Keys are refreshed from Vault")
		}
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%s)\n", s.MaxRequestSize, utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
