package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyLegacyEnvFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyGoogleDefaults()
	c.applyObservabilityDefaults()
}

// legacyEnv maps the environment variable names of earlier deployments to
// the config field they fill when the field is still empty.
func (c *Config) legacyEnv() []struct {
	name   string
	target *string
} {
	return []struct {
		name   string
		target *string
	}{
		{"GEMINI_API_KEY", &c.AI.APIKey},
		{"RESUME_DOC_ID", &c.Docs.ResumeDocID},
		{"COVER_LETTER_TEMPLATE_DOC_ID", &c.Docs.CoverLetterTemplateDocID},
		{"OUTPUT_FOLDER_ID", &c.Docs.OutputFolderID},
		{"GOOGLE_CLIENT_ID", &c.Google.ClientID},
		{"GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret},
		{"GOOGLE_REDIRECT_URI", &c.Google.RedirectURL},
		{"GOOGLE_REFRESH_TOKEN", &c.Google.RefreshToken},
	}
}

// applyLegacyEnvFallbacks fills unset values from legacy environment variables
func (c *Config) applyLegacyEnvFallbacks() {
	for _, env := range c.legacyEnv() {
		if *env.target != "" {
			continue
		}
		if value := strings.TrimSpace(os.Getenv(env.name)); value != "" {
			*env.target = value
		}
	}

	// PORT overrides the default port only; an explicit JOBTAILOR_SERVER_PORT wins
	if port := os.Getenv("PORT"); port != "" && os.Getenv("JOBTAILOR_SERVER_PORT") == "" {
		c.Server.Port = port
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("JOBTAILOR_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyGoogleDefaults fills the OAuth redirect URL and scopes when unset
func (c *Config) applyGoogleDefaults() {
	if c.Google.RedirectURL == "" {
		c.Google.RedirectURL = fmt.Sprintf("http://localhost:%s/oauth2callback", c.Server.Port)
	}
	if len(c.Google.Scopes) == 0 {
		c.Google.Scopes = append([]string(nil), DefaultGoogleScopes...)
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// isSensitiveEnv reports whether an environment variable carries a secret
func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "secret", "token"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"JOBTAILOR_AI_APIKEY",
		"JOBTAILOR_AI_MODEL",
		"JOBTAILOR_DOCS_RESUMEDOCID",
		"JOBTAILOR_DOCS_COVERLETTERTEMPLATEDOCID",
		"JOBTAILOR_GOOGLE_CLIENTID",
		"JOBTAILOR_GOOGLE_CLIENTSECRET",
		"JOBTAILOR_GOOGLE_REFRESHTOKEN",
		"JOBTAILOR_SERVER_PORT",
		"JOBTAILOR_SERVER_HOST",
		"JOBTAILOR_APP_LOGLEVEL",
		"JOBTAILOR_VAULT_ENABLED",
		"PORT",
	}
	for _, env := range c.legacyEnv() {
		envVars = append(envVars, env.name)
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	log.Printf("[CONFIG] AI API Key: %s", configuredLabel(c.AI.APIKey))
	log.Printf("[CONFIG] Resume Doc ID: %s", valueOrUnset(c.Docs.ResumeDocID))
	log.Printf("[CONFIG] Cover Letter Template Doc ID: %s", valueOrUnset(c.Docs.CoverLetterTemplateDocID))
	log.Printf("[CONFIG] Output Folder ID: %s", valueOrUnset(c.Docs.OutputFolderID))
	log.Printf("[CONFIG] Google OAuth Client: %s", configuredLabel(c.Google.ClientID))
	log.Printf("[CONFIG] Google Refresh Token: %s", configuredLabel(c.Google.RefreshToken))
	log.Printf("[CONFIG] Scraper Timeout: %s", c.Scraper.Timeout)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	log.Printf("[CONFIG] Tailor - Provider: %s, Model: %s", c.AI.Tailor.Provider, c.AI.Tailor.Model)
	log.Printf("[CONFIG] CoverLetter - Provider: %s, Model: %s", c.AI.CoverLetter.Provider, c.AI.CoverLetter.Model)

	log.Println("[CONFIG] =====================================")
}

func configuredLabel(value string) string {
	if value != "" {
		return "***CONFIGURED***"
	}
	return "***NOT SET***"
}

func valueOrUnset(value string) string {
	if value != "" {
		return value
	}
	return "(not set)"
}
