package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfigFile(t, "app:\n  logLevel: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, int64(5*1024*1024), cfg.Scraper.MaxBodyBytes)
	assert.Equal(t, DefaultGoogleScopes, cfg.Google.Scopes)
	assert.Equal(t, "http://localhost:3000/oauth2callback", cfg.Google.RedirectURL)

	tailor := cfg.GetTailorConfig()
	assert.Equal(t, int32(4096), tailor.MaxOutputTokens)
	assert.Equal(t, 90*time.Second, *tailor.Timeout)
	assert.Equal(t, "gemini-2.0-flash", tailor.Model)
	assert.True(t, tailor.CircuitBreaker.Enabled)

	coverLetter := cfg.GetCoverLetterConfig()
	assert.Equal(t, int32(2048), coverLetter.MaxOutputTokens)
	assert.InDelta(t, 0.8, float64(*coverLetter.Temperature), 0.0001)
}

func TestLoadConfigFileValues(t *testing.T) {
	path := writeConfigFile(t, `
ai:
  apiKey: file-key
  model: gemini-2.5-pro
  coverLetter:
    model: gemini-2.0-flash
docs:
  resumeDocId: resume-123
  coverLetterTemplateDocId: template-456
  outputFolderId: folder-789
google:
  clientId: client
  clientSecret: secret
  refreshToken: refresh
server:
  port: "8080"
  apiKeys: ["k1", "k2"]
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "resume-123", cfg.Docs.ResumeDocID)
	assert.Equal(t, "template-456", cfg.Docs.CoverLetterTemplateDocID)
	assert.Equal(t, "folder-789", cfg.Docs.OutputFolderID)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "gemini-2.5-pro", cfg.GetTailorConfig().Model)
	assert.Equal(t, "gemini-2.0-flash", cfg.GetCoverLetterConfig().Model)
	assert.Equal(t, "file-key", cfg.GetCoverLetterConfig().APIKey)
	assert.NoError(t, cfg.ValidateForPipeline())
}

func TestLoadConfigFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "app:\n  logLevel: chatty\n"},
		{"bad default format", "app:\n  defaultFormat: pdf\n"},
		{"missing prompt file", "ai:\n  customPrompts:\n    systemPrompts:\n      tailorResumeFile: /nonexistent/prompt.md\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLegacyEnvFallbacks(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "legacy-gemini")
	t.Setenv("RESUME_DOC_ID", "legacy-resume")
	t.Setenv("COVER_LETTER_TEMPLATE_DOC_ID", "legacy-template")
	t.Setenv("OUTPUT_FOLDER_ID", "legacy-folder")
	t.Setenv("GOOGLE_CLIENT_ID", "legacy-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "legacy-secret")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://example.com/oauth2callback")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "legacy-refresh")
	t.Setenv("PORT", "4000")

	cfg, err := LoadConfigFile(writeConfigFile(t, "app:\n  logLevel: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "legacy-gemini", cfg.GetTailorConfig().APIKey)
	assert.Equal(t, "legacy-resume", cfg.Docs.ResumeDocID)
	assert.Equal(t, "legacy-template", cfg.Docs.CoverLetterTemplateDocID)
	assert.Equal(t, "legacy-folder", cfg.Docs.OutputFolderID)
	assert.Equal(t, "legacy-client", cfg.Google.ClientID)
	assert.Equal(t, "legacy-secret", cfg.Google.ClientSecret)
	assert.Equal(t, "https://example.com/oauth2callback", cfg.Google.RedirectURL)
	assert.Equal(t, "legacy-refresh", cfg.Google.RefreshToken)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.NoError(t, cfg.ValidateForPipeline())
}

func TestLegacyEnvDoesNotOverrideConfiguredValues(t *testing.T) {
	t.Setenv("RESUME_DOC_ID", "legacy-resume")
	t.Setenv("PORT", "4000")
	t.Setenv("JOBTAILOR_SERVER_PORT", "5000")

	cfg, err := LoadConfigFile(writeConfigFile(t, "docs:\n  resumeDocId: configured\n"))
	require.NoError(t, err)

	assert.Equal(t, "configured", cfg.Docs.ResumeDocID)
	assert.Equal(t, "5000", cfg.Server.Port)
}

func TestValidateForPipeline(t *testing.T) {
	complete := func() *Config {
		return &Config{
			AI:     AIConfig{APIKey: "key"},
			Docs:   DocsConfig{ResumeDocID: "r", CoverLetterTemplateDocID: "c"},
			Google: GoogleConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"},
		}
	}

	require.NoError(t, complete().ValidateForPipeline())

	tests := []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{"missing AI key", func(c *Config) { c.AI.APIKey = "" }, "AI API key"},
		{"missing resume", func(c *Config) { c.Docs.ResumeDocID = "" }, "resume document id"},
		{"missing template", func(c *Config) { c.Docs.CoverLetterTemplateDocID = "" }, "cover letter template"},
		{"missing client", func(c *Config) { c.Google.ClientSecret = "" }, "client id and secret"},
		{"missing refresh token", func(c *Config) { c.Google.RefreshToken = "" }, "refresh token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := complete()
			tt.mutate(cfg)
			err := cfg.ValidateForPipeline()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}

	t.Run("operation key is enough", func(t *testing.T) {
		cfg := complete()
		cfg.AI.APIKey = ""
		cfg.AI.Tailor.APIKey = "tailor"
		cfg.AI.CoverLetter.APIKey = "cover"
		assert.NoError(t, cfg.ValidateForPipeline())
	})

	t.Run("output folder is optional", func(t *testing.T) {
		cfg := complete()
		cfg.Docs.OutputFolderID = ""
		assert.NoError(t, cfg.ValidateForPipeline())
	})
}

func TestOperationPromptFallback(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{
				SystemPrompts: SystemPrompts{TailorResume: "global tailor", CoverLetter: "global cover"},
			},
			CoverLetter: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompts: SystemPrompts{CoverLetter: "operation cover"},
				},
			},
		},
	}

	assert.Equal(t, "global tailor", cfg.GetTailorConfig().CustomPrompts.SystemPrompts.TailorResume)
	assert.Equal(t, "operation cover", cfg.GetCoverLetterConfig().CustomPrompts.SystemPrompts.CoverLetter)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b ,"))
	assert.Empty(t, splitAndTrim(""))
}
