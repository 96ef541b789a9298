package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtailor/internal/errors"
)

func newMockLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

// newFakeVault serves sys/health and the given KVv2 secrets, keyed by
// request path (e.g. "/v1/secret/data/jobtailor/gemini").
func newFakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/v1/sys/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"initialized": true,
				"sealed":      false,
				"standby":     false,
				"version":     "1.15.0",
			})
			return
		}

		data, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "invalid json number", input: json.Number("1.5"), expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/test")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDecodeKVv2(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		expectError bool
		expected    *VaultSecret
	}{
		{
			name: "valid KVv2 secret",
			raw: map[string]any{
				"data":     map[string]any{"api_key": "abc"},
				"metadata": map[string]any{"version": float64(2)},
			},
			expected: &VaultSecret{Data: map[string]any{"api_key": "abc"}, Version: 2},
		},
		{
			name:        "missing data field",
			raw:         map[string]any{"metadata": map[string]any{"version": float64(1)}},
			expectError: true,
		},
		{
			name:        "data field wrong type",
			raw:         map[string]any{"data": "not-a-map", "metadata": map[string]any{}},
			expectError: true,
		},
		{
			name:        "missing metadata",
			raw:         map[string]any{"data": map[string]any{}},
			expectError: true,
		},
		{
			name: "missing version",
			raw: map[string]any{
				"data":     map[string]any{},
				"metadata": map[string]any{"other": "value"},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := decodeKVv2(tt.raw, "secret/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, secret)
		})
	}
}

func TestApplyGeminiKeyToConfig(t *testing.T) {
	t.Run("fills every operation", func(t *testing.T) {
		config := &Config{}
		applyGeminiKeyToConfig(config, "test-gemini-key")

		assert.Equal(t, "test-gemini-key", config.AI.APIKey)
		assert.Equal(t, "test-gemini-key", config.AI.Tailor.APIKey)
		assert.Equal(t, "test-gemini-key", config.AI.CoverLetter.APIKey)
	})

	t.Run("keeps operation keys", func(t *testing.T) {
		config := &Config{AI: AIConfig{Tailor: OperationAIConfig{APIKey: "existing-tailor-key"}}}
		applyGeminiKeyToConfig(config, "test-gemini-key")

		assert.Equal(t, "test-gemini-key", config.AI.APIKey)
		assert.Equal(t, "existing-tailor-key", config.AI.Tailor.APIKey)
		assert.Equal(t, "test-gemini-key", config.AI.CoverLetter.APIKey)
	})
}

func TestApplyGoogleOAuthSecret(t *testing.T) {
	t.Run("partial secret keeps other fields", func(t *testing.T) {
		config := &Config{Google: GoogleConfig{ClientID: "from-env", ClientSecret: "env-secret"}}
		secret := &VaultSecret{Data: map[string]any{"refresh_token": "vault-refresh"}}

		require.NoError(t, applyGoogleOAuthSecret(secret, config, newMockLogger()))
		assert.Equal(t, "from-env", config.Google.ClientID)
		assert.Equal(t, "env-secret", config.Google.ClientSecret)
		assert.Equal(t, "vault-refresh", config.Google.RefreshToken)
	})

	t.Run("empty secret is an error", func(t *testing.T) {
		secret := &VaultSecret{Data: map[string]any{"unrelated": "x"}}
		assert.Error(t, applyGoogleOAuthSecret(secret, &Config{}, nil))
	})
}

func TestResolveVaultToken(t *testing.T) {
	logger := newMockLogger()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("config token wins over file", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token", TokenFile: "/nonexistent"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token\n"), 0o600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token"}, logger)
		assert.Error(t, err)
	})

	t.Run("no token at all", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("\n"), 0o600))

		_, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		assert.Error(t, err)
	})
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****mnop", maskSecret("abcdefghijklmnop"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	config := &Config{AI: AIConfig{APIKey: "original"}}

	require.NoError(t, ApplyVaultSecrets(config, newMockLogger()))
	assert.Equal(t, "original", config.AI.APIKey)
}

func TestApplyVaultSecrets(t *testing.T) {
	vault := newFakeVault(t, map[string]map[string]any{
		"/v1/secret/data/jobtailor/api-keys": {"keys": "key-one, key-two ,"},
		"/v1/secret/data/jobtailor/gemini":   {"api_key": "vault-gemini-key"},
		"/v1/secret/data/jobtailor/google": {
			"client_id":     "vault-client",
			"client_secret": "vault-secret",
			"refresh_token": "vault-refresh",
		},
	})

	config := &Config{
		AI:     AIConfig{APIKey: "env-key"},
		Google: GoogleConfig{ClientID: "env-client"},
		Vault: VaultConfig{
			Enabled: true,
			Address: vault.URL,
			Token:   "test-token",
			Secrets: VaultSecrets{
				APIKeys:     "secret/data/jobtailor/api-keys",
				GeminiKey:   "secret/data/jobtailor/gemini",
				GoogleOAuth: "secret/data/jobtailor/google",
			},
		},
	}

	require.NoError(t, ApplyVaultSecrets(config, newMockLogger()))

	assert.Equal(t, []string{"key-one", "key-two"}, config.Server.APIKeys)
	assert.Equal(t, "vault-gemini-key", config.AI.APIKey)
	assert.Equal(t, "vault-gemini-key", config.GetTailorConfig().APIKey)
	assert.Equal(t, "vault-client", config.Google.ClientID)
	assert.Equal(t, "vault-secret", config.Google.ClientSecret)
	assert.Equal(t, "vault-refresh", config.Google.RefreshToken)
}

func TestApplyVaultSecretsMissingSecret(t *testing.T) {
	vault := newFakeVault(t, nil)

	config := &Config{
		Vault: VaultConfig{
			Enabled: true,
			Address: vault.URL,
			Token:   "test-token",
			Secrets: VaultSecrets{GeminiKey: "secret/data/jobtailor/gemini"},
		},
	}

	err := ApplyVaultSecrets(config, newMockLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret/data/jobtailor/gemini")
	assert.Empty(t, config.AI.APIKey)
}

func TestGetStringSecret(t *testing.T) {
	vault := newFakeVault(t, map[string]map[string]any{
		"/v1/secret/data/app": {"name": "value", "count": 3},
	})

	client, err := NewVaultClient(VaultConfig{Enabled: true, Address: vault.URL, Token: "t"}, newMockLogger())
	require.NoError(t, err)

	value, err := client.GetStringSecret("secret/data/app", "name")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	_, err = client.GetStringSecret("secret/data/app", "missing")
	assert.Error(t, err)

	_, err = client.GetStringSecret("secret/data/app", "count")
	assert.Error(t, err)

	secret, err := client.GetSecretV2("secret/data/app")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
}

func TestNilVaultClient(t *testing.T) {
	var client *VaultClient
	_, err := client.GetSecretV2("secret/data/app")
	assert.Error(t, err)
}
