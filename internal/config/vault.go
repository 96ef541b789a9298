package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"jobtailor/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// APIKeyRefreshInterval makes the server poll the API keys secret and
	// swap in rotated keys. Zero disables polling.
	APIKeyRefreshInterval time.Duration `mapstructure:"apiKeyRefreshInterval"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault. All paths point at
// KVv2 secrets.
type VaultSecrets struct {
	// APIKeys holds a comma-separated "keys" value, e.g. "key1,key2"
	APIKeys string `mapstructure:"apiKeys"`
	// GeminiKey holds an "api_key" value
	GeminiKey string `mapstructure:"geminiKey"`
	// GoogleOAuth holds "client_id", "client_secret" and "refresh_token"
	GoogleOAuth string `mapstructure:"googleOAuth"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a Vault client from configuration. It returns nil
// without error when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Debug("Initializing Vault client",
			"address", config.Address,
			"namespace", config.Namespace,
			"token_file", config.TokenFile,
			"has_token", config.Token != "")
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeVaultUnavailable, "failed to create vault client", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeVaultUnavailable, "failed to connect to vault", err).
			WithContext("address", vaultConfig.Address)
	}

	if logger != nil {
		logger.Info("Successfully connected to Vault",
			"address", vaultConfig.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		if logger != nil {
			logger.Debug("Reading Vault token from file", "file", config.TokenFile)
		}
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}

	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	if vc.logger != nil {
		vc.logger.Debug("Reading secret from Vault", "path", path)
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return decodeKVv2(secret.Data, path)
}

// decodeKVv2 splits a raw KVv2 response into its data and version
func decodeKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from the JSON types Vault may return
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// String returns the string value stored under key
func (s *VaultSecret) String(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret", key)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	return strValue, nil
}

// StringList returns the comma-separated list stored under key, with blanks dropped
func (s *VaultSecret) StringList(key string) ([]string, error) {
	value, err := s.String(key)
	if err != nil {
		return nil, err
	}
	return splitAndTrim(value), nil
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, err := secret.String(key)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", path, err)
	}

	if vc.logger != nil {
		vc.logger.Debug("String secret retrieved from Vault",
			"path", path,
			"key", key,
			"masked_value", maskSecret(value))
	}

	return value, nil
}

func maskSecret(value string) string {
	switch {
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	case value != "":
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config.
// Vault values take precedence over every other configuration source.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil
	}

	if logger != nil {
		logger.Info("Loading secrets from Vault",
			"api_keys_path", config.Vault.Secrets.APIKeys,
			"gemini_key_path", config.Vault.Secrets.GeminiKey,
			"google_oauth_path", config.Vault.Secrets.GoogleOAuth)
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	return applySecrets(client, config, logger)
}

func applySecrets(client *VaultClient, config *Config, logger *errors.Logger) error {
	loaders := []struct {
		path string
		load func(*VaultSecret, *Config, *errors.Logger) error
	}{
		{config.Vault.Secrets.APIKeys, applyAPIKeysSecret},
		{config.Vault.Secrets.GeminiKey, applyGeminiKeySecret},
		{config.Vault.Secrets.GoogleOAuth, applyGoogleOAuthSecret},
	}

	for _, loader := range loaders {
		if loader.path == "" {
			continue
		}
		secret, err := client.GetSecretV2(loader.path)
		if err != nil {
			return fmt.Errorf("failed to load vault secret %s: %w", loader.path, err)
		}
		if err := loader.load(secret, config, logger); err != nil {
			return fmt.Errorf("vault secret %s: %w", loader.path, err)
		}
	}

	if logger != nil {
		logger.Info("Successfully completed applying secrets from Vault")
	}
	return nil
}

func applyAPIKeysSecret(secret *VaultSecret, config *Config, logger *errors.Logger) error {
	apiKeys, err := secret.StringList("keys")
	if err != nil {
		return err
	}

	if len(apiKeys) == 0 {
		if logger != nil {
			logger.Warn("No API keys found in Vault")
		}
		return nil
	}

	config.Server.APIKeys = apiKeys
	if logger != nil {
		logger.Info("API keys loaded from Vault", "count", len(apiKeys), "version", secret.Version)
	}
	return nil
}

func applyGeminiKeySecret(secret *VaultSecret, config *Config, logger *errors.Logger) error {
	geminiKey, err := secret.String("api_key")
	if err != nil {
		return err
	}
	if geminiKey == "" {
		if logger != nil {
			logger.Warn("Empty Gemini API key found in Vault")
		}
		return nil
	}

	applyGeminiKeyToConfig(config, geminiKey)
	if logger != nil {
		logger.Info("Gemini API key loaded from Vault and applied to all AI configurations")
	}
	return nil
}

// applyGeminiKeyToConfig applies the Gemini API key to the global AI config
// and to every operation that has no key of its own
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	config.AI.APIKey = geminiKey
	fallback(&config.AI.Tailor.APIKey, geminiKey)
	fallback(&config.AI.CoverLetter.APIKey, geminiKey)
}

// applyGoogleOAuthSecret copies whichever OAuth fields the secret carries
func applyGoogleOAuthSecret(secret *VaultSecret, config *Config, logger *errors.Logger) error {
	fields := []struct {
		key    string
		target *string
	}{
		{"client_id", &config.Google.ClientID},
		{"client_secret", &config.Google.ClientSecret},
		{"refresh_token", &config.Google.RefreshToken},
	}

	applied := 0
	for _, field := range fields {
		if value, ok := secret.Data[field.key].(string); ok && value != "" {
			*field.target = value
			applied++
		}
	}

	if applied == 0 {
		return fmt.Errorf("no Google OAuth fields found (expected client_id, client_secret or refresh_token)")
	}
	if logger != nil {
		logger.Info("Google OAuth credentials loaded from Vault", "fields", applied)
	}
	return nil
}
