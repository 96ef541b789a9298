package server

import (
	"fmt"
	"sync"
	"time"

	"jobtailor/internal/config"
	"jobtailor/internal/errors"
)

// SecretReader reads KVv2 secrets from Vault
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// APIKeysCallback is called with the rotated API keys, or with the error that prevented reading them
type APIKeysCallback func(keys []string, err error)

// VaultWatcher polls the API keys secret in Vault and reports a new key list
// whenever the secret version moves forward.
type VaultWatcher struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	callback     APIKeysCallback
	logger       *errors.Logger

	stopChan    chan struct{}
	done        chan struct{}
	running     bool
	lastVersion int64
	lastPoll    time.Time
	lastError   string
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client SecretReader, secretPath string, pollInterval time.Duration, callback APIKeysCallback, logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		callback:     callback,
		logger:       logger,
	}
}

// Start records the current secret version and begins polling
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	if vw.pollInterval <= 0 {
		return fmt.Errorf("vault watcher poll interval must be positive, got %s", vw.pollInterval)
	}

	// Keys at the current version were applied at startup
	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil && secret != nil {
		vw.lastVersion = secret.Version
	}

	vw.stopChan = make(chan struct{})
	vw.done = make(chan struct{})
	vw.running = true
	go vw.pollLoop(vw.stopChan, vw.done)

	vw.logger.Info("Vault API key watcher started",
		"secret_path", vw.secretPath,
		"poll_interval", vw.pollInterval,
		"version", vw.lastVersion)
	return nil
}

// Stop stops polling and waits for the poll loop to exit
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	if !vw.running {
		vw.mu.Unlock()
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	done := vw.done
	vw.mu.Unlock()

	<-done
	vw.logger.Info("Vault API key watcher stopped")
	return nil
}

func (vw *VaultWatcher) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-stop:
			return
		}
	}
}

// poll reads the secret once and invokes the callback if its version changed
func (vw *VaultWatcher) poll() {
	secret, changed, err := vw.checkForUpdates()
	if err != nil {
		vw.logger.LogError(err, "Failed to check Vault for API key updates", "secret_path", vw.secretPath)
		vw.callback(nil, err)
		return
	}
	if !changed {
		return
	}

	keys, err := secret.StringList("keys")
	if err != nil {
		err = fmt.Errorf("secret %s: %w", vw.secretPath, err)
		vw.recordError(err)
		vw.logger.LogError(err, "Rotated API keys secret is malformed")
		vw.callback(nil, err)
		return
	}

	vw.logger.Info("API keys rotated in Vault",
		"version", secret.Version,
		"count", len(keys))
	vw.callback(keys, nil)
}

// checkForUpdates reads the secret and reports whether its version is newer than the last one seen
func (vw *VaultWatcher) checkForUpdates() (*config.VaultSecret, bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)

	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastPoll = time.Now()

	if err != nil {
		vw.lastError = err.Error()
		return nil, false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		vw.lastError = "secret not found"
		return nil, false, fmt.Errorf("secret %s not found", vw.secretPath)
	}

	vw.lastError = ""
	if secret.Version > vw.lastVersion {
		vw.lastVersion = secret.Version
		return secret, true, nil
	}
	return secret, false, nil
}

func (vw *VaultWatcher) recordError(err error) {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastError = err.Error()
}

// Status returns the current status of the VaultWatcher for the stats endpoint
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
	}
	if !vw.lastPoll.IsZero() {
		status["last_poll"] = vw.lastPoll.Format(time.RFC3339)
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
