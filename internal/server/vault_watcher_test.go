package server

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"jobtailor/internal/config"
	"jobtailor/internal/errors"
)

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

// MockVaultClient is a mock implementation for testing
type MockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
	err     error
}

func (m *MockVaultClient) GetSecretV2(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, nil
}

func (m *MockVaultClient) set(path string, secret *config.VaultSecret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = secret
}

const apiKeysPath = "secret/data/jobtailor/api-keys"

func keysSecret(version int64, keys string) *config.VaultSecret {
	return &config.VaultSecret{
		Data:    map[string]any{"keys": keys},
		Version: version,
	}
}

func TestVaultWatcherCheckForUpdates(t *testing.T) {
	mockClient := &MockVaultClient{
		secrets: map[string]*config.VaultSecret{apiKeysPath: keysSecret(2, "a")},
	}
	vw := NewVaultWatcher(mockClient, apiKeysPath, time.Minute, func([]string, error) {}, testLogger())

	// Version 0 to 2 is a change
	_, changed, err := vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if !changed {
		t.Error("Expected change to be detected")
	}

	_, changed, err = vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if changed {
		t.Error("Expected no change to be detected")
	}

	mockClient.set(apiKeysPath, nil)
	if _, _, err := vw.checkForUpdates(); err == nil {
		t.Error("Expected an error for a missing secret")
	}
}

func TestVaultWatcherPollDeliversRotatedKeys(t *testing.T) {
	mockClient := &MockVaultClient{
		secrets: map[string]*config.VaultSecret{apiKeysPath: keysSecret(1, "old-key")},
	}

	var got []string
	var gotErr error
	calls := 0
	vw := NewVaultWatcher(mockClient, apiKeysPath, time.Minute, func(keys []string, err error) {
		calls++
		got, gotErr = keys, err
	}, testLogger())
	vw.lastVersion = 1

	vw.poll()
	if calls != 0 {
		t.Fatalf("Expected no callback for an unchanged version, got %d", calls)
	}

	mockClient.set(apiKeysPath, keysSecret(2, " new-key-1 , ,new-key-2"))
	vw.poll()
	if calls != 1 {
		t.Fatalf("Expected one callback, got %d", calls)
	}
	if gotErr != nil {
		t.Fatalf("Unexpected callback error: %v", gotErr)
	}
	if len(got) != 2 || got[0] != "new-key-1" || got[1] != "new-key-2" {
		t.Errorf("Unexpected keys: %v", got)
	}

	mockClient.set(apiKeysPath, &config.VaultSecret{Data: map[string]any{"other": "x"}, Version: 3})
	vw.poll()
	if gotErr == nil {
		t.Error("Expected an error for a secret without keys")
	}
	if status := vw.Status(); status["last_error"] == nil {
		t.Error("Expected last_error in status")
	}
}

func TestVaultWatcherReadFailure(t *testing.T) {
	mockClient := &MockVaultClient{err: fmt.Errorf("permission denied")}

	var gotErr error
	vw := NewVaultWatcher(mockClient, apiKeysPath, time.Minute, func(keys []string, err error) {
		gotErr = err
	}, testLogger())

	vw.poll()
	if gotErr == nil {
		t.Fatal("Expected the read error to reach the callback")
	}
}

func TestVaultWatcherStartStop(t *testing.T) {
	mockClient := &MockVaultClient{
		secrets: map[string]*config.VaultSecret{apiKeysPath: keysSecret(4, "k")},
	}
	vw := NewVaultWatcher(mockClient, apiKeysPath, time.Hour, func([]string, error) {}, testLogger())

	if err := vw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := vw.Start(); err == nil {
		t.Error("Expected an error when starting twice")
	}

	status := vw.Status()
	if status["running"] != true {
		t.Error("Expected watcher to be running")
	}
	if status["last_version"] != int64(4) {
		t.Errorf("Expected the current version to be primed, got %v", status["last_version"])
	}

	if err := vw.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := vw.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
	if vw.Status()["running"] != false {
		t.Error("Expected watcher to be stopped")
	}
}

func TestVaultWatcherRejectsZeroInterval(t *testing.T) {
	vw := NewVaultWatcher(&MockVaultClient{}, apiKeysPath, 0, func([]string, error) {}, testLogger())
	if err := vw.Start(); err == nil {
		t.Error("Expected an error for a zero poll interval")
	}
}
