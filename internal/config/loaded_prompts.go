package config

import (
	"sync"
)

// LoadedSystemPrompts contains loaded system-level instructions
type LoadedSystemPrompts struct {
	TailorResume string
	CoverLetter  string
}

// LoadedUserPrompts contains loaded user-level prompt templates
type LoadedUserPrompts struct {
	TailorResume string
	CoverLetter  string
}

// OperationLoadedPrompts holds loaded prompts for a specific operation
type OperationLoadedPrompts struct {
	SystemPrompts LoadedSystemPrompts
	UserPrompts   LoadedUserPrompts
}

// AllLoadedPrompts holds all loaded prompts for all operations
type AllLoadedPrompts struct {
	Global      OperationLoadedPrompts
	Tailor      OperationLoadedPrompts
	CoverLetter OperationLoadedPrompts
}

// Count returns how many prompts hold content
func (p AllLoadedPrompts) Count() int {
	count := 0
	for _, op := range []OperationLoadedPrompts{p.Global, p.Tailor, p.CoverLetter} {
		for _, content := range []string{
			op.SystemPrompts.TailorResume,
			op.SystemPrompts.CoverLetter,
			op.UserPrompts.TailorResume,
			op.UserPrompts.CoverLetter,
		} {
			if content != "" {
				count++
			}
		}
	}
	return count
}

// PromptStore holds prompts loaded from files. It is swapped wholesale
// when the prompt watcher reloads, so readers always see a consistent set.
type PromptStore struct {
	mu      sync.RWMutex
	prompts AllLoadedPrompts
	version int
}

// NewPromptStore creates an empty prompt store
func NewPromptStore() *PromptStore {
	return &PromptStore{}
}

// Set replaces all loaded prompts
func (s *PromptStore) Set(prompts AllLoadedPrompts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = prompts
	s.version++
}

// Snapshot returns a copy of all loaded prompts
func (s *PromptStore) Snapshot() AllLoadedPrompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts
}

// Version increases every time Set is called
func (s *PromptStore) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ForOperation returns the prompts for an operation, with globally loaded
// prompts filling in whatever the operation does not define itself.
func (s *PromptStore) ForOperation(operationType string) OperationLoadedPrompts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result OperationLoadedPrompts
	switch operationType {
	case OperationTailor:
		result = s.prompts.Tailor
	case OperationCoverLetter:
		result = s.prompts.CoverLetter
	default:
		return s.prompts.Global
	}

	global := s.prompts.Global
	fallback(&result.SystemPrompts.TailorResume, global.SystemPrompts.TailorResume)
	fallback(&result.SystemPrompts.CoverLetter, global.SystemPrompts.CoverLetter)
	fallback(&result.UserPrompts.TailorResume, global.UserPrompts.TailorResume)
	fallback(&result.UserPrompts.CoverLetter, global.UserPrompts.CoverLetter)

	return result
}
