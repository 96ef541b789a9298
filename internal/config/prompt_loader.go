package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile is one configured prompt file and the slot its content fills
type promptFile struct {
	path       string
	promptType string // "system" or "user", optionally prefixed by the operation
	operation  string
	target     func(*AllLoadedPrompts) *string
}

// promptFiles lists every prompt file configured globally or per operation
func (c *Config) promptFiles() []promptFile {
	candidates := []promptFile{
		{c.AI.CustomPrompts.SystemPrompts.TailorResumeFile, "system", "tailorResume",
			func(p *AllLoadedPrompts) *string { return &p.Global.SystemPrompts.TailorResume }},
		{c.AI.CustomPrompts.SystemPrompts.CoverLetterFile, "system", "coverLetter",
			func(p *AllLoadedPrompts) *string { return &p.Global.SystemPrompts.CoverLetter }},
		{c.AI.CustomPrompts.UserPrompts.TailorResumeFile, "user", "tailorResume",
			func(p *AllLoadedPrompts) *string { return &p.Global.UserPrompts.TailorResume }},
		{c.AI.CustomPrompts.UserPrompts.CoverLetterFile, "user", "coverLetter",
			func(p *AllLoadedPrompts) *string { return &p.Global.UserPrompts.CoverLetter }},

		{c.AI.Tailor.CustomPrompts.SystemPrompts.TailorResumeFile, "tailor system", "tailorResume",
			func(p *AllLoadedPrompts) *string { return &p.Tailor.SystemPrompts.TailorResume }},
		{c.AI.Tailor.CustomPrompts.UserPrompts.TailorResumeFile, "tailor user", "tailorResume",
			func(p *AllLoadedPrompts) *string { return &p.Tailor.UserPrompts.TailorResume }},
		{c.AI.CoverLetter.CustomPrompts.SystemPrompts.CoverLetterFile, "coverLetter system", "coverLetter",
			func(p *AllLoadedPrompts) *string { return &p.CoverLetter.SystemPrompts.CoverLetter }},
		{c.AI.CoverLetter.CustomPrompts.UserPrompts.CoverLetterFile, "coverLetter user", "coverLetter",
			func(p *AllLoadedPrompts) *string { return &p.CoverLetter.UserPrompts.CoverLetter }},
	}

	files := make([]promptFile, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.path != "" {
			files = append(files, candidate)
		}
	}
	return files
}

// PromptFilePaths returns the absolute paths of all configured prompt files
func (c *Config) PromptFilePaths() []string {
	var paths []string
	seen := make(map[string]bool)
	for _, file := range c.promptFiles() {
		absPath, err := filepath.Abs(file.path)
		if err != nil {
			absPath = file.path
		}
		if !seen[absPath] {
			seen[absPath] = true
			paths = append(paths, absPath)
		}
	}
	return paths
}

// loadPromptsFromFiles loads custom prompts from external files into the prompt store
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	var loaded AllLoadedPrompts
	for _, file := range c.promptFiles() {
		content, err := loadPromptFromFile(file.path, file.promptType, file.operation)
		if err != nil {
			return err
		}
		*file.target(&loaded) = content
	}

	c.Prompts().Set(loaded)
	logPromptLoadingSummary(loaded)

	return nil
}

// ReloadPrompts re-reads every prompt file. On failure the previously loaded
// prompts stay in place.
func (c *Config) ReloadPrompts() error {
	if err := c.validatePromptFiles(); err != nil {
		return err
	}
	return c.loadPromptsFromFiles()
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, file := range c.promptFiles() {
		absPath, err := filepath.Abs(file.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", file.promptType, file.operation, file.path))
			continue
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", file.promptType, file.operation, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// logPromptLoadingSummary logs a summary of loaded prompts
func logPromptLoadingSummary(loaded AllLoadedPrompts) {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	if count := loaded.Count(); count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
	}

	log.Println("[CONFIG] ==========================================")
}
