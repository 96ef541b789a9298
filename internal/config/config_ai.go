package config

// Operation names used for per-operation AI settings and prompts
const (
	OperationTailor      = "tailor"
	OperationCoverLetter = "coverLetter"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetTailorConfig returns the AI configuration for résumé tailoring with fallback to global config
func (c *Config) GetTailorConfig() OperationAIConfig {
	config := c.AI.Tailor
	c.applyOperationDefaults(&config)

	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = 4096
	}

	system := &config.CustomPrompts.SystemPrompts
	user := &config.CustomPrompts.UserPrompts
	fallback(&system.TailorResume, c.AI.CustomPrompts.SystemPrompts.TailorResume)
	fallback(&system.TailorResumeFile, c.AI.CustomPrompts.SystemPrompts.TailorResumeFile)
	fallback(&user.TailorResume, c.AI.CustomPrompts.UserPrompts.TailorResume)
	fallback(&user.TailorResumeFile, c.AI.CustomPrompts.UserPrompts.TailorResumeFile)

	return config
}

// GetCoverLetterConfig returns the AI configuration for cover letter generation with fallback to global config
func (c *Config) GetCoverLetterConfig() OperationAIConfig {
	config := c.AI.CoverLetter
	c.applyOperationDefaults(&config)

	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = 2048
	}

	system := &config.CustomPrompts.SystemPrompts
	user := &config.CustomPrompts.UserPrompts
	fallback(&system.CoverLetter, c.AI.CustomPrompts.SystemPrompts.CoverLetter)
	fallback(&system.CoverLetterFile, c.AI.CustomPrompts.SystemPrompts.CoverLetterFile)
	fallback(&user.CoverLetter, c.AI.CustomPrompts.UserPrompts.CoverLetter)
	fallback(&user.CoverLetterFile, c.AI.CustomPrompts.UserPrompts.CoverLetterFile)

	return config
}

func fallback(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

// GetLoadedTailorPrompts returns the file-loaded prompts for the tailor operation
func (c *Config) GetLoadedTailorPrompts() OperationLoadedPrompts {
	return c.Prompts().ForOperation(OperationTailor)
}

// GetLoadedCoverLetterPrompts returns the file-loaded prompts for the cover letter operation
func (c *Config) GetLoadedCoverLetterPrompts() OperationLoadedPrompts {
	return c.Prompts().ForOperation(OperationCoverLetter)
}
