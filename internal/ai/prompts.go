package ai

import (
	"strings"
	"text/template"
)

// SystemPrompts contains the role instructions for each operation
type SystemPrompts struct {
	TailorResume string
	CoverLetter  string
}

// UserPrompts contains text/template prompts rendered with PromptData
type UserPrompts struct {
	TailorResume string
	CoverLetter  string
}

// PromptData is the data user prompt templates are rendered with
type PromptData struct {
	Resume          string
	Template        string
	JobTitle        string
	JobCompany      string
	JobDescription  string
	JobRequirements string
	JobURL          string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	TailorResume: `You are an expert resume writer. Your task is to tailor the following resume to match the job posting.`,

	CoverLetter: `You are an expert career coach. Your task is to generate a compelling cover letter for the job posting.`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	TailorResume: `ORIGINAL RESUME:
{{.Resume}}

JOB POSTING:
Title: {{.JobTitle}}
Company: {{.JobCompany}}
Description: {{.JobDescription}}
{{- if .JobRequirements}}

Key Requirements:
{{.JobRequirements}}
{{- end}}

INSTRUCTIONS:
1. Analyze the job requirements and key skills needed
2. Rewrite the resume to emphasize relevant experience and skills
3. Use keywords from the job posting naturally throughout
4. Maintain truthfulness - do not invent experience or skills
5. Keep the same overall structure and format
6. Make sure the resume is ATS-friendly
7. Focus on accomplishments that align with the job requirements
8. Keep it concise and impactful

Please provide ONLY the tailored resume text, without any additional commentary or explanations.`,

	CoverLetter: `COVER LETTER TEMPLATE (use as inspiration for tone and structure):
{{.Template}}

RESUME (for reference about the candidate):
{{.Resume}}

JOB POSTING:
Title: {{.JobTitle}}
Company: {{.JobCompany}}
Description: {{.JobDescription}}

INSTRUCTIONS:
1. Create a personalized cover letter for this specific job
2. Explain why the candidate is interested in this company and role
3. Highlight 2-3 key accomplishments from the resume that match the job
4. Show enthusiasm and cultural fit
5. Keep it to 3-4 paragraphs
6. Use a professional but warm tone
7. End with a clear call to action
8. Replace any placeholders like [Your Name] or [Company] with actual values

Please provide ONLY the cover letter text, without any additional commentary or explanations.`,
}

// renderPrompt executes a user prompt template. Templates are parsed on every
// call because file-backed prompts can change while the service runs.
func renderPrompt(name, text string, data PromptData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// resolvePrompt selects a prompt by priority: loaded from a file, then
// defined in configuration, then the built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
