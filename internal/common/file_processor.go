package common

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"jobtailor/internal/errors"
	"jobtailor/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	maxFileSize int64
	logger      *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// WithMaxFileSize rejects input files larger than limit bytes. Zero means no limit.
func (fp *FileProcessor) WithMaxFileSize(limit int64) *FileProcessor {
	fp.maxFileSize = limit
	return fp
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles validates and reads saved pages or other text inputs
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))

	for i, filename := range filenames {
		size, err := utils.StatInputFile(filename, fp.maxFileSize)
		if err != nil {
			code := "INVALID_INPUT_FILE"
			if stderrors.Is(err, utils.ErrFileTooLarge) {
				code = "INPUT_FILE_TOO_LARGE"
			}
			return nil, errors.NewValidationError(code,
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		kind := utils.ClassifyInput(filename)
		if kind == utils.InputUnknown {
			fp.logger.Warn("File may not be a saved page or text file",
				"filename", filename)
		}
		fp.logger.Debug("Reading input file",
			"filename", filename, "kind", kind.String(), "size", utils.FormatFileSize(size))

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		contents[i] = content
	}

	return contents, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}

	if err := utils.EnsureOutputDir(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
