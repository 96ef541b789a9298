package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InputKind classifies a saved input file by its extension.
type InputKind int

const (
	InputUnknown InputKind = iota
	InputHTML
	InputText
)

var inputKinds = map[string]InputKind{
	".html":     InputHTML,
	".htm":      InputHTML,
	".xhtml":    InputHTML,
	".txt":      InputText,
	".text":     InputText,
	".md":       InputText,
	".markdown": InputText,
}

func (k InputKind) String() string {
	switch k {
	case InputHTML:
		return "html"
	case InputText:
		return "text"
	default:
		return "unknown"
	}
}

// ClassifyInput reports whether filename looks like a saved page, plain text or neither
func ClassifyInput(filename string) InputKind {
	return inputKinds[strings.ToLower(filepath.Ext(filename))]
}

// ErrFileTooLarge is wrapped by StatInputFile when a file exceeds the size limit
var ErrFileTooLarge = errors.New("file too large")

// StatInputFile checks that filename is a readable regular file of at most
// maxSize bytes and returns its size. A maxSize of zero disables the limit.
func StatInputFile(filename string, maxSize int64) (int64, error) {
	if filename == "" {
		return 0, errors.New("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("file does not exist: %s", filename)
		}
		return 0, fmt.Errorf("cannot access file %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", filename)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return info.Size(), fmt.Errorf("%w: %s is %s, limit is %s",
			ErrFileTooLarge, filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}

	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return info.Size(), nil
}

// EnsureOutputDir creates the directory an output file will be written into
func EnsureOutputDir(filename string) error {
	if filename == "" {
		return nil
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize formats size in binary units, e.g. "1.5 MB"
func FormatFileSize(size int64) string {
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", size)
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
