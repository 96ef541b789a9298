package common

import (
	"fmt"
	"slices"
	"strings"

	"jobtailor/internal/errors"
	"jobtailor/internal/formatters"
)

// OutputFormats lists the formats that can render output. A non-empty allowed
// list from the configuration narrows the result further.
func OutputFormats(output any, allowed []string) []string {
	formats := formatters.GlobalRegistry.FormatsFor(output)
	if len(allowed) == 0 {
		return formats
	}
	return slices.DeleteFunc(formats, func(format string) bool {
		return !slices.Contains(allowed, format)
	})
}

// ValidateOutputFormat checks format against OutputFormats before a command runs,
// so that an unusable --format fails before any fetching or model calls.
func ValidateOutputFormat(format string, output any, allowed []string) error {
	available := OutputFormats(output, allowed)
	if slices.Contains(available, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format %q, choose one of: %s", format, strings.Join(available, ", ")), nil)
}
