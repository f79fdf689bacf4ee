package config

import (
	"fmt"
	"strings"
)

// ValidationError describes one failed validation rule on a single field,
// mirroring the shape the teacher's config package uses for mcpserver/profile
// validation, trimmed to the fields this gateway's flat schema needs.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every rule violation found while validating a
// single document, so the caller reports all of them at once instead of
// failing fast on the first.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (es ValidationErrors) HasErrors() bool {
	return len(es) > 0
}

func (es *ValidationErrors) add(field, message string) {
	*es = append(*es, ValidationError{Field: field, Message: message})
}
