package rules

import (
	"fmt"
	"strings"
)

// Problem is one validation failure in a rule document.
type Problem struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

// ValidationError lists every problem found in a rule document.
type ValidationError struct {
	Problems []Problem
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid rule document: %s: %s", e.Problems[0].Path, e.Problems[0].Message)
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Path+": "+p.Message)
	}
	return fmt.Sprintf("invalid rule document (%d problems): %s", len(e.Problems), strings.Join(parts, "; "))
}

// HasProblems reports whether any problem was recorded.
func (e *ValidationError) HasProblems() bool {
	return len(e.Problems) > 0
}

func (e *ValidationError) add(path, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}
