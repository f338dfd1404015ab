package pagebuilder

import (
	"fmt"
	"strings"
)

// LayoutError is a detailed validation error for a persisted layout document,
// used by the CLI linter and the editor API to point at the offending block
// instead of failing with a bare message.
type LayoutError struct {
	Source  string // Where the document came from (file path or store slot)
	Index   int    // Block position in the document (0-indexed, -1 if unknown)
	BlockID string // Offending block id, if known
	Message string // Error message
	Hint    string // Helpful suggestion
}

// Error implements the error interface.
func (e *LayoutError) Error() string {
	return e.Format()
}

// Format returns a readable multi-line report.
func (e *LayoutError) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("❌ Invalid layout in %s\n\n", e.Source))

	if e.Index >= 0 {
		b.WriteString(fmt.Sprintf("Block %d", e.Index))
		if e.BlockID != "" {
			b.WriteString(fmt.Sprintf(" (%s)", e.BlockID))
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message + "\n")

	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("\n💡 Tip: %s\n", e.Hint))
	}

	return b.String()
}

// NewLayoutError creates a LayoutError for the given source.
func NewLayoutError(source, message string) *LayoutError {
	return &LayoutError{
		Source:  source,
		Index:   -1,
		Message: message,
	}
}

// WithBlock attaches block position and id to the error.
func (e *LayoutError) WithBlock(index int, id string) *LayoutError {
	e.Index = index
	e.BlockID = id
	return e
}

// WithHint adds a helpful hint to the error.
func (e *LayoutError) WithHint(hint string) *LayoutError {
	e.Hint = hint
	return e
}
