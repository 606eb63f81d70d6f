package gametime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMapping         = errors.New("mapping error")
)

// Wrap builds an error message that includes the operation name while tagging
// it with marker for classification with errors.Is. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrInvalidArgument
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func invalidArgument(operation, format string, args ...any) error {
	return Wrap(ErrInvalidArgument, operation, fmt.Sprintf(format, args...), nil)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "gametime failure"
	}
	return strings.Join(parts, ": ")
}

// Cause distinguishes the ways a dataset can fail schema validation.
type Cause int

const (
	CauseMissingColumn Cause = iota + 1
	CauseWrongType
	CauseExtraColumn
	CauseInvalidValue
)

func (c Cause) String() string {
	switch c {
	case CauseMissingColumn:
		return "missing column"
	case CauseWrongType:
		return "wrong type"
	case CauseExtraColumn:
		return "extra column"
	case CauseInvalidValue:
		return "invalid value"
	default:
		return "unknown"
	}
}

// ValidationError reports a dataset that does not match the schema. Row is
// the 0-based data row, or -1 when the problem is in the header.
type ValidationError struct {
	Cause  Cause
	Column string
	Row    int
	Detail string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("dataset ")
	b.WriteString(e.Cause.String())
	if e.Column != "" {
		fmt.Fprintf(&b, " %q", e.Column)
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func headerError(cause Cause, column, detail string) *ValidationError {
	return &ValidationError{Cause: cause, Column: column, Row: -1, Detail: detail}
}

// MappingError reports a label mapping that cannot be applied to the data
// without merging distinct subjects.
type MappingError struct {
	Label string
	Keys  []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping assigns label %q to several identifiers: %s", e.Label, strings.Join(e.Keys, ", "))
}

func (e *MappingError) Unwrap() error { return ErrMapping }
