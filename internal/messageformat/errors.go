package messageformat

import (
	"fmt"
)

// ParseError reports a malformed template.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("message syntax error at offset %d: %s", e.Offset, e.Reason)
}

// FormatError reports a template that could not be rendered with the supplied values.
type FormatError struct {
	Argument string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Argument, e.Reason)
}
