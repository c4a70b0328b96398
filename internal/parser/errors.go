package parser

import "fmt"

// ParseError reports a lexical or syntactic failure at a byte offset
// into the source text. Position is a byte offset, not a line/column
// pair; callers that need human-facing line numbers derive them from
// the source text themselves.
type ParseError struct {
	Position int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: expected %s, found %s", e.Position, e.Expected, e.Found)
}
