package grammar

import "fmt"

// SyntaxError reports a lexical/grammatical problem in pattern or
// instruction source text, independent of the perrors match-failure
// family (a syntax error happens at compile time, never inside a
// transact()).
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("grammar: line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func syntaxErrorf(line int, tok Token, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Line: line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}
