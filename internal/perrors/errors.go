// Package perrors defines the closed family of error values the matching
// engine can raise (spec §7). Every kind is a concrete struct implementing
// error; callers distinguish them with errors.As, not string matching.
package perrors

import "fmt"

// PatternMismatch is the base kind: a generic mismatch with no further
// structure attached. The more specific kinds are separate types that do
// not embed it, so errors.As with a *PatternMismatch target matches only
// this kind.
type PatternMismatch struct {
	Msg string
}

func (e *PatternMismatch) Error() string {
	if e.Msg == "" {
		return "pattern mismatch"
	}
	return e.Msg
}

func NewPatternMismatch(format string, args ...interface{}) *PatternMismatch {
	return &PatternMismatch{Msg: fmt.Sprintf(format, args...)}
}

// PatternTypeMismatch: operand of the wrong shape.
type PatternTypeMismatch struct {
	Expected, Got interface{}
}

func (e *PatternTypeMismatch) Error() string {
	return fmt.Sprintf("pattern type mismatch: expected %v, got %v", e.Expected, e.Got)
}

// PatternValueMismatch: correct shape, wrong value.
type PatternValueMismatch struct {
	Expected, Got interface{}
}

func (e *PatternValueMismatch) Error() string {
	return fmt.Sprintf("pattern value mismatch: expected %v, got %v", e.Expected, e.Got)
}

// CaptureCollision: a capture name was bound to two different values.
type CaptureCollision struct {
	Name             string
	Existing, Update interface{}
}

func (e *CaptureCollision) Error() string {
	return fmt.Sprintf("capture collision on %q: existing=%v new=%v", e.Name, e.Existing, e.Update)
}

// NoMatches: a search yielded no results.
type NoMatches struct{}

func (e *NoMatches) Error() string { return "no matches" }

// TooManyMatches: find_single saw more than one match.
type TooManyMatches struct {
	Count int
}

func (e *TooManyMatches) Error() string {
	return fmt.Sprintf("too many matches: %d", e.Count)
}

// ExpectFailure: a user-level expect(cond) failed.
type ExpectFailure struct {
	Cond string
}

func (e *ExpectFailure) Error() string {
	return fmt.Sprintf("expectation failed: %s", e.Cond)
}

// NoMoreInstructions: the cursor ran off the end of a code block.
type NoMoreInstructions struct{}

func (e *NoMoreInstructions) Error() string { return "no more instructions" }

// NotAllOperandsMatched: the operand chain finished with residue.
type NotAllOperandsMatched struct {
	Tail []interface{}
}

func (e *NotAllOperandsMatched) Error() string {
	return fmt.Sprintf("not all operands matched, %d remaining", len(e.Tail))
}

// OperandsExhausted: the operand chain needed more operands than were present.
type OperandsExhausted struct {
	Pattern interface{}
}

func (e *OperandsExhausted) Error() string {
	return fmt.Sprintf("operands exhausted matching %v", e.Pattern)
}

// UnresolvedSymbol: the host could not resolve a symbol name.
type UnresolvedSymbol struct {
	Name string
}

func (e *UnresolvedSymbol) Error() string {
	return fmt.Sprintf("unresolved symbol: %s", e.Name)
}

// InvalidAccess: a sentinel-cursor operation or an out-of-range byte read.
type InvalidAccess struct {
	Msg string
}

func (e *InvalidAccess) Error() string { return e.Msg }

// ReverseSearchUnsupported: a block anchor forced a reverse match on a node
// whose match_reverse has no meaningful implementation.
type ReverseSearchUnsupported struct {
	Node string
}

func (e *ReverseSearchUnsupported) Error() string {
	return fmt.Sprintf("reverse search unsupported for %s", e.Node)
}

// PatternNotReversible: distinct from ReverseSearchUnsupported — the node
// deliberately refuses reverse matching (e.g. embedded code with side
// effects), rather than simply lacking an implementation.
type PatternNotReversible struct {
	Node string
}

func (e *PatternNotReversible) Error() string {
	return fmt.Sprintf("pattern not reversible: %s", e.Node)
}

// ConstructParsing wraps a structured-object parse error (the .obj atom).
type ConstructParsing struct {
	Err error
}

func (e *ConstructParsing) Error() string {
	return fmt.Sprintf("construct parsing failed: %s", e.Err)
}

func (e *ConstructParsing) Unwrap() error { return e.Err }

// --- internal kinds: must never escape the core ---

// UndefinedVar signals a declared-but-unset variable was read. Internal
// bookkeeping error consumed by MatchResult.Get; never surfaced to a caller.
type UndefinedVar struct {
	Name string
}

func (e *UndefinedVar) Error() string {
	return fmt.Sprintf("internal: undefined var %s", e.Name)
}

// DuplicateValue signals an attempted overwrite of a tracking-dict entry.
// Internal; a bug in the engine if it ever escapes transact().
type DuplicateValue struct {
	Key string
}

func (e *DuplicateValue) Error() string {
	return fmt.Sprintf("internal: duplicate value for %s", e.Key)
}

// FixtureCycle signals a cyclic dependency between embedded-namespace
// fixtures. Internal; the evaluator catches it and turns it into an
// ExpectFailure-shaped user error before it can escape eval/exec.
type FixtureCycle struct {
	Name string
}

func (e *FixtureCycle) Error() string {
	return fmt.Sprintf("internal: fixture cycle at %s", e.Name)
}

// --- transaction protocol errors (spec §4.1) ---

// TransactionOrderViolation: committing/rolling back a transaction whose
// children are not exactly in LIFO order, or out of order entirely.
type TransactionOrderViolation struct {
	Msg string
}

func (e *TransactionOrderViolation) Error() string { return e.Msg }

// LiveChildrenException: a transaction was finished while it still had
// un-finished children.
type LiveChildrenException struct{}

func (e *LiveChildrenException) Error() string { return "transaction has live children" }

// IsMismatch reports whether err is a pattern-mismatch-family error: the
// kind of failure a find_* scan over many cursors should treat as "this
// cursor doesn't match, try the next one" rather than letting it abort
// the whole search (spec §7 policy). CaptureCollision is deliberately
// excluded — it is never recovered silently — as are the internal and
// transaction-protocol kinds, which indicate an engine bug rather than a
// pattern miss.
func IsMismatch(err error) bool {
	switch err.(type) {
	case *PatternMismatch, *PatternTypeMismatch, *PatternValueMismatch,
		*NoMatches, *NoMoreInstructions, *NotAllOperandsMatched, *OperandsExhausted,
		*ReverseSearchUnsupported, *PatternNotReversible, *ConstructParsing,
		*UnresolvedSymbol, *ExpectFailure, *InvalidAccess:
		return true
	default:
		return false
	}
}
