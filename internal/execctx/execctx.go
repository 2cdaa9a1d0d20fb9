// Package execctx implements the execution context (spec §4.5): a bundle
// of (cursor, current pattern line, match result, program) with fork
// operations used during matching.
package execctx

import (
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/program"
)

// Line is whatever the current pattern line is; kept as an opaque
// interface here so this package has no dependency on the pattern
// package (which depends back on execctx for Matcher). A nil Line is a
// terminal line: Match/MatchReverse are a no-op success that stops the
// chain (spec §4.5).
type Line interface {
	Match(ctx *Context) (*Context, error)
	MatchReverse(ctx *Context) (*Context, error)
}

// Context is the immutable-feeling value threaded through a match (spec
// §4.5); every fork returns a new Context rather than mutating this one.
type Context struct {
	Cursor      *program.Cursor
	MatchResult *matchresult.MatchResult
	Program     *program.Program
	CurrentLine Line
}

// New starts a fresh execution context at cursor with a fresh top-level
// match result.
func New(cursor *program.Cursor, prog *program.Program) *Context {
	return &Context{Cursor: cursor, MatchResult: matchresult.New(), Program: prog}
}

// Fork returns a copy of ctx with any of the given fields overridden.
func (ctx *Context) Fork(cursor *program.Cursor, mr *matchresult.MatchResult, line Line) *Context {
	c := *ctx
	if cursor != nil {
		c.Cursor = cursor
	}
	if mr != nil {
		c.MatchResult = mr
	}
	c.CurrentLine = line
	return &c
}

// ForkNextInstruction forks onto the next cursor in program order.
func (ctx *Context) ForkNextInstruction() (*Context, error) {
	next, err := ctx.Cursor.Next()
	if err != nil {
		return nil, err
	}
	return ctx.Fork(next, nil, ctx.CurrentLine), nil
}

// ForkPrevInstruction forks onto the previous cursor in program order.
func (ctx *Context) ForkPrevInstruction() (*Context, error) {
	prev, err := ctx.Cursor.Prev()
	if err != nil {
		return nil, err
	}
	return ctx.Fork(prev, nil, ctx.CurrentLine), nil
}

// ForkOffset forks delta instructions away from the current cursor.
func (ctx *Context) ForkOffset(delta int) (*Context, error) {
	c, err := ctx.Cursor.Offset(delta)
	if err != nil {
		return nil, err
	}
	return ctx.Fork(c, nil, ctx.CurrentLine), nil
}

// ForkNextLine forks onto the next pattern line, keeping the same cursor.
func (ctx *Context) ForkNextLine(next Line) *Context {
	return ctx.Fork(nil, nil, next)
}

// Match forwards to the current line's Match, or is a no-op success if
// there is no current line (a terminal line, spec §4.5).
func (ctx *Context) Match() (*Context, error) {
	if ctx.CurrentLine == nil {
		return ctx, nil
	}
	return ctx.CurrentLine.Match(ctx)
}

// MatchReverse forwards to the current line's MatchReverse, or is a no-op
// success if there is no current line.
func (ctx *Context) MatchReverse() (*Context, error) {
	if ctx.CurrentLine == nil {
		return ctx, nil
	}
	return ctx.CurrentLine.MatchReverse(ctx)
}
