package ext

import (
	"fmt"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/evalns"
	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/perrors"
	"github.com/chananele/parm/internal/program"
)

// Cell holds the execution context an embedded-code evaluation is
// running against. Embedded code can reassign Ctx (via the cursor
// setter, goto, goto_next, ...); the cell is how that mutation is
// visible to whatever drove the evaluation, since execctx.Context
// otherwise forks rather than mutates (spec §4.5, §4.7).
type Cell struct {
	Ctx *execctx.Context
}

// PatternCompiler turns pattern source text into a matchable line (spec
// §6 grammar; implemented by internal/grammar). Kept as an interface
// here so ext has no import-time dependency on the parser.
type PatternCompiler interface {
	Compile(src string) (execctx.Line, error)
}

// DefaultExtension is the extension the core always loads (spec §4.8):
// cursor/match_result access, instruction navigation, and the
// find_next/goto_next search family.
type DefaultExtension struct {
	cell     *Cell
	compiler PatternCompiler
}

// NewDefaultExtension builds the default extension and registers its
// getters/setters/functions into ns.
func NewDefaultExtension(cell *Cell, compiler PatternCompiler, ns *evalns.NS) *DefaultExtension {
	e := &DefaultExtension{cell: cell, compiler: compiler}
	e.register(ns)
	return e
}

func (e *DefaultExtension) register(ns *evalns.NS) {
	ns.SetMagicGetter("match_result", func() (interface{}, error) {
		return e.cell.Ctx.MatchResult, nil
	})
	ns.SetMagicGetter("cursor", func() (interface{}, error) {
		return e.cell.Ctx.Cursor, nil
	})
	ns.SetMagicSetter("cursor", func(v interface{}) error {
		cur, ok := v.(*program.Cursor)
		if !ok {
			return fmt.Errorf("cursor must be assigned a Cursor")
		}
		e.cell.Ctx = e.cell.Ctx.Fork(cur, nil, e.cell.Ctx.CurrentLine)
		return nil
	})
	ns.SetMagicGetter("next_instruction", func() (interface{}, error) {
		return e.cell.Ctx.Cursor.Next()
	})
	ns.SetMagicGetter("prev_instruction", func() (interface{}, error) {
		return e.cell.Ctx.Cursor.Prev()
	})

	ns.SetGlobal("skip_instructions", func(n int) execctx.Line { return &instructionSkipper{n: n} })
	ns.SetGlobal("find_single", e.FindSingle)
	ns.SetGlobal("match_all", e.MatchAll)
	ns.SetGlobal("find_next", e.FindNext)
	ns.SetGlobal("goto_next", e.GotoNext)
	ns.SetGlobal("find_after_next", e.FindAfterNext)
	ns.SetGlobal("goto_after_next", e.GotoAfterNext)
	ns.SetGlobal("find_prev", e.FindPrev)
	ns.SetGlobal("goto_prev", e.GotoPrev)
	ns.SetGlobal("find_before_prev", e.FindBeforePrev)
	ns.SetGlobal("goto_before_prev", e.GotoBeforePrev)
	ns.SetGlobal("goto", e.Goto)
	ns.SetGlobal("pat", e.Pat)
	ns.SetGlobal("ptr", e.Ptr)
	ns.SetGlobal("xrefs_to", e.XrefsTo)
}

// instructionSkipper is the line `skip_instructions(n)` returns: a
// matchable that simply advances n instructions (spec §4.8
// InstructionSkipper).
type instructionSkipper struct{ n int }

func (s *instructionSkipper) Match(ctx *execctx.Context) (*execctx.Context, error) {
	c := ctx
	for i := 0; i < s.n; i++ {
		next, err := c.ForkNextInstruction()
		if err != nil {
			return nil, err
		}
		c = next
	}
	return c, nil
}

func (s *instructionSkipper) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	c := ctx
	for i := 0; i < s.n; i++ {
		prev, err := c.ForkPrevInstruction()
		if err != nil {
			return nil, err
		}
		c = prev
	}
	return c, nil
}

// search drives a pattern forward along successive cursors produced by
// advance, under a transaction per attempt, until one succeeds (spec
// §4.8 `search`). It returns the context just before the match (pre)
// and just after it (post).
func (e *DefaultExtension) search(patternSrc string, advance func(*execctx.Context) (*execctx.Context, error)) (pre, post *execctx.Context, err error) {
	line, err := e.compiler.Compile(patternSrc)
	if err != nil {
		return nil, nil, err
	}
	ctx := e.cell.Ctx
	for {
		preCtx := ctx
		var postCtx *execctx.Context
		terr := ctx.MatchResult.Transact(func() error {
			p, merr := line.Match(ctx)
			if merr != nil {
				return merr
			}
			postCtx = p
			return nil
		})
		if terr == nil {
			return preCtx, postCtx, nil
		}
		ctx, err = advance(ctx)
		if err != nil {
			return nil, nil, err
		}
	}
}

func forkNext(ctx *execctx.Context) (*execctx.Context, error) { return ctx.ForkNextInstruction() }
func forkPrev(ctx *execctx.Context) (*execctx.Context, error) { return ctx.ForkPrevInstruction() }

// FindNext returns the cursor immediately before the first forward match.
func (e *DefaultExtension) FindNext(patternSrc string) (*program.Cursor, error) {
	pre, _, err := e.search(patternSrc, forkNext)
	if err != nil {
		return nil, err
	}
	return pre.Cursor, nil
}

// GotoNext moves the cell's cursor to FindNext's result.
func (e *DefaultExtension) GotoNext(patternSrc string) error {
	c, err := e.FindNext(patternSrc)
	if err != nil {
		return err
	}
	e.cell.Ctx = e.cell.Ctx.Fork(c, nil, e.cell.Ctx.CurrentLine)
	return nil
}

// FindAfterNext returns the cursor immediately after the first forward match.
func (e *DefaultExtension) FindAfterNext(patternSrc string) (*program.Cursor, error) {
	_, post, err := e.search(patternSrc, forkNext)
	if err != nil {
		return nil, err
	}
	return post.Cursor, nil
}

func (e *DefaultExtension) GotoAfterNext(patternSrc string) error {
	c, err := e.FindAfterNext(patternSrc)
	if err != nil {
		return err
	}
	e.cell.Ctx = e.cell.Ctx.Fork(c, nil, e.cell.Ctx.CurrentLine)
	return nil
}

// FindPrev returns the cursor immediately before the first backward match.
func (e *DefaultExtension) FindPrev(patternSrc string) (*program.Cursor, error) {
	pre, _, err := e.search(patternSrc, forkPrev)
	if err != nil {
		return nil, err
	}
	return pre.Cursor, nil
}

func (e *DefaultExtension) GotoPrev(patternSrc string) error {
	c, err := e.FindPrev(patternSrc)
	if err != nil {
		return err
	}
	e.cell.Ctx = e.cell.Ctx.Fork(c, nil, e.cell.Ctx.CurrentLine)
	return nil
}

// FindBeforePrev returns the cursor immediately after the first backward match.
func (e *DefaultExtension) FindBeforePrev(patternSrc string) (*program.Cursor, error) {
	_, post, err := e.search(patternSrc, forkPrev)
	if err != nil {
		return nil, err
	}
	return post.Cursor, nil
}

func (e *DefaultExtension) GotoBeforePrev(patternSrc string) error {
	c, err := e.FindBeforePrev(patternSrc)
	if err != nil {
		return err
	}
	e.cell.Ctx = e.cell.Ctx.Fork(c, nil, e.cell.Ctx.CurrentLine)
	return nil
}

// Goto resolves location via Ptr and moves the cell's cursor there.
func (e *DefaultExtension) Goto(location interface{}) error {
	c, err := e.Ptr(location)
	if err != nil {
		return err
	}
	e.cell.Ctx = e.cell.Ctx.Fork(c, nil, e.cell.Ctx.CurrentLine)
	return nil
}

// Pat compiles pattern source into a matchable, for embedded code that
// builds and applies a pattern dynamically (spec §4.8 `pat`).
func (e *DefaultExtension) Pat(patternSrc string) (execctx.Line, error) {
	return e.compiler.Compile(patternSrc)
}

// Ptr resolves location — a capture name, a symbol name, an Address, a
// raw integer, or an already-resolved Cursor — to a Cursor (spec §4.8
// `ptr`).
func (e *DefaultExtension) Ptr(location interface{}) (*program.Cursor, error) {
	if s, ok := location.(string); ok {
		if v, found := e.cell.Ctx.MatchResult.Get(s); found {
			location = v
		} else {
			return e.cell.Ctx.Program.FindSymbol(s)
		}
	}
	if addr, ok := location.(armmodel.Address); ok {
		location = addr.Value
	}
	switch v := location.(type) {
	case uint64:
		return e.cell.Ctx.Program.CreateCursor(v)
	case int64:
		return e.cell.Ctx.Program.CreateCursor(uint64(v))
	case int:
		return e.cell.Ctx.Program.CreateCursor(uint64(v))
	case *program.Cursor:
		return v, nil
	default:
		return nil, &perrors.InvalidAccess{Msg: "ptr: unresolvable location"}
	}
}

// XrefsTo resolves location to an address and returns every cursor
// referencing it (SPEC_FULL §4 expansion of the default extension).
func (e *DefaultExtension) XrefsTo(location interface{}) ([]*program.Cursor, error) {
	cur, err := e.Ptr(location)
	if err != nil {
		return nil, err
	}
	addr, ok := cur.Address()
	if !ok {
		return nil, &perrors.InvalidAccess{Msg: "xrefs_to: cursor has no address"}
	}
	return e.cell.Ctx.Program.XrefsTo(addr), nil
}

// FindSingle matches pattern against each of cursors independently,
// requiring exactly one success (spec §4.8 `find_single`).
func (e *DefaultExtension) FindSingle(cursors []*program.Cursor, patternSrc string) (*matchresult.MatchResult, error) {
	line, err := e.compiler.Compile(patternSrc)
	if err != nil {
		return nil, err
	}
	var found *matchresult.MatchResult
	count := 0
	for _, c := range cursors {
		mr := matchresult.New()
		ctx := &execctx.Context{Cursor: c, Program: e.cell.Ctx.Program, MatchResult: mr}
		if _, err := line.Match(ctx); err == nil {
			found = mr
			count++
		}
	}
	if count == 0 {
		return nil, &perrors.NoMatches{}
	}
	if count > 1 {
		return nil, &perrors.TooManyMatches{Count: count}
	}
	return found, nil
}

// MatchAll matches pattern against every cursor, recording one
// sub-scope per cursor under a fresh named multi-scope (spec §4.8
// `match_all`). Any single match failure aborts the whole operation,
// matching the original's eager iteration.
func (e *DefaultExtension) MatchAll(cursors []*program.Cursor, patternSrc string, name string) error {
	line, err := e.compiler.Compile(patternSrc)
	if err != nil {
		return err
	}
	ms := e.cell.Ctx.MatchResult.NewMultiScope(name)
	for _, c := range cursors {
		scope := ms.NewScope()
		ctx := &execctx.Context{Cursor: c, Program: e.cell.Ctx.Program, MatchResult: scope}
		if _, err := line.Match(ctx); err != nil {
			return err
		}
	}
	return nil
}
