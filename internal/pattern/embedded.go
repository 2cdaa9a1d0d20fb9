package pattern

import (
	"github.com/chananele/parm/internal/evalns"
	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/ext"
	"github.com/chananele/parm/internal/perrors"
)

// newCellNS builds a fresh embedded namespace with the default extension
// wired against ctx (spec §4.7/§4.8). Each evaluation gets its own
// namespace and Cell: embedded code's mutations (cursor reassignment via
// goto/goto_next/...) are visible through the returned Cell afterward.
func newCellNS(ctx *execctx.Context, compiler ext.PatternCompiler) (*ext.Cell, *evalns.NS) {
	cell := &ext.Cell{Ctx: ctx}
	ns := evalns.New()
	ext.NewDefaultExtension(cell, compiler, ns)
	return cell, ns
}

// EmbeddedCodeLine runs a `%`/`%%...%%` statement block for its side
// effects (spec §4.6). It never itself advances the cursor beyond what
// the embedded code does through the cell (e.g. `goto_next(...)`), and
// it is deliberately not reversible: side effects have no meaningful
// undo (spec §7 PatternNotReversible).
type EmbeddedCodeLine struct {
	Code     string
	Compiler ext.PatternCompiler
	Next     execctx.Line
}

func (l *EmbeddedCodeLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	cell, ns := newCellNS(ctx, l.Compiler)
	if err := ns.Exec(l.Code); err != nil {
		return nil, &perrors.ExpectFailure{Cond: err.Error()}
	}
	return continueForward(l.Next, cell.Ctx.Fork(nil, nil, l.Next))
}

func (l *EmbeddedCodeLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	return nil, &perrors.PatternNotReversible{Node: "embedded code"}
}

// MatchableGeneratorLine evaluates a `!` expression to a pattern (either
// a compiled Line value or pattern source text) and applies the result
// at the current cursor (spec §4.6).
type MatchableGeneratorLine struct {
	Code     string
	Compiler ext.PatternCompiler
	Next     execctx.Line
}

func asLine(v interface{}, compiler ext.PatternCompiler) (execctx.Line, error) {
	if p, ok := v.(*Pattern); ok {
		return p.InlineLine(), nil
	}
	if line, ok := v.(execctx.Line); ok {
		return line, nil
	}
	if s, ok := v.(string); ok {
		return compiler.Compile(s)
	}
	return nil, &perrors.PatternTypeMismatch{Expected: "a pattern or pattern source string", Got: v}
}

func (l *MatchableGeneratorLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	cell, ns := newCellNS(ctx, l.Compiler)
	v, err := ns.Eval(l.Code)
	if err != nil {
		return nil, err
	}
	line, err := asLine(v, l.Compiler)
	if err != nil {
		return nil, err
	}
	generated, err := line.Match(cell.Ctx)
	if err != nil {
		return nil, err
	}
	return continueForward(l.Next, generated.Fork(nil, nil, l.Next))
}

func (l *MatchableGeneratorLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	cell, ns := newCellNS(ctx, l.Compiler)
	v, err := ns.Eval(l.Code)
	if err != nil {
		return nil, err
	}
	line, err := asLine(v, l.Compiler)
	if err != nil {
		return nil, err
	}
	generated, err := line.MatchReverse(cell.Ctx)
	if err != nil {
		return nil, err
	}
	return continueReverse(l.Next, generated.Fork(nil, nil, l.Next))
}
