package pattern

import (
	"io"

	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/ext"
	"github.com/chananele/parm/internal/perrors"
)

// ConstructType is whatever an `.obj` atom's embedded expression
// produces: a self-describing parser for one fixed-size value at a
// cursor (spec §4.6 "PythonDataObj analog").
type ConstructType interface {
	Sizeof() int
	ParseStream(r io.Reader) (interface{}, error)
}

// StructuredObjectLine matches a `.obj [name:]${expr}` atom (spec §3,
// §6): expr is evaluated to obtain a ConstructType, which then parses
// the cursor's byte stream.
type StructuredObjectLine struct {
	Code     string
	Compiler ext.PatternCompiler
	Capture  string
	Next     execctx.Line
}

func (l *StructuredObjectLine) construct(ctx *execctx.Context) (ConstructType, error) {
	_, ns := newCellNS(ctx, l.Compiler)
	v, err := ns.Eval(l.Code)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ConstructType)
	if !ok {
		return nil, &perrors.PatternTypeMismatch{Expected: "a ConstructType", Got: v}
	}
	return obj, nil
}

func (l *StructuredObjectLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	obj, err := l.construct(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := ctx.Cursor.CreateDataStream()
	if err != nil {
		return nil, err
	}
	parsed, err := obj.ParseStream(stream)
	if err != nil {
		return nil, &perrors.ConstructParsing{Err: err}
	}
	if err := ctx.MatchResult.Set(l.Capture, parsed); err != nil {
		return nil, err
	}
	nextCur, err := advanceBytes(ctx, ctx.Cursor, obj.Sizeof())
	if err != nil {
		return nil, err
	}
	return continueForward(l.Next, ctx.Fork(nextCur, nil, l.Next))
}

func (l *StructuredObjectLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	obj, err := l.construct(ctx)
	if err != nil {
		return nil, err
	}
	prevCur, err := advanceBytes(ctx, ctx.Cursor, -obj.Sizeof())
	if err != nil {
		return nil, err
	}
	stream, err := prevCur.CreateDataStream()
	if err != nil {
		return nil, err
	}
	parsed, err := obj.ParseStream(stream)
	if err != nil {
		return nil, &perrors.ConstructParsing{Err: err}
	}
	if err := ctx.MatchResult.Set(l.Capture, parsed); err != nil {
		return nil, err
	}
	return continueReverse(l.Next, ctx.Fork(prevCur, nil, l.Next))
}
