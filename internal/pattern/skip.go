package pattern

import (
	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/perrors"
)

// SkipPatternLine implements `{min,max}` (spec §4.6): it tries to satisfy
// the rest of the block at each increasing step count from min to max,
// each attempt wrapped in a transaction so a failed step leaves no
// captures behind before the next step is tried. A nil Max means
// unbounded — the search still necessarily terminates at the end of the
// instruction stream, since Offset/Next eventually returns
// NoMoreInstructions.
type SkipPatternLine struct {
	Min, Max *int // Max nil: unbounded
	Capture  string
	Next     execctx.Line
}

func (l *SkipPatternLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	min := 0
	if l.Min != nil {
		min = *l.Min
	}
	for step := min; l.Max == nil || step <= *l.Max; step++ {
		cur, err := ctx.Cursor.Offset(step)
		if err != nil {
			return nil, err
		}
		var result *execctx.Context
		terr := ctx.MatchResult.Transact(func() error {
			if err := ctx.MatchResult.Set(l.Capture, step); err != nil {
				return err
			}
			forked := ctx.Fork(cur, nil, l.Next)
			r, err := continueForward(l.Next, forked)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		if terr == nil {
			return result, nil
		}
	}
	return nil, &perrors.NoMatches{}
}

// MatchReverse mirrors Match, walking the step count backwards from the
// anchor's reverse cursor.
func (l *SkipPatternLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	min := 0
	if l.Min != nil {
		min = *l.Min
	}
	for step := min; l.Max == nil || step <= *l.Max; step++ {
		cur, err := ctx.Cursor.Offset(-step)
		if err != nil {
			return nil, err
		}
		var result *execctx.Context
		terr := ctx.MatchResult.Transact(func() error {
			if err := ctx.MatchResult.Set(l.Capture, step); err != nil {
				return err
			}
			forked := ctx.Fork(cur, nil, l.Next)
			r, err := continueReverse(l.Next, forked)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		if terr == nil {
			return result, nil
		}
	}
	return nil, &perrors.NoMatches{}
}
