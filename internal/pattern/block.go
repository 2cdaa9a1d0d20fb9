package pattern

import (
	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/perrors"
	"github.com/chananele/parm/internal/program"
)

// BlockPattern is an ordered sequence of lines plus an anchor index
// (spec §3, §4.6). ReverseStart is the line immediately before the
// anchor (index A-1), chained backward through Next to line 0;
// ForwardStart is the anchor line itself (index A), chained forward
// through Next to the last line. Either may be nil (an empty half).
type BlockPattern struct {
	ReverseStart execctx.Line
	ForwardStart execctx.Line
}

// NewBlockPattern links lines (in textual order) into a BlockPattern
// around anchor, rewiring the Next pointers of the pre-anchor lines so
// they chain backward (spec §4.6 invariant 5: "lines[:A] matches in
// reverse from C.prev()").
func NewBlockPattern(lines []execctx.Line, anchor int) *BlockPattern {
	before := lines[:anchor]
	after := lines[anchor:]

	for i := len(before) - 1; i > 0; i-- {
		SetNext(before[i], before[i-1])
	}
	if len(before) > 0 {
		SetNext(before[0], nil)
	}
	for i := 0; i < len(after)-1; i++ {
		SetNext(after[i], after[i+1])
	}
	if len(after) > 0 {
		SetNext(after[len(after)-1], nil)
	}

	bp := &BlockPattern{}
	if len(before) > 0 {
		bp.ReverseStart = before[len(before)-1]
	}
	if len(after) > 0 {
		bp.ForwardStart = after[0]
	}
	return bp
}

// matchAt runs both halves of the block against cursor under a single
// transaction: the reverse half from cursor.Prev(), then the forward
// half from cursor itself (spec §4.6 "Block pattern" algorithm).
func (p *BlockPattern) matchAt(cursor *program.Cursor, prog *program.Program, mr *matchresult.MatchResult) (*execctx.Context, error) {
	var result *execctx.Context
	err := mr.Transact(func() error {
		if p.ReverseStart != nil {
			prevCur, err := cursor.Prev()
			if err != nil {
				return err
			}
			revCtx := &execctx.Context{Cursor: prevCur, Program: prog, MatchResult: mr, CurrentLine: p.ReverseStart}
			if _, err := p.ReverseStart.MatchReverse(revCtx); err != nil {
				return err
			}
		}

		if p.ForwardStart == nil {
			result = &execctx.Context{Cursor: cursor, Program: prog, MatchResult: mr}
			return nil
		}
		fwdCtx := &execctx.Context{Cursor: cursor, Program: prog, MatchResult: mr, CurrentLine: p.ForwardStart}
		r, err := p.ForwardStart.Match(fwdCtx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Pattern is the top-level matchable a grammar-compiled signature
// produces (spec §4.4 `create_pattern`).
type Pattern struct {
	Block *BlockPattern
}

// InlineLine returns the pattern's forward half as a plain execctx.Line,
// for use when a compiled pattern is applied mid-match rather than at a
// fresh cursor/program entry point — a matchable generator's result or a
// `goto`-style sub-pattern (spec §4.8). The reverse half, if the pattern
// has one, is not included and is not run.
func (p *Pattern) InlineLine() execctx.Line {
	if p.Block.ForwardStart == nil {
		return nil
	}
	return p.Block.ForwardStart
}

// Match matches the pattern at cursor, returning a fresh top-level
// MatchResult on success.
func (p *Pattern) Match(cursor *program.Cursor, prog *program.Program) (*matchresult.MatchResult, error) {
	return p.MatchWithImports(cursor, prog, nil)
}

// MatchWithImports is Match, but seeds the fresh top-level MatchResult
// with imports before running the pattern — a signature's `imports:`
// captures, already bound by a previously run signature (spec §6
// "Signature-file format": "imports: ... required captures from
// previously matched sigs").
func (p *Pattern) MatchWithImports(cursor *program.Cursor, prog *program.Program, imports map[string]interface{}) (*matchresult.MatchResult, error) {
	mr := matchresult.New()
	for k, v := range imports {
		if err := mr.Set(k, v); err != nil {
			return nil, err
		}
	}
	if _, err := p.Block.matchAt(cursor, prog, mr); err != nil {
		return nil, err
	}
	return mr, nil
}

// FindAll matches the pattern against every cursor in prog, in address
// order, returning every success (spec §4.4 `find_all`; SPEC_FULL's
// resolution of open question (ii): a committed slice, never a lazy
// iterator, so a partial consumer can't observe rolled-back state). A
// non-mismatch error aborts the whole scan.
func (p *Pattern) FindAll(prog *program.Program) ([]*matchresult.MatchResult, error) {
	var out []*matchresult.MatchResult
	for _, c := range prog.Cursors() {
		mr, err := p.Match(c, prog)
		if err == nil {
			out = append(out, mr)
			continue
		}
		if !perrors.IsMismatch(err) {
			return nil, err
		}
	}
	return out, nil
}

// FindFirst returns the first cursor's successful match.
func (p *Pattern) FindFirst(prog *program.Program) (*matchresult.MatchResult, error) {
	for _, c := range prog.Cursors() {
		mr, err := p.Match(c, prog)
		if err == nil {
			return mr, nil
		}
		if !perrors.IsMismatch(err) {
			return nil, err
		}
	}
	return nil, &perrors.NoMatches{}
}

// FindLast returns the last cursor's successful match, scanning in
// reverse address order.
func (p *Pattern) FindLast(prog *program.Program) (*matchresult.MatchResult, error) {
	cursors := prog.Cursors()
	for i := len(cursors) - 1; i >= 0; i-- {
		mr, err := p.Match(cursors[i], prog)
		if err == nil {
			return mr, nil
		}
		if !perrors.IsMismatch(err) {
			return nil, err
		}
	}
	return nil, &perrors.NoMatches{}
}

// FindSingle requires exactly one match across the whole program.
func (p *Pattern) FindSingle(prog *program.Program) (*matchresult.MatchResult, error) {
	all, err := p.FindAll(prog)
	if err != nil {
		return nil, err
	}
	switch len(all) {
	case 0:
		return nil, &perrors.NoMatches{}
	case 1:
		return all[0], nil
	default:
		return nil, &perrors.TooManyMatches{Count: len(all)}
	}
}
