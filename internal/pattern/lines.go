package pattern

import (
	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/perrors"
	"github.com/chananele/parm/internal/program"
)

// SetNext wires line's continuation to next, dispatching on line's
// concrete type (every block-pattern line node carries its own Next
// field rather than a shared embedded base, so this is how
// NewBlockPattern rewires the pre-anchor lines into reverse order).
func SetNext(line execctx.Line, next execctx.Line) {
	switch l := line.(type) {
	case *InstructionLine:
		l.Next = next
	case *AddressLine:
		l.Next = next
	case *DataAtomLine:
		l.Next = next
	case *StructuredObjectLine:
		l.Next = next
	case *SkipPatternLine:
		l.Next = next
	case *EmbeddedCodeLine:
		l.Next = next
	case *MatchableGeneratorLine:
		l.Next = next
	default:
		panic("pattern: SetNext on an unrecognized line type")
	}
}

func continueForward(next execctx.Line, ctx *execctx.Context) (*execctx.Context, error) {
	if next == nil {
		return ctx, nil
	}
	return next.Match(ctx)
}

func continueReverse(next execctx.Line, ctx *execctx.Context) (*execctx.Context, error) {
	if next == nil {
		return ctx, nil
	}
	return next.MatchReverse(ctx)
}

// InstructionLine matches an opcode + operand chain against the cursor's
// instruction (spec §4.6).
type InstructionLine struct {
	Opcode   OpcodePat
	Operands []OperandConsumer
	Next     execctx.Line
}

func (l *InstructionLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	inst, err := ctx.Cursor.Instruction()
	if err != nil {
		return nil, err
	}
	if err := l.Opcode.Match(inst.Opcode, ctx.MatchResult); err != nil {
		return nil, err
	}
	if err := MatchOperands(l.Operands, inst.Operands, ctx.MatchResult); err != nil {
		return nil, err
	}
	nextCur, err := ctx.Cursor.Next()
	if err != nil {
		return nil, err
	}
	return continueForward(l.Next, ctx.Fork(nextCur, nil, l.Next))
}

func (l *InstructionLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	inst, err := ctx.Cursor.Instruction()
	if err != nil {
		return nil, err
	}
	if err := l.Opcode.Match(inst.Opcode, ctx.MatchResult); err != nil {
		return nil, err
	}
	if err := MatchOperands(l.Operands, inst.Operands, ctx.MatchResult); err != nil {
		return nil, err
	}
	prevCur, err := ctx.Cursor.Prev()
	if err != nil {
		return nil, err
	}
	return continueReverse(l.Next, ctx.Fork(prevCur, nil, l.Next))
}

// AddressLine matches the cursor's address against a literal, a single
// wildcard, or binds a label name; it does not itself consume an
// instruction (spec §4.6). Per SPEC_FULL's resolution of open question
// (iii), MatchReverse does not move the cursor, matching Match exactly.
type AddressLine struct {
	Literal *uint64
	Capture string // wildcard capture, or label name; "" means neither
	Next    execctx.Line
}

func (l *AddressLine) checkAndBind(ctx *execctx.Context) error {
	addr, ok := ctx.Cursor.Address()
	if !ok {
		return &perrors.InvalidAccess{Msg: "address line against a cursor with no address"}
	}
	if l.Literal != nil {
		if *l.Literal != addr {
			return &perrors.PatternValueMismatch{Expected: *l.Literal, Got: addr}
		}
		return nil
	}
	return ctx.MatchResult.Set(l.Capture, addr)
}

func (l *AddressLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	if err := l.checkAndBind(ctx); err != nil {
		return nil, err
	}
	return continueForward(l.Next, ctx.Fork(nil, nil, l.Next))
}

func (l *AddressLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	if err := l.checkAndBind(ctx); err != nil {
		return nil, err
	}
	return continueReverse(l.Next, ctx.Fork(nil, nil, l.Next))
}

// DataAtom is one sized little-endian integer read (`.db`/`.dw`/`.dd`/`.dq`,
// spec §3, §8 invariant 6).
type DataAtom struct {
	ByteLen int
	Literal *int64
	Capture string
}

// DataAtomLine matches a run of sized data atoms in sequence (spec §3:
// "one or more sized integer patterns").
type DataAtomLine struct {
	Atoms []DataAtom
	Next  execctx.Line
}

func (l *DataAtomLine) matchAt(ctx *execctx.Context, cur *program.Cursor) error {
	for _, atom := range l.Atoms {
		raw, err := cur.ReadBytes(atom.ByteLen)
		if err != nil {
			return err
		}
		val, err := armmodel.ReadSizedLE(raw, atom.ByteLen)
		if err != nil {
			return &perrors.InvalidAccess{Msg: err.Error()}
		}
		if atom.Literal != nil {
			if *atom.Literal != int64(val) {
				return &perrors.PatternValueMismatch{Expected: *atom.Literal, Got: val}
			}
		} else if err := ctx.MatchResult.Set(atom.Capture, int64(val)); err != nil {
			return err
		}
		addr, _ := cur.Address()
		cur, err = ctx.Program.CreateCursor(addr + uint64(atom.ByteLen))
		if err != nil {
			return err
		}
	}
	return nil
}

// advanceBytes moves a byte-addressed cursor by delta bytes (data cursors
// address individual bytes, so this resolves through the program's
// address index rather than the instruction-chain Offset).
func advanceBytes(ctx *execctx.Context, cur *program.Cursor, delta int) (*program.Cursor, error) {
	addr, ok := cur.Address()
	if !ok {
		return nil, &perrors.InvalidAccess{Msg: "data atom against a cursor with no address"}
	}
	return ctx.Program.CreateCursor(uint64(int64(addr) + int64(delta)))
}

func (l *DataAtomLine) Match(ctx *execctx.Context) (*execctx.Context, error) {
	if err := l.matchAt(ctx, ctx.Cursor); err != nil {
		return nil, err
	}
	nextCur, err := advanceBytes(ctx, ctx.Cursor, totalLen(l.Atoms))
	if err != nil {
		return nil, err
	}
	return continueForward(l.Next, ctx.Fork(nextCur, nil, l.Next))
}

func (l *DataAtomLine) MatchReverse(ctx *execctx.Context) (*execctx.Context, error) {
	prevCur, err := advanceBytes(ctx, ctx.Cursor, -totalLen(l.Atoms))
	if err != nil {
		return nil, err
	}
	if err := l.matchAt(ctx, prevCur); err != nil {
		return nil, err
	}
	return continueReverse(l.Next, ctx.Fork(prevCur, nil, l.Next))
}

func totalLen(atoms []DataAtom) int {
	n := 0
	for _, a := range atoms {
		n += a.ByteLen
	}
	return n
}
