package pattern

import (
	"strings"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/perrors"
)

// RegPat matches an exact register by name (§6).
type RegPat struct {
	Name string
}

func (p RegPat) matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error {
	if op.Kind != armmodel.OperandRegister {
		return &perrors.PatternTypeMismatch{Expected: p, Got: op}
	}
	canon, ok := armmodel.CanonicalRegisterName(p.Name)
	if !ok || !strings.EqualFold(canon, op.Register.Name()) {
		return &perrors.PatternValueMismatch{Expected: p.Name, Got: op.Register.Name()}
	}
	return nil
}

// Consumer returns this pattern as an OperandConsumer.
func (p RegPat) Consumer() OperandConsumer { return singleConsumer{m: p, self: p} }

// RegWildcard matches any register (`@[:cap]` written directly as a
// register operand, i.e. `@` in register position).
type RegWildcard struct {
	Capture string
}

func (p RegWildcard) matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error {
	if op.Kind != armmodel.OperandRegister {
		return &perrors.PatternTypeMismatch{Expected: p, Got: op}
	}
	return mr.Set(p.Capture, op.Register)
}

func (p RegWildcard) Consumer() OperandConsumer { return singleConsumer{m: p, self: p} }

// ImmediatePat matches `#num` or `#@[:cap]`.
type ImmediatePat struct {
	Value   *int64 // nil if this is a wildcard
	Capture string
}

func (p ImmediatePat) matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error {
	if op.Kind != armmodel.OperandImmediate {
		return &perrors.PatternTypeMismatch{Expected: p, Got: op}
	}
	if p.Value == nil {
		return mr.Set(p.Capture, op.Immediate.Value)
	}
	if *p.Value != op.Immediate.Value {
		return &perrors.PatternValueMismatch{Expected: *p.Value, Got: op.Immediate.Value}
	}
	return nil
}

func (p ImmediatePat) Consumer() OperandConsumer { return singleConsumer{m: p, self: p} }

// ShiftPat matches a shift operator + value, each possibly a wildcard (nil
// name/value means "any", consistent with §6 `shift_op`/`shift_val`
// wildcards).
type ShiftPat struct {
	Op       *armmodel.ShiftOp
	OpCap    string
	Value    *int
	ValueCap string
}

func (p *ShiftPat) match(sh *armmodel.Shift, mr *matchresult.MatchResult) error {
	if sh == nil {
		return &perrors.PatternValueMismatch{Expected: p, Got: nil}
	}
	if p.Op != nil {
		if *p.Op != sh.Op {
			return &perrors.PatternValueMismatch{Expected: *p.Op, Got: sh.Op}
		}
	} else if err := mr.Set(p.OpCap, string(sh.Op)); err != nil {
		return err
	}
	if p.Value != nil {
		if *p.Value != sh.Value {
			return &perrors.PatternValueMismatch{Expected: *p.Value, Got: sh.Value}
		}
		return nil
	}
	return mr.Set(p.ValueCap, sh.Value)
}

// ShiftedRegPat matches a register with an optional shift (§6).
type ShiftedRegPat struct {
	RegPat   singleValueMatcher // RegPat or RegWildcard
	ShiftPat *ShiftPat          // nil: unshifted only
}

func (p ShiftedRegPat) matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error {
	var reg armmodel.Register
	var shift *armmodel.Shift
	switch op.Kind {
	case armmodel.OperandRegister:
		reg = op.Register
	case armmodel.OperandShiftedRegister:
		reg = op.ShiftedRegister.Reg
		shift = op.ShiftedRegister.Shift
	default:
		return &perrors.PatternTypeMismatch{Expected: p, Got: op}
	}
	if err := p.RegPat.matchOperand(armmodel.RegOperand(reg), mr); err != nil {
		return err
	}
	if p.ShiftPat == nil {
		if shift != nil {
			return &perrors.PatternValueMismatch{Expected: "unshifted", Got: shift}
		}
		return nil
	}
	return p.ShiftPat.match(shift, mr)
}

func (p ShiftedRegPat) Consumer() OperandConsumer { return singleConsumer{m: p, self: p} }

// MemAccessPat matches a memory operand in one of the three addressing
// forms (§3, §6).
type MemAccessPat struct {
	Base   singleValueMatcher // RegPat or RegWildcard
	Offset *int64             // nil: no literal offset check (wildcard or absent)
	Mode   armmodel.AddrMode
}

func (p MemAccessPat) matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error {
	if op.Kind != armmodel.OperandMemoryAccess {
		return &perrors.PatternTypeMismatch{Expected: p, Got: op}
	}
	m := op.MemoryAccess
	if m.Mode != p.Mode {
		return &perrors.PatternValueMismatch{Expected: p.Mode, Got: m.Mode}
	}
	if err := p.Base.matchOperand(armmodel.RegOperand(m.Base), mr); err != nil {
		return err
	}
	if p.Offset != nil {
		if m.Offset == nil || m.Offset.Kind != armmodel.OperandImmediate || m.Offset.Immediate.Value != *p.Offset {
			return &perrors.PatternValueMismatch{Expected: *p.Offset, Got: m.Offset}
		}
	}
	return nil
}

func (p MemAccessPat) Consumer() OperandConsumer { return singleConsumer{m: p, self: p} }

// --- Wildcards (§3, §4.6) ---

// WildcardSingle (`@[:name]`) consumes exactly one operand.
type WildcardSingle struct {
	Capture string
}

func (w WildcardSingle) matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error {
	return mr.Set(w.Capture, op)
}

func (w WildcardSingle) Consumer() OperandConsumer { return singleConsumer{m: w, self: w} }

// nullOperand is the sentinel WildcardOptional binds its capture to on a
// zero-operand match (spec §3).
type nullOperand struct{}

// WildcardMulti (`*[:name]`) consumes a possibly-empty contiguous run,
// backtracking over every split point (spec §4.6).
type WildcardMulti struct {
	Capture string
}

func (w WildcardMulti) Consume(remaining []armmodel.Operand, mr *matchresult.MatchResult, complete Complete) error {
	for i := 0; i <= len(remaining); i++ {
		head, tail := remaining[:i], remaining[i:]
		err := mr.Transact(func() error {
			captured := make([]interface{}, len(head))
			for j, o := range head {
				captured[j] = o
			}
			if err := mr.Set(w.Capture, captured); err != nil {
				return err
			}
			return complete(tail)
		})
		if err == nil {
			return nil
		}
	}
	return &perrors.NoMatches{}
}

// WildcardOptional (`?[:name]`) consumes 0 or 1 operand, binding the null
// sentinel on the zero-operand branch.
type WildcardOptional struct {
	Capture string
}

func (w WildcardOptional) Consume(remaining []armmodel.Operand, mr *matchresult.MatchResult, complete Complete) error {
	if len(remaining) > 0 {
		err := mr.Transact(func() error {
			if err := mr.Set(w.Capture, remaining[0]); err != nil {
				return err
			}
			return complete(remaining[1:])
		})
		if err == nil {
			return nil
		}
	}
	return mr.Transact(func() error {
		if err := mr.Set(w.Capture, nullOperand{}); err != nil {
			return err
		}
		return complete(remaining)
	})
}

// RegRangePat (`ra-rb`) consumes a maximal contiguous ascending register
// run starting at the head, trying each possible end position longest
// first under a transaction (spec §4.6, §6 "Reg range"). Start and End
// each check (or capture) one boundary of the run — a literal register
// name, or `@[:cap]` to bind whichever register the run happens to
// start/end on. An inverted run (End's register ordering before
// Start's) is a mismatch, matching the spec's "ascending only; ...
// inverted ranges are errors".
type RegRangePat struct {
	Start, End singleValueMatcher
}

func (p RegRangePat) Consume(remaining []armmodel.Operand, mr *matchresult.MatchResult, complete Complete) error {
	if len(remaining) == 0 || remaining[0].Kind != armmodel.OperandRegister {
		return &perrors.PatternTypeMismatch{Expected: p, Got: remaining}
	}
	start, ok := armmodel.RegisterIndex(remaining[0].Register.Name())
	if !ok {
		return &perrors.PatternTypeMismatch{Expected: p, Got: remaining[0]}
	}

	maxRun := 1
	for maxRun < len(remaining) {
		idx, ok := armmodel.RegisterIndex(remaining[maxRun].Register.Name())
		if remaining[maxRun].Kind != armmodel.OperandRegister || !ok || idx != start+maxRun {
			break
		}
		maxRun++
	}

	for run := maxRun; run >= 1; run-- {
		head, tail := remaining[:run], remaining[run:]
		first, last := head[0], head[len(head)-1]
		firstIdx, _ := armmodel.RegisterIndex(first.Register.Name())
		lastIdx, _ := armmodel.RegisterIndex(last.Register.Name())
		if lastIdx < firstIdx {
			continue
		}
		err := mr.Transact(func() error {
			if err := p.Start.matchOperand(first, mr); err != nil {
				return err
			}
			if err := p.End.matchOperand(last, mr); err != nil {
				return err
			}
			return complete(tail)
		})
		if err == nil {
			return nil
		}
	}
	return &perrors.NoMatches{}
}
