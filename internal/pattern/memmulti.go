package pattern

import (
	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/perrors"
)

// MemMultiPat matches a `{reg,...}` multi-memory operand. It consumes one
// whole operand (the register list), then runs its element consumers
// against that inner list via the same CPS consumer protocol (spec §4.6:
// "elements of MemMulti are consumed via the same protocol against the
// register-list").
type MemMultiPat struct {
	Elements []OperandConsumer
}

func (p MemMultiPat) Consume(remaining []armmodel.Operand, mr *matchresult.MatchResult, complete Complete) error {
	if len(remaining) == 0 {
		return &perrors.OperandsExhausted{Pattern: p}
	}
	head, tail := remaining[0], remaining[1:]
	if head.Kind != armmodel.OperandRegisterList {
		return &perrors.PatternTypeMismatch{Expected: p, Got: head}
	}

	regOperands := make([]armmodel.Operand, len(head.RegisterList.Regs))
	for i, r := range head.RegisterList.Regs {
		regOperands[i] = armmodel.RegOperand(r)
	}

	if err := MatchOperands(p.Elements, regOperands, mr); err != nil {
		return err
	}
	return complete(tail)
}
