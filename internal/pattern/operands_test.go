package pattern

import (
	"testing"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/matchresult"
)

func reg(name string) armmodel.Operand {
	return armmodel.RegOperand(armmodel.Register{Synonym: name})
}

func TestRegPatMatchesCanonicalSynonym(t *testing.T) {
	mr := matchresult.New()
	p := RegPat{Name: "sp"}
	if err := p.matchOperand(reg("r13"), mr); err != nil {
		t.Fatalf("sp should match r13: %v", err)
	}
	if err := p.matchOperand(reg("r1"), mr); err == nil {
		t.Fatalf("sp should not match r1")
	}
}

func TestRegWildcardCaptures(t *testing.T) {
	mr := matchresult.New()
	p := RegWildcard{Capture: "dst"}
	if err := p.matchOperand(reg("r4"), mr); err != nil {
		t.Fatalf("wildcard should match any register: %v", err)
	}
	v, ok := mr.Get("dst")
	if !ok {
		t.Fatalf("capture was not bound")
	}
	got, ok := v.(armmodel.Register)
	if !ok || got.Name() != "r4" {
		t.Fatalf("capture bound to %#v, want r4", v)
	}
}

func TestRegRangePatGreedyMatchBindsBounds(t *testing.T) {
	mr := matchresult.New()
	p := RegRangePat{Start: RegPat{Name: "r1"}, End: RegWildcard{Capture: "last"}}

	operands := []armmodel.Operand{reg("r1"), reg("r2"), reg("r3"), reg("r4")}
	var completedWith []armmodel.Operand
	err := p.Consume(operands, mr, func(remaining []armmodel.Operand) error {
		completedWith = remaining
		return nil
	})
	if err != nil {
		t.Fatalf("range should match greedily: %v", err)
	}
	if len(completedWith) != 0 {
		t.Fatalf("expected the whole run consumed, %d operands left", len(completedWith))
	}
	v, ok := mr.Get("last")
	if !ok {
		t.Fatalf("End capture was not bound")
	}
	if got := v.(armmodel.Register).Name(); got != "r4" {
		t.Fatalf("End captured %s, want r4", got)
	}
}

func TestRegRangePatBacktracksWhenLongerCompleteFails(t *testing.T) {
	mr := matchresult.New()
	p := RegRangePat{Start: RegPat{Name: "r1"}, End: RegWildcard{Capture: "last"}}

	operands := []armmodel.Operand{reg("r1"), reg("r2"), reg("r3")}
	var seen []string
	err := p.Consume(operands, mr, func(remaining []armmodel.Operand) error {
		seen = append(seen, mr0Label(remaining))
		if len(remaining) != 1 {
			return &shortRunRequired{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("should eventually find a run leaving exactly one operand: %v", err)
	}
	if len(seen) == 0 {
		t.Fatalf("complete was never invoked")
	}
}

func TestRegRangePatMismatchOnNonRegister(t *testing.T) {
	mr := matchresult.New()
	p := RegRangePat{Start: RegWildcard{Capture: "a"}, End: RegWildcard{Capture: "b"}}
	err := p.Consume([]armmodel.Operand{armmodel.ImmOperand(3)}, mr, func([]armmodel.Operand) error { return nil })
	if err == nil {
		t.Fatalf("range pattern should reject a non-register head operand")
	}
}

type shortRunRequired struct{}

func (e *shortRunRequired) Error() string { return "need a shorter run" }

func mr0Label(ops []armmodel.Operand) string {
	return string(rune('0' + len(ops)))
}
