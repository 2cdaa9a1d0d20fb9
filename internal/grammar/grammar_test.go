package grammar

import (
	"testing"

	"github.com/chananele/parm/internal/hostenv"
)

func TestCompilePatternMatchesSimpleOpcodeSequence(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: mov r0, r1\n0x1004: bx lr")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	pat, err := CompilePattern("mov r0, r1\nbx lr")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}

	mr, err := pat.FindFirst(prog)
	if err != nil {
		t.Fatalf("expected a match, got error: %v", err)
	}
	if mr == nil {
		t.Fatalf("expected a non-nil match result")
	}
}

func TestCompilePatternOpcodeMismatchIsNotFound(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: mov r0, r1")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	pat, err := CompilePattern("add r0, r1")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}

	if _, err := pat.FindFirst(prog); err == nil {
		t.Fatalf("expected no match for a mismatched opcode")
	}
}

func TestCompilePatternCapturesRegisterWildcard(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x2000: mov r2, r3")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	pat, err := CompilePattern("mov @:dst, r3")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}

	mr, err := pat.FindFirst(prog)
	if err != nil {
		t.Fatalf("expected a match: %v", err)
	}
	obj := mr.ToObj()
	if _, ok := obj["dst"]; !ok {
		t.Fatalf("expected dst to be captured, got %#v", obj)
	}
}

func TestParseInstructionsRequiresLeadingAddress(t *testing.T) {
	if _, _, err := ParseInstructions("mov r0, r1"); err == nil {
		t.Fatalf("expected an error when the first line has no address")
	}
}

func TestParseInstructionsAdvancesByFixedWidth(t *testing.T) {
	_, addrs, err := ParseInstructions("0x1000: mov r0, r1\nbx lr")
	if err != nil {
		t.Fatalf("parsing instructions: %v", err)
	}
	if len(addrs) != 2 || addrs[0] != 0x1000 || addrs[1] != 0x1004 {
		t.Fatalf("unexpected addresses: %#v", addrs)
	}
}
