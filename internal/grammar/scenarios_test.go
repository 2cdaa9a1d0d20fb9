package grammar

import (
	"testing"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/hostenv"
	"github.com/chananele/parm/internal/perrors"
)

// TestFindSingleRaisesTooManyMatchesAcrossDuplicateCandidates covers the
// "too many matches" scenario: find_single must fail when more than one
// cursor matches, while find_all reports every one of them.
func TestFindSingleRaisesTooManyMatchesAcrossDuplicateCandidates(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: bl 0x3000\n0x1004: bl 0x3000")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	pat, err := CompilePattern("bl @:target")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}

	all, err := pat.FindAll(prog)
	if err != nil {
		t.Fatalf("find_all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(all))
	}

	_, err = pat.FindSingle(prog)
	if err == nil {
		t.Fatalf("expected find_single to fail with more than one match")
	}
	tmm, ok := err.(*perrors.TooManyMatches)
	if !ok {
		t.Fatalf("expected *perrors.TooManyMatches, got %#v", err)
	}
	if tmm.Count != 2 {
		t.Fatalf("expected a count of 2, got %d", tmm.Count)
	}
}

// TestCaptureCollisionOnConflictingRebindWithinOneMatch covers capture
// re-binding within a single match attempt: the same name bound twice to
// different values must raise CaptureCollision, and twice to the same
// value must succeed.
func TestCaptureCollisionOnConflictingRebindWithinOneMatch(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: mov r5, r0\n0x1004: mov r4, r1")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	pat, err := CompilePattern("mov @:reg, r0\nmov @:reg, r1")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}
	_, err = pat.FindFirst(prog)
	if err == nil {
		t.Fatalf("expected a capture collision rebinding reg to a different value")
	}
	if _, ok := err.(*perrors.CaptureCollision); !ok {
		t.Fatalf("expected a CaptureCollision, got %#v", err)
	}

	provider2 := hostenv.NewTextProvider()
	prog2, err := provider2.LoadProgram("0x2000: mov r5, r0\n0x2004: mov r5, r1")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}
	mr, err := pat.FindFirst(prog2)
	if err != nil {
		t.Fatalf("expected re-binding reg to an equal value to succeed: %v", err)
	}
	obj := mr.ToObj()
	if obj["reg"] != "r5" {
		t.Fatalf("expected reg to serialize to r5, got %#v", obj["reg"])
	}
}

// TestGotoNextSkipsCaptureCollisionCandidates covers the skip-and-advance
// scenario: goto_next must silently skip a candidate instruction whose
// capture value conflicts with one already bound (a CaptureCollision,
// not a panic — the armmodel.Operand capture shape is non-comparable),
// and succeed against a later candidate that agrees.
func TestGotoNextSkipsCaptureCollisionCandidates(t *testing.T) {
	provider := hostenv.NewTextProvider()
	src := "0x1000: mov r5, r0\n" +
		"0x1004: blxeq r1\n" +
		"0x1008: mov r0, r4\n" +
		"0x100C: bleq 0x1000\n" +
		"0x1010: mov r0, r5\n" +
		"0x1014: bleq 0x2000"
	prog, err := provider.LoadProgram(src)
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	pat, err := CompilePattern("mov @:reg, r0\n% goto_next(\"mov r0, @:reg\\nbleq @:target\")")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}

	mr, err := pat.FindFirst(prog)
	if err != nil {
		t.Fatalf("expected the search to recover past the conflicting candidate: %v", err)
	}
	obj := mr.ToObj()
	if obj["reg"] != "r5" {
		t.Fatalf("expected reg to serialize to r5, got %#v", obj["reg"])
	}
	if obj["target"] != uint64(0x2000) {
		t.Fatalf("expected target to serialize to 0x2000, got %#v", obj["target"])
	}
}

// TestBlockPatternMatchesDataPrecedingAnchor covers the data-block + anchor
// scenario: the reverse half of a block pattern must read backward through
// a data block immediately preceding the anchored instruction, and a
// changed literal must surface as a PatternValueMismatch.
func TestBlockPatternMatchesDataPrecedingAnchor(t *testing.T) {
	dd, err := armmodel.WriteSizedLE(0xDEADBEEF, 4)
	if err != nil {
		t.Fatalf("building .dd bytes: %v", err)
	}
	dw1, err := armmodel.WriteSizedLE(0x1337, 2)
	if err != nil {
		t.Fatalf("building .dw bytes: %v", err)
	}
	dw2, err := armmodel.WriteSizedLE(0, 2)
	if err != nil {
		t.Fatalf("building .dw bytes: %v", err)
	}
	data := append(append(append([]byte{}, dd...), dw1...), dw2...)

	buildProg := func() *hostenv.TextProvider {
		return hostenv.NewTextProvider()
	}

	provider := buildProg()
	prog, err := provider.LoadProgram("0x2008: mov r0, r2\n0x200C: mov r1, r0")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}
	if err := provider.LoadDataBlock(prog, 0x2000, data); err != nil {
		t.Fatalf("loading data block: %v", err)
	}

	pat, err := CompilePattern(".dd 0xDEADBEEF\n.dw 0x1337, 0\n> mov r0, r2\nmov r1, r0")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}
	if _, err := pat.FindFirst(prog); err != nil {
		t.Fatalf("expected the data block preceding the anchor to match: %v", err)
	}

	providerBad := buildProg()
	progBad, err := providerBad.LoadProgram("0x2008: mov r0, r2\n0x200C: mov r1, r0")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}
	if err := providerBad.LoadDataBlock(progBad, 0x2000, data); err != nil {
		t.Fatalf("loading data block: %v", err)
	}
	badPat, err := CompilePattern(".dd 0xDEADBEEF\n.dw 0x1338, 0\n> mov r0, r2\nmov r1, r0")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}
	anchor, err := progBad.CreateCursor(0x2008)
	if err != nil {
		t.Fatalf("locating the anchor cursor: %v", err)
	}
	_, err = badPat.Match(anchor, progBad)
	if err == nil {
		t.Fatalf("expected a changed data literal to fail to match")
	}
	if _, ok := err.(*perrors.PatternValueMismatch); !ok {
		t.Fatalf("expected a PatternValueMismatch, got %#v", err)
	}
}

// TestMultiWildcardBacktracksInsideRegisterList covers backtracking over a
// register list's own elements: a sole `{*:cap}` binds the whole list, and
// `{*:cap, lit}` backtracks to leave the trailing literal register free.
func TestMultiWildcardBacktracksInsideRegisterList(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: push {r0, r1}")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	fullPat, err := CompilePattern("push {*:regs}")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}
	mr, err := fullPat.FindFirst(prog)
	if err != nil {
		t.Fatalf("expected the full register list to match: %v", err)
	}
	regs, ok := mr.ToObj()["regs"].([]interface{})
	if !ok || len(regs) != 2 || regs[0] != "r0" || regs[1] != "r1" {
		t.Fatalf("expected regs to be [r0, r1], got %#v", mr.ToObj()["regs"])
	}

	headPat, err := CompilePattern("push {*:head, r1}")
	if err != nil {
		t.Fatalf("compiling pattern: %v", err)
	}
	mr2, err := headPat.FindFirst(prog)
	if err != nil {
		t.Fatalf("expected the backtracked head to match: %v", err)
	}
	head, ok := mr2.ToObj()["head"].([]interface{})
	if !ok || len(head) != 1 || head[0] != "r0" {
		t.Fatalf("expected head to be [r0], got %#v", mr2.ToObj()["head"])
	}
}
