package parm

import (
	"testing"

	"github.com/chananele/parm/internal/hostenv"
	"github.com/chananele/parm/internal/sigfile"
)

func TestRunSignatureExportsBoundAddress(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: mov r0, r1\n0x1004: bx lr")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	sig := &sigfile.Signature{
		Name:    "entry_point",
		Exports: []string{"entry"},
		Pattern: "@:entry: mov r0, r1",
	}

	eng := New()
	res, err := eng.RunSignature(prog, sig, nil)
	if err != nil {
		t.Fatalf("running signature: %v", err)
	}
	if res.Result != sigfile.Pass {
		t.Fatalf("expected pass, got %v (errors: %v)", res.Result, res.Errors)
	}
	if res.Matches["entry"] != 0x1000 {
		t.Fatalf("expected entry=0x1000, got %#v", res.Matches)
	}
}

func TestRunSignatureMismatchReportsFailureNotError(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: mov r0, r1")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	sig := &sigfile.Signature{Name: "nope", Pattern: "add r0, r1"}

	eng := New()
	res, err := eng.RunSignature(prog, sig, nil)
	if err != nil {
		t.Fatalf("a mismatch should not be a Go error: %v", err)
	}
	if res.Result != sigfile.Failure {
		t.Fatalf("expected failure, got %v", res.Result)
	}
	if len(res.Errors) == 0 {
		t.Fatalf("expected the mismatch reason recorded in Errors")
	}
}

func TestChainThreadsExportsIntoLaterImports(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: mov r0, r1\n0x1004: bx lr")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	first := &sigfile.Signature{
		Name:    "entry_point",
		Exports: []string{"entry"},
		Pattern: "@:entry: mov r0, r1",
	}
	second := &sigfile.Signature{
		Name:    "tail_call",
		Imports: []string{"entry"},
		Pattern: "bx lr",
	}

	eng := New()
	results, err := eng.Chain(prog, []*sigfile.Signature{first, second})
	if err != nil {
		t.Fatalf("running chain: %v", err)
	}
	if results[0].Result != sigfile.Pass || results[1].Result != sigfile.Pass {
		t.Fatalf("expected both signatures to pass, got %#v", results)
	}
}

func TestChainReportsNotRunForUnresolvedImport(t *testing.T) {
	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram("0x1000: bx lr")
	if err != nil {
		t.Fatalf("loading program: %v", err)
	}

	orphan := &sigfile.Signature{
		Name:    "depends_on_nothing_run",
		Imports: []string{"never_bound"},
		Pattern: "bx lr",
	}

	eng := New()
	results, err := eng.Chain(prog, []*sigfile.Signature{orphan})
	if err != nil {
		t.Fatalf("chain itself should not error: %v", err)
	}
	if results[0].Result != sigfile.NotRun {
		t.Fatalf("expected not run, got %v", results[0].Result)
	}
}
