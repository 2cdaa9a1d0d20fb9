// Package parm is the public embedding API (spec §6 "Host integration"):
// compile signature-file pattern text, run it against a program.Program
// built from one of internal/hostenv's providers, and collect the result
// as a sigfile.Result a caller can serialize straight back out to YAML.
package parm

import (
	"fmt"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/grammar"
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/pattern"
	"github.com/chananele/parm/internal/perrors"
	"github.com/chananele/parm/internal/program"
	"github.com/chananele/parm/internal/sigfile"
)

// Engine compiles and runs signatures against a program. It holds no
// per-run state of its own; every method takes the program.Program it
// operates on explicitly, so one Engine can be shared across goroutines
// or binaries.
type Engine struct {
	compiler *grammar.Compiler
}

// New returns a ready-to-use Engine.
func New() *Engine {
	return &Engine{compiler: grammar.NewCompiler()}
}

// CompileSignature parses a signature's pattern body (spec §6 "pattern:"
// field) into a runnable *pattern.Pattern.
func (e *Engine) CompileSignature(sig *sigfile.Signature) (*pattern.Pattern, error) {
	p, err := grammar.CompilePattern(sig.Pattern)
	if err != nil {
		return nil, fmt.Errorf("parm: compiling signature %q: %w", sig.Name, err)
	}
	return p, nil
}

// RunSignature compiles and runs sig against prog under its declared
// method (spec §6 "method:", default find_single), seeding the match
// with imports (previously bound captures this signature's `imports:`
// list names) and returning a sigfile.Result carrying every export
// (spec §6 "exports:") as a plain address/integer, ready to serialize.
//
// A pattern mismatch (no match, too many matches for find_single, ...)
// is not a Go error: it is reported as Result.Result == Failure, with
// the mismatch's message recorded in Result.Errors. Only a non-mismatch
// error (a malformed signature, a host I/O failure) is returned as err.
func (e *Engine) RunSignature(prog *program.Program, sig *sigfile.Signature, imports map[string]interface{}) (*sigfile.Result, error) {
	for _, name := range sig.Imports {
		if _, ok := imports[name]; !ok {
			return nil, fmt.Errorf("parm: signature %q: missing required import %q", sig.Name, name)
		}
	}

	pat, err := e.CompileSignature(sig)
	if err != nil {
		return nil, err
	}

	results, err := runMethod(pat, prog, sig.EffectiveMethod(), imports)
	if err != nil {
		if perrors.IsMismatch(err) {
			return &sigfile.Result{Result: sigfile.Failure, Errors: []string{err.Error()}}, nil
		}
		return nil, err
	}

	matches, err := collectExports(sig, results)
	if err != nil {
		return &sigfile.Result{Result: sigfile.Failure, Errors: []string{err.Error()}}, nil
	}
	return &sigfile.Result{Result: sigfile.Pass, Matches: matches}, nil
}

// runMethod dispatches to the Pattern finder sig.EffectiveMethod() names,
// seeding imports into every candidate match the same way (spec §6
// "imports: ... required captures from previously matched sigs" — a
// capture collision against an import is a genuine mismatch, same as
// any other bound value disagreeing with a pattern's own literal).
func runMethod(pat *pattern.Pattern, prog *program.Program, method sigfile.FindMethod, imports map[string]interface{}) ([]*matchresult.MatchResult, error) {
	switch method {
	case sigfile.FindAll:
		var out []*matchresult.MatchResult
		for _, c := range prog.Cursors() {
			mr, err := pat.MatchWithImports(c, prog, imports)
			if err == nil {
				out = append(out, mr)
				continue
			}
			if !perrors.IsMismatch(err) {
				return nil, err
			}
		}
		return out, nil
	case sigfile.FindFirst:
		for _, c := range prog.Cursors() {
			mr, err := pat.MatchWithImports(c, prog, imports)
			if err == nil {
				return []*matchresult.MatchResult{mr}, nil
			}
			if !perrors.IsMismatch(err) {
				return nil, err
			}
		}
		return nil, &perrors.NoMatches{}
	case sigfile.FindLast:
		cursors := prog.Cursors()
		for i := len(cursors) - 1; i >= 0; i-- {
			mr, err := pat.MatchWithImports(cursors[i], prog, imports)
			if err == nil {
				return []*matchresult.MatchResult{mr}, nil
			}
			if !perrors.IsMismatch(err) {
				return nil, err
			}
		}
		return nil, &perrors.NoMatches{}
	default: // FindSingle
		all, err := runMethod(pat, prog, sigfile.FindAll, imports)
		if err != nil {
			return nil, err
		}
		switch len(all) {
		case 0:
			return nil, &perrors.NoMatches{}
		case 1:
			return all, nil
		default:
			return nil, &perrors.TooManyMatches{Count: len(all)}
		}
	}
}

// collectExports pulls each name in sig.Exports out of results as a
// plain int64 address, failing if find_all produced more than one match
// (there would be no single value to export) or if an export never got
// bound, or isn't address-shaped.
func collectExports(sig *sigfile.Signature, results []*matchresult.MatchResult) (map[string]int64, error) {
	if len(sig.Exports) == 0 {
		return nil, nil
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("parm: signature %q: cannot export from %d matches, need exactly 1", sig.Name, len(results))
	}
	mr := results[0]

	out := make(map[string]int64, len(sig.Exports))
	for _, name := range sig.Exports {
		raw, ok := mr.Get(name)
		if !ok {
			return nil, fmt.Errorf("parm: signature %q: export %q was never bound", sig.Name, name)
		}
		addr, ok := toAddress(raw)
		if !ok {
			return nil, fmt.Errorf("parm: signature %q: export %q is not address-shaped (%T)", sig.Name, name, raw)
		}
		out[name] = addr
	}
	return out, nil
}

// toAddress coerces a bound capture's value to a plain address integer,
// the only shape spec §6's match-result "matches:" map accepts.
func toAddress(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case armmodel.Address:
		return int64(x.Value), true
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}

// Chain runs an ordered list of signatures against prog (spec §6:
// "imports: ... required captures from previously matched sigs"), each
// signature's exports becoming available as imports to every signature
// after it. Results are returned in the same order as sigs; a later
// signature failing does not stop earlier ones from having run, but it
// does mean any signature depending on its exports will fail to resolve
// its imports and report NotRun.
func (e *Engine) Chain(prog *program.Program, sigs []*sigfile.Signature) ([]*sigfile.Result, error) {
	env := make(map[string]interface{})
	out := make([]*sigfile.Result, len(sigs))

	for i, sig := range sigs {
		imports, ok := gatherImports(sig, env)
		if !ok {
			out[i] = &sigfile.Result{
				Result: sigfile.NotRun,
				Errors: []string{fmt.Sprintf("parm: signature %q: unresolved imports", sig.Name)},
			}
			continue
		}

		res, err := e.RunSignature(prog, sig, imports)
		if err != nil {
			return out, err
		}
		out[i] = res
		for name, addr := range res.Matches {
			env[name] = addr
		}
	}
	return out, nil
}

// gatherImports builds the imports map a signature needs out of env,
// failing (ok=false) if any required import is still missing.
func gatherImports(sig *sigfile.Signature, env map[string]interface{}) (map[string]interface{}, bool) {
	imports := make(map[string]interface{}, len(sig.Imports))
	for _, name := range sig.Imports {
		v, ok := env[name]
		if !ok {
			return nil, false
		}
		imports[name] = v
	}
	return imports, true
}
