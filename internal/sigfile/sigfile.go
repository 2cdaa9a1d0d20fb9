// Package sigfile implements the signature-file and match-result-file
// YAML formats (spec §6 "Signature-file format"): one signature per
// document, its required imports and promised exports, the find method
// to run it with, and the raw pattern text. Match-result files mirror
// the same shape with a pass/failure/not-run verdict instead of a
// pattern body.
package sigfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FindMethod selects which Pattern finder a signature runs under (spec
// §6 "method: find_all|find_first|find_single|find_last").
type FindMethod string

const (
	FindAll    FindMethod = "find_all"
	FindFirst  FindMethod = "find_first"
	FindSingle FindMethod = "find_single"
	FindLast   FindMethod = "find_last"
)

func (m FindMethod) valid() bool {
	switch m {
	case FindAll, FindFirst, FindSingle, FindLast, "":
		return true
	default:
		return false
	}
}

// Signature is one parsed signature-file document (spec §6).
type Signature struct {
	Name    string     `yaml:"name,omitempty"`
	Imports []string   `yaml:"imports,omitempty"`
	Exports []string   `yaml:"exports,omitempty"`
	Method  FindMethod `yaml:"method,omitempty"`
	Pattern string     `yaml:"pattern"`
}

// EffectiveMethod returns Method, defaulting to find_single when absent
// (spec §6: "method: ... default find_single").
func (s *Signature) EffectiveMethod() FindMethod {
	if s.Method == "" {
		return FindSingle
	}
	return s.Method
}

// ParseSignature decodes a single signature-file YAML document.
func ParseSignature(data []byte) (*Signature, error) {
	var s Signature
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("sigfile: parsing signature: %w", err)
	}
	if !s.Method.valid() {
		return nil, fmt.Errorf("sigfile: unrecognized method %q", s.Method)
	}
	return &s, nil
}

// Marshal encodes the signature back to YAML, e.g. for round-tripping a
// generated signature out to disk.
func (s *Signature) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// ParseSignatures splits a multi-document YAML stream (`---`-separated)
// into its signatures, in file order.
func ParseSignatures(data []byte) ([]*Signature, error) {
	dec := yaml.NewDecoder(newBytesReader(data))
	var sigs []*Signature
	for {
		var s Signature
		if err := dec.Decode(&s); err != nil {
			if isEOF(err) {
				break
			}
			return nil, fmt.Errorf("sigfile: parsing signature stream: %w", err)
		}
		if !s.Method.valid() {
			return nil, fmt.Errorf("sigfile: unrecognized method %q", s.Method)
		}
		sigCopy := s
		sigs = append(sigs, &sigCopy)
	}
	return sigs, nil
}

// Verdict is a match-result file's outcome (spec §6 "result:
// pass|failure|not run").
type Verdict string

const (
	Pass    Verdict = "pass"
	Failure Verdict = "failure"
	NotRun  Verdict = "not run"
)

// Result is one match-result-file document (spec §6): the signature's
// outcome, any errors encountered, and the addresses it bound, keyed by
// capture name.
type Result struct {
	Result  Verdict          `yaml:"result"`
	Errors  []string         `yaml:"errors,omitempty"`
	Matches map[string]int64 `yaml:"matches,omitempty"`
}

// ParseResult decodes a single match-result-file YAML document.
func ParseResult(data []byte) (*Result, error) {
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("sigfile: parsing result: %w", err)
	}
	return &r, nil
}

// Marshal encodes the result back to YAML.
func (r *Result) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}
