package sigfile

import "testing"

func TestParseSignatureDefaultsToFindSingle(t *testing.T) {
	sig, err := ParseSignature([]byte("name: probe\npattern: |\n  mov r0, r1\n"))
	if err != nil {
		t.Fatalf("parsing signature: %v", err)
	}
	if sig.EffectiveMethod() != FindSingle {
		t.Fatalf("expected default method find_single, got %q", sig.EffectiveMethod())
	}
}

func TestParseSignatureRejectsUnknownMethod(t *testing.T) {
	_, err := ParseSignature([]byte("name: probe\nmethod: find_everything\npattern: mov r0, r1\n"))
	if err == nil {
		t.Fatalf("expected an error for an unrecognized method")
	}
}

func TestParseSignaturesSplitsMultiDocumentStream(t *testing.T) {
	stream := "name: a\npattern: mov r0, r1\n---\nname: b\nmethod: find_all\npattern: bx lr\n"
	sigs, err := ParseSignatures([]byte(stream))
	if err != nil {
		t.Fatalf("parsing stream: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}
	if sigs[0].Name != "a" || sigs[1].Name != "b" {
		t.Fatalf("signatures out of order: %#v", sigs)
	}
	if sigs[1].EffectiveMethod() != FindAll {
		t.Fatalf("expected second signature's method to be find_all, got %q", sigs[1].EffectiveMethod())
	}
}

func TestResultRoundTripsThroughYAML(t *testing.T) {
	r := &Result{Result: Pass, Matches: map[string]int64{"target": 4096}}
	data, err := r.Marshal()
	if err != nil {
		t.Fatalf("marshaling result: %v", err)
	}
	back, err := ParseResult(data)
	if err != nil {
		t.Fatalf("parsing marshaled result: %v", err)
	}
	if back.Result != Pass || back.Matches["target"] != 4096 {
		t.Fatalf("round-trip mismatch: %#v", back)
	}
}
