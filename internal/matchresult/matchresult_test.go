package matchresult

import (
	"testing"

	"github.com/chananele/parm/internal/armmodel"
)

// TestSetAcceptsEqualNonComparableValueWithoutPanicking guards the fix for
// re-binding a capture whose value is a struct embedding a slice field
// (armmodel.Operand, via RegisterList) or a raw []interface{} (a
// WildcardMulti capture): a native `==` panics on these rather than
// reporting equal/unequal, which equalValue must not do.
func TestSetAcceptsEqualNonComparableValueWithoutPanicking(t *testing.T) {
	r5 := armmodel.RegOperand(armmodel.Register{Synonym: "r5"})
	r5Again := armmodel.RegOperand(armmodel.Register{Synonym: "r5"})
	r4 := armmodel.RegOperand(armmodel.Register{Synonym: "r4"})

	mr := New()
	if err := mr.Set("reg", r5); err != nil {
		t.Fatalf("first set should succeed: %v", err)
	}
	if err := mr.Set("reg", r5Again); err != nil {
		t.Fatalf("re-setting an equal armmodel.Operand should succeed silently, not panic: %v", err)
	}
	if err := mr.Set("reg", r4); err == nil {
		t.Fatalf("re-setting a different armmodel.Operand should raise CaptureCollision")
	}

	multi := New()
	headA := []interface{}{r5}
	headB := []interface{}{r5Again}
	headC := []interface{}{r4}
	if err := multi.Set("regs", headA); err != nil {
		t.Fatalf("first multi-wildcard set should succeed: %v", err)
	}
	if err := multi.Set("regs", headB); err != nil {
		t.Fatalf("re-setting an equal []interface{} capture should succeed silently, not panic: %v", err)
	}
	if err := multi.Set("regs", headC); err == nil {
		t.Fatalf("re-setting a different []interface{} capture should raise CaptureCollision")
	}
}

func TestSetIsInsertOnce(t *testing.T) {
	mr := New()
	if err := mr.Set("x", 1); err != nil {
		t.Fatalf("first set should succeed: %v", err)
	}
	if err := mr.Set("x", 1); err != nil {
		t.Fatalf("re-setting the same value should succeed silently: %v", err)
	}
	if err := mr.Set("x", 2); err == nil {
		t.Fatalf("re-setting a different value should raise CaptureCollision")
	}
}

func TestTransactRollsBackOnFailure(t *testing.T) {
	mr := New()
	sentinel := errFailure{}
	err := mr.Transact(func() error {
		if err := mr.Set("y", 1); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected the sentinel error back, got %v", err)
	}
	if _, ok := mr.Get("y"); ok {
		t.Fatalf("a key set inside a rolled-back transaction should not be visible")
	}
}

func TestTransactCommitsOnSuccess(t *testing.T) {
	mr := New()
	err := mr.Transact(func() error {
		return mr.Set("z", 42)
	})
	if err != nil {
		t.Fatalf("transaction should have succeeded: %v", err)
	}
	v, ok := mr.Get("z")
	if !ok || v.(int) != 42 {
		t.Fatalf("committed value not visible: %#v, %v", v, ok)
	}
}

func TestChildScopeGetFallsThroughToParent(t *testing.T) {
	mr := New()
	if err := mr.Set("outer", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	child := mr.NewScope("inner")
	v, ok := child.Get("outer")
	if !ok || v.(string) != "v" {
		t.Fatalf("child scope should see parent's bindings, got %#v, %v", v, ok)
	}
}

func TestToObjPrefersNameOverIndexForAliasedScope(t *testing.T) {
	mr := New()
	child := mr.NewScope("named")
	if err := child.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	obj := mr.ToObj()
	sub, ok := obj["sub_matches"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected sub_matches in %#v", obj)
	}
	if _, hasIndex := sub["#0"]; hasIndex {
		t.Fatalf("an aliased scope should not also appear under its index key")
	}
	if _, hasName := sub["named"]; !hasName {
		t.Fatalf("expected the scope to appear under its name, got %#v", sub)
	}
}

type errFailure struct{}

func (errFailure) Error() string { return "sentinel failure" }
