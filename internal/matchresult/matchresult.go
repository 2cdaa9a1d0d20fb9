// Package matchresult implements the hierarchical capture-scope tree
// (spec §4.3): insertion-once key bindings, forward-declared variables,
// and nested single/multi child scopes, all transactional.
package matchresult

import (
	"reflect"

	"github.com/chananele/parm/internal/chain"
	"github.com/chananele/parm/internal/perrors"
	"github.com/chananele/parm/internal/transact"
	"github.com/google/uuid"
)

// declaredVar is a placeholder bound in a scope before its value is known
// (used for lazy labels / late-bound captures). A read before it is filled
// raises the internal UndefinedVar error.
type declaredVar struct {
	name string
	val  interface{}
	set  bool
}

// MatchResult is one scope in the capture tree.
type MatchResult struct {
	transact.Transactable

	parent *MatchResult
	runID  uuid.UUID // only set on the root scope of a top-level match

	results     *chain.Map[string, interface{}]
	scopeIx     *chain.Counter
	capturedVar *chain.Stack[*declaredVar]

	sub  *chain.Map[string, *MatchResult]
	subs *chain.Map[string, *MultiMatchResult]

	// names maps an index key ("#0", "#1", ...) to the name it was also
	// aliased under, if any. Tracked transactionally alongside sub/subs so
	// a rolled-back NewScope/NewMultiScope leaves no trace (spec §8
	// invariant 1), and lets to_obj prefer the string name over the
	// integer index per spec §4.3 (invariant b).
	names *chain.Map[string, string]
}

// New creates a fresh top-level MatchResult (the root of a find/match call).
func New() *MatchResult {
	mr := newScope(nil)
	mr.runID = uuid.New()
	return mr
}

func newScope(parent *MatchResult) *MatchResult {
	mr := &MatchResult{
		parent:      parent,
		results:     chain.NewMap[string, interface{}](),
		scopeIx:     chain.NewCounter(),
		capturedVar: chain.NewStack[*declaredVar](),
		sub:         chain.NewMap[string, *MatchResult](),
		subs:        chain.NewMap[string, *MultiMatchResult](),
		names:       chain.NewMap[string, string](),
	}
	mr.Transactable.Init()
	return mr
}

// RunID returns the UUID stamped on the root scope of a top-level match,
// used to correlate this match against others in logs (SPEC_FULL §2 domain
// stack). Child scopes return their root's ID.
func (mr *MatchResult) RunID() uuid.UUID {
	if mr.parent != nil {
		return mr.parent.RunID()
	}
	return mr.runID
}

// Transact runs fn under a nested transaction tracking every internal
// container; on rollback any variable filled inside is also cleared.
func (mr *MatchResult) Transact(fn func() error) error {
	return mr.Transactable.Transact(func() error {
		mr.scopeIx.PushCounter()
		mr.Transactable.AddRollback(mr.scopeIx.PopCounter)

		mr.results.PushMap()
		mr.Transactable.AddRollback(mr.results.PopMap)

		mr.sub.PushMap()
		mr.Transactable.AddRollback(mr.sub.PopMap)

		mr.subs.PushMap()
		mr.Transactable.AddRollback(mr.subs.PopMap)

		mr.names.PushMap()
		mr.Transactable.AddRollback(mr.names.PopMap)

		mr.capturedVar.PushStack()
		mr.Transactable.AddRollback(func() {
			for _, v := range mr.capturedVar.PopStack() {
				v.set = false
				v.val = nil
			}
		})

		return fn()
	})
}

// DeclareVar binds name to an unset placeholder that a later Set (possibly
// from deeper in the transaction) can fill.
func (mr *MatchResult) DeclareVar(name string) {
	mr.results.Set(name, &declaredVar{name: name})
}

// Get walks this scope and its ancestors for key. Returns ok=false if
// unbound anywhere in the chain.
func (mr *MatchResult) Get(key string) (interface{}, bool) {
	if v, ok := mr.results.Get(key); ok {
		if dv, isVar := v.(*declaredVar); isVar {
			if !dv.set {
				return nil, false
			}
			return dv.val, true
		}
		return v, true
	}
	if mr.parent != nil {
		return mr.parent.Get(key)
	}
	return nil, false
}

// Set binds key to value with insertion-once semantics (spec §4.3, §8
// invariant 3): a new key is written; a key already bound to an equal
// value succeeds silently; a key bound to a different value raises
// CaptureCollision; a key bound as an unset declared variable is filled
// and tracked for rollback. A nil key name is a silent no-op (unnamed
// captures).
func (mr *MatchResult) Set(key string, value interface{}) error {
	if key == "" {
		return nil
	}

	if existing, ok := mr.lookupRaw(key); ok {
		if dv, isVar := existing.(*declaredVar); isVar {
			if dv.set {
				if !equalValue(dv.val, value) {
					return &perrors.CaptureCollision{Name: key, Existing: dv.val, Update: value}
				}
				return nil
			}
			dv.val = value
			dv.set = true
			mr.capturedVar.Push(dv)
			return nil
		}
		if !equalValue(existing, value) {
			return &perrors.CaptureCollision{Name: key, Existing: existing, Update: value}
		}
		return nil
	}

	mr.results.Set(key, value)
	return nil
}

// lookupRaw returns the raw stored value (possibly a *declaredVar),
// walking ancestors, without unwrapping declaredVar like Get does.
func (mr *MatchResult) lookupRaw(key string) (interface{}, bool) {
	if v, ok := mr.results.Get(key); ok {
		return v, true
	}
	if mr.parent != nil {
		return mr.parent.lookupRaw(key)
	}
	return nil, false
}

// equalValue compares two bound capture values for agreement (spec §8
// invariant 3). A type with its own Equal method is asked first; everything
// else — including non-comparable capture shapes like armmodel.Operand
// (which embeds RegisterList's slice field) and a multi-wildcard's
// []interface{} — goes through reflect.DeepEqual, since a native `==`
// would panic on those rather than return false.
func equalValue(a, b interface{}) bool {
	type equaler interface{ Equal(interface{}) bool }
	if ea, ok := a.(equaler); ok {
		return ea.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// NewScope creates a child single scope, linked by the next contiguous
// integer index and an optional name (spec §4.3 invariant b).
func (mr *MatchResult) NewScope(name string) *MatchResult {
	child := newScope(mr)
	ix := mr.scopeIx.Inc() - 1
	key := indexKey(ix)
	mr.sub.Set(key, child)
	if name != "" {
		mr.sub.Set(name, child)
		mr.names.Set(key, name)
	}
	return child
}

// NewMultiScope creates a child multi scope (an ordered list of
// alternative/iteration scopes).
func (mr *MatchResult) NewMultiScope(name string) *MultiMatchResult {
	child := newMultiScope(mr)
	ix := mr.scopeIx.Inc() - 1
	key := indexKey(ix)
	mr.subs.Set(key, child)
	if name != "" {
		mr.subs.Set(name, child)
		mr.names.Set(key, name)
	}
	return child
}

// indexKey renders an integer child index into the sub/subs key space,
// which otherwise holds string names; the prefix cannot collide with a
// valid capture identifier.
func indexKey(ix int) string {
	return "#" + itoa(ix)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Sub returns the named or index-aliased single child scope.
func (mr *MatchResult) Sub(key string) (*MatchResult, bool) {
	return mr.sub.Get(key)
}

// Subs returns the named or index-aliased multi child scope.
func (mr *MatchResult) Subs(key string) (*MultiMatchResult, bool) {
	return mr.subs.Get(key)
}

// MultiMatchResult is a scope child holding an ordered stack of alternative
// scopes (one per backtracking iteration / matched alternative).
type MultiMatchResult struct {
	transact.Transactable

	parent *MatchResult
	scopes *chain.Stack[*MatchResult]
}

func newMultiScope(parent *MatchResult) *MultiMatchResult {
	m := &MultiMatchResult{parent: parent, scopes: chain.NewStack[*MatchResult]()}
	m.Transactable.Init()
	return m
}

// Transact tracks the scope stack for rollback/commit.
func (m *MultiMatchResult) Transact(fn func() error) error {
	return m.Transactable.Transact(func() error {
		m.scopes.PushStack()
		m.Transactable.AddRollback(func() { m.scopes.PopStack() })
		return fn()
	})
}

// NewScope appends and returns a fresh child scope for one alternative.
func (m *MultiMatchResult) NewScope() *MatchResult {
	scope := newScope(m.parent)
	m.scopes.Push(scope)
	return scope
}

// All returns every committed alternative scope, in match order.
func (m *MultiMatchResult) All() []*MatchResult {
	return m.scopes.All()
}

func (m *MultiMatchResult) Len() int { return m.scopes.Len() }
