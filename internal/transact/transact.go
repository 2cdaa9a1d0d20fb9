// Package transact implements the transaction log (spec §4.1): a stack of
// compensating operations that undo mutations on failure, plus the
// Transactable mixin that tracks chain containers against it.
package transact

import "github.com/chananele/parm/internal/perrors"

// Op is a compensating action run, in LIFO order, during rollback.
type Op func()

// Transaction owns its own compensations and its live children. Begin
// returns a child; Commit folds this transaction's compensations into the
// parent's list (so a later rollback up the tree still undoes them) and
// detaches; Rollback runs the compensations and detaches without folding
// anything upward.
type Transaction struct {
	parent   *Transaction
	ops      []Op
	children []*Transaction
}

// New returns a root transaction with no parent.
func New() *Transaction {
	return &Transaction{}
}

// Begin starts a child transaction bound to this one.
func (t *Transaction) Begin() *Transaction {
	child := &Transaction{parent: t}
	t.children = append(t.children, child)
	return child
}

func (t *Transaction) popChild(child *Transaction) error {
	n := len(t.children)
	if n == 0 || t.children[n-1] != child {
		return &perrors.TransactionOrderViolation{Msg: "transaction committed/rolled back out of order"}
	}
	t.children = t.children[:n-1]
	return nil
}

func (t *Transaction) finish(fn func()) error {
	if len(t.children) != 0 {
		return &perrors.LiveChildrenException{}
	}
	if t.parent != nil {
		if err := t.parent.popChild(t); err != nil {
			return err
		}
	}
	fn()
	t.ops = nil
	return nil
}

// AddRollback appends a compensating op, run in LIFO order on Rollback.
func (t *Transaction) AddRollback(op Op) {
	t.ops = append(t.ops, op)
}

// Rollback runs every compensation in reverse order, then detaches from
// the parent. Errors if this transaction still has live children.
func (t *Transaction) Rollback() error {
	return t.finish(func() {
		for i := len(t.ops) - 1; i >= 0; i-- {
			t.ops[i]()
		}
	})
}

// Commit folds this transaction's compensations into the parent's list (so
// a parent-level rollback still undoes them) and detaches. Errors if this
// transaction still has live children.
func (t *Transaction) Commit() error {
	return t.finish(func() {
		if t.parent != nil {
			t.parent.ops = append(t.parent.ops, t.ops...)
		}
	})
}

// Transactable is embedded by types that need nested transactions layered
// over chain containers (MatchResult, MultiMatchResult).
type Transactable struct {
	stack []*Transaction
}

// Init sets the base transaction. Call once before any Transact.
func (tb *Transactable) Init() {
	if len(tb.stack) == 0 {
		tb.stack = []*Transaction{New()}
	}
}

func (tb *Transactable) current() *Transaction {
	return tb.stack[len(tb.stack)-1]
}

// Begin pushes a new transaction scope and returns it; callers must pair
// every Begin with exactly one End.
func (tb *Transactable) Begin() *Transaction {
	child := tb.current().Begin()
	tb.stack = append(tb.stack, child)
	return child
}

// End pops the transaction scope pushed by the matching Begin.
func (tb *Transactable) End() {
	tb.stack = tb.stack[:len(tb.stack)-1]
}

// AddRollback records a compensation against the active transaction.
func (tb *Transactable) AddRollback(op Op) {
	tb.current().AddRollback(op)
}

// Transact runs fn under a fresh nested transaction: if fn returns an
// error, every compensation recorded during fn is undone in LIFO order
// before the error is returned; otherwise the transaction commits into its
// parent. This is the Go shape of the Python transact() context manager
// (spec §4.1): rollback-on-exception, commit-on-success.
func (tb *Transactable) Transact(fn func() error) error {
	txn := tb.Begin()
	defer tb.End()

	err := fn()
	if err != nil {
		if rerr := txn.Rollback(); rerr != nil {
			return rerr
		}
		return err
	}
	return txn.Commit()
}
