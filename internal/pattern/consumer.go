// Package pattern implements the pattern AST and the matcher protocol
// (spec §4.6, §3): tagged pattern nodes for opcode, operand, wildcard,
// register/immediate/shift, memory forms, data atoms, block, and code
// embedding, each matched via Match/MatchReverse plus the CPS-style
// operand consumer protocol used for backtracking wildcards.
package pattern

import (
	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/perrors"
)

// Complete is the continuation an OperandConsumer invokes with whatever
// operands remain after it consumes its share (spec §4.6).
type Complete func(remaining []armmodel.Operand) error

// OperandConsumer is the CPS-style operand-level matcher: given the
// remaining operand sequence and a continuation, it calls the
// continuation zero or more times under a transaction, backtracking on
// failure (spec §4.6). Fixed-arity patterns call it exactly once.
type OperandConsumer interface {
	Consume(remaining []armmodel.Operand, mr *matchresult.MatchResult, complete Complete) error
}

// MatchOperands drives a chain of consumers against an instruction's
// operand list, failing with NotAllOperandsMatched if operands remain
// once every consumer has run (spec §4.6 instruction pattern).
func MatchOperands(consumers []OperandConsumer, operands []armmodel.Operand, mr *matchresult.MatchResult) error {
	var step func(i int, remaining []armmodel.Operand) error
	step = func(i int, remaining []armmodel.Operand) error {
		if i == len(consumers) {
			if len(remaining) > 0 {
				tail := make([]interface{}, len(remaining))
				for j, o := range remaining {
					tail[j] = o
				}
				return &perrors.NotAllOperandsMatched{Tail: tail}
			}
			return nil
		}
		return consumers[i].Consume(remaining, mr, func(rest []armmodel.Operand) error {
			return step(i+1, rest)
		})
	}
	return step(0, operands)
}

// singleValueMatcher is implemented by fixed-arity operand patterns that
// only need to check one popped operand (spec §4.6: "a single-operand
// pattern pops the head and calls complete(tail) once").
type singleValueMatcher interface {
	matchOperand(op armmodel.Operand, mr *matchresult.MatchResult) error
}

// singleConsumer adapts a singleValueMatcher into the consumer protocol.
type singleConsumer struct {
	m    singleValueMatcher
	self interface{} // for OperandsExhausted diagnostics
}

func (c singleConsumer) Consume(remaining []armmodel.Operand, mr *matchresult.MatchResult, complete Complete) error {
	if len(remaining) == 0 {
		return &perrors.OperandsExhausted{Pattern: c.self}
	}
	head, tail := remaining[0], remaining[1:]
	if err := c.m.matchOperand(head, mr); err != nil {
		return err
	}
	return complete(tail)
}
