package grammar

import (
	"strings"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/pattern"
)

var shiftOps = map[string]armmodel.ShiftOp{
	"lsl": armmodel.ShiftLSL,
	"lsr": armmodel.ShiftLSR,
	"asr": armmodel.ShiftASR,
	"ror": armmodel.ShiftROR,
	"rrx": armmodel.ShiftRRX,
}

// optionalCapture consumes a trailing `:name` if present, else returns "".
func (s *tokStream) optionalCapture() (string, error) {
	if s.cur().Type != COLON {
		return "", nil
	}
	s.advance()
	id, err := s.expect(IDENT)
	if err != nil {
		return "", err
	}
	return id.Lit, nil
}

// registerRef parses a register reference used in any register slot —
// the base of a memory access, an element of a register list, or the
// head of a shifted register (spec §6 "Register"). It returns either a
// pattern.RegPat or a pattern.RegWildcard as interface{}, since both
// field types that accept a single register (ShiftedRegPat.RegPat,
// MemAccessPat.Base) are an unexported interface that only a type
// switch on the concrete exported type can satisfy from outside the
// pattern package.
func (s *tokStream) registerRef() (interface{}, error) {
	switch s.cur().Type {
	case AT:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.RegWildcard{Capture: cap}, nil
	case IDENT:
		name := s.advance().Lit
		if _, ok := armmodel.CanonicalRegisterName(name); !ok {
			return nil, syntaxErrorf(s.line, s.cur(), "%q is not a recognized register", name)
		}
		return pattern.RegPat{Name: name}, nil
	default:
		return nil, syntaxErrorf(s.line, s.cur(), "expected a register, got %s %q", s.cur().Type, s.cur().Lit)
	}
}

func registerConsumer(ref interface{}) pattern.OperandConsumer {
	switch r := ref.(type) {
	case pattern.RegPat:
		return r.Consumer()
	case pattern.RegWildcard:
		return r.Consumer()
	default:
		panic("grammar: registerRef returned an unexpected type")
	}
}

// shiftedRegisterOperand parses `reg[, shift_op#shift_val]` (spec §6
// "Shifted register").
func (s *tokStream) shiftedRegisterOperand() (pattern.OperandConsumer, error) {
	ref, err := s.registerRef()
	if err != nil {
		return nil, err
	}

	if s.cur().Type != COMMA {
		return shiftedRegConsumer(ref, nil), nil
	}

	// Only consume the comma if what follows is a shift, not the next
	// top-level operand.
	mark := s.mark()
	s.advance() // comma
	if !s.looksLikeShiftOp() {
		s.reset(mark)
		return shiftedRegConsumer(ref, nil), nil
	}

	shift, err := s.parseShiftSuffix()
	if err != nil {
		return nil, err
	}
	return shiftedRegConsumer(ref, shift), nil
}

func shiftedRegConsumer(ref interface{}, shift *pattern.ShiftPat) pattern.OperandConsumer {
	switch r := ref.(type) {
	case pattern.RegPat:
		return pattern.ShiftedRegPat{RegPat: r, ShiftPat: shift}.Consumer()
	case pattern.RegWildcard:
		return pattern.ShiftedRegPat{RegPat: r, ShiftPat: shift}.Consumer()
	default:
		panic("grammar: registerRef returned an unexpected type")
	}
}

func (s *tokStream) looksLikeShiftOp() bool {
	if s.cur().Type == AT {
		return true
	}
	if s.cur().Type == IDENT {
		_, ok := shiftOps[strings.ToLower(s.cur().Lit)]
		return ok
	}
	return false
}

func (s *tokStream) parseShiftSuffix() (*pattern.ShiftPat, error) {
	sp := &pattern.ShiftPat{}
	switch s.cur().Type {
	case AT:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		sp.OpCap = cap
	case IDENT:
		name := strings.ToLower(s.advance().Lit)
		op, ok := shiftOps[name]
		if !ok {
			return nil, syntaxErrorf(s.line, s.cur(), "%q is not a recognized shift op", name)
		}
		sp.Op = &op
	default:
		return nil, syntaxErrorf(s.line, s.cur(), "expected a shift op, got %s %q", s.cur().Type, s.cur().Lit)
	}

	if _, err := s.expect(HASH); err != nil {
		return nil, err
	}

	switch s.cur().Type {
	case AT:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		sp.ValueCap = cap
	case NUMBER, MINUS:
		v, err := s.parseSignedInt()
		if err != nil {
			return nil, err
		}
		iv := int(v)
		sp.Value = &iv
	default:
		return nil, syntaxErrorf(s.line, s.cur(), "expected a shift value, got %s %q", s.cur().Type, s.cur().Lit)
	}
	return sp, nil
}

// parseSignedInt reads an optional leading '-' then a NUMBER.
func (s *tokStream) parseSignedInt() (int64, error) {
	neg := false
	if s.cur().Type == MINUS {
		neg = true
		s.advance()
	}
	num, err := s.expect(NUMBER)
	if err != nil {
		return 0, err
	}
	v, err := parseIntLiteral(num.Lit)
	if err != nil {
		return 0, syntaxErrorf(s.line, num, "invalid number %q: %s", num.Lit, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// parseOperand parses one top-level operand (spec §6, §3). Operands are
// split on commas by the caller; the only comma this consumes itself is
// the one inside a shifted-register's own shift suffix.
func (s *tokStream) parseOperand() (pattern.OperandConsumer, error) {
	switch s.cur().Type {
	case AT:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.WildcardSingle{Capture: cap}.Consumer(), nil
	case STAR:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.WildcardMulti{Capture: cap}, nil
	case QUESTION:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.WildcardOptional{Capture: cap}, nil
	case HASH:
		return s.parseImmediate()
	case LBRACKET:
		return s.parseMemAccess()
	case LBRACE:
		return s.parseMemMulti()
	case IDENT:
		return s.shiftedRegisterOperand()
	default:
		return nil, syntaxErrorf(s.line, s.cur(), "unexpected token %s %q in operand", s.cur().Type, s.cur().Lit)
	}
}

func (s *tokStream) parseImmediate() (pattern.OperandConsumer, error) {
	s.advance() // '#'
	if s.cur().Type == AT {
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.ImmediatePat{Capture: cap}.Consumer(), nil
	}
	v, err := s.parseSignedInt()
	if err != nil {
		return nil, err
	}
	return pattern.ImmediatePat{Value: &v}.Consumer(), nil
}

// parseMemAccess parses `[reg[, off]]`, `[reg[, off]]!`, and
// `[reg], off` (spec §6 "Memory single").
func (s *tokStream) parseMemAccess() (pattern.OperandConsumer, error) {
	s.advance() // '['
	ref, err := s.registerRef()
	if err != nil {
		return nil, err
	}

	var offset *int64
	if s.cur().Type == COMMA {
		s.advance()
		v, err := s.parseMemOffsetValue()
		if err != nil {
			return nil, err
		}
		offset = v
	}
	if _, err := s.expect(RBRACKET); err != nil {
		return nil, err
	}

	if s.cur().Type == BANG {
		s.advance()
		return memAccessConsumer(ref, offset, armmodel.AddrPreIndexed), nil
	}
	if s.cur().Type == COMMA {
		s.advance()
		v, err := s.parseMemOffsetValue()
		if err != nil {
			return nil, err
		}
		return memAccessConsumer(ref, v, armmodel.AddrPostIndexed), nil
	}
	return memAccessConsumer(ref, offset, armmodel.AddrPlain), nil
}

func memAccessConsumer(ref interface{}, offset *int64, mode armmodel.AddrMode) pattern.OperandConsumer {
	switch r := ref.(type) {
	case pattern.RegPat:
		return pattern.MemAccessPat{Base: r, Offset: offset, Mode: mode}.Consumer()
	case pattern.RegWildcard:
		return pattern.MemAccessPat{Base: r, Offset: offset, Mode: mode}.Consumer()
	default:
		panic("grammar: registerRef returned an unexpected type")
	}
}

// parseMemOffsetValue parses a memory offset: a literal (possibly
// negative) or a wildcard. MemAccessPat only tracks literal offsets
// (nil means "don't check"), so a `@[:cap]` offset is accepted
// syntactically but its capture name is discarded — the struct has no
// slot for it (documented in DESIGN.md).
func (s *tokStream) parseMemOffsetValue() (*int64, error) {
	if s.cur().Type == AT {
		s.advance()
		if _, err := s.optionalCapture(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	v, err := s.parseSignedInt()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseMemMulti parses `{reg_or_range_or_wildcard,...}` (spec §6
// "Memory multi").
func (s *tokStream) parseMemMulti() (pattern.OperandConsumer, error) {
	s.advance() // '{'
	var elements []pattern.OperandConsumer
	for s.cur().Type != RBRACE {
		el, err := s.parseMemMultiElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if s.cur().Type == COMMA {
			s.advance()
			continue
		}
		break
	}
	if _, err := s.expect(RBRACE); err != nil {
		return nil, err
	}
	return pattern.MemMultiPat{Elements: elements}, nil
}

// parseMemMultiElement parses one element of a {...} list: a register
// range `ra-rb` (spec §6 "Reg range" — each side is itself a register
// reference, literal or `@[:cap]` wildcard, so `r0-r3` and `@:lo-@:hi`
// are both valid), a plain register/register-wildcard, or a `*[:cap]`/
// `?[:cap]` multi/optional wildcard spanning a run of list elements
// (spec §4.6, §8 scenario: `{*:regs}` / `{*:head, r1}` backtracking over
// a register-list's own elements via the same consumer protocol as a
// top-level operand list, per MemMultiPat.Consume).
func (s *tokStream) parseMemMultiElement() (pattern.OperandConsumer, error) {
	switch s.cur().Type {
	case STAR:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.WildcardMulti{Capture: cap}, nil
	case QUESTION:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			return nil, err
		}
		return pattern.WildcardOptional{Capture: cap}, nil
	}

	first, err := s.registerRef()
	if err != nil {
		return nil, err
	}
	if s.cur().Type != MINUS {
		return registerConsumer(first), nil
	}
	s.advance() // '-'
	second, err := s.registerRef()
	if err != nil {
		return nil, err
	}
	return regRangePat(first, second), nil
}

// regRangePat builds a pattern.RegRangePat from two register references,
// each boxed as interface{} per registerRef's documented contract. Every
// branch assigns a concrete exported type into RegRangePat's unexported
// singleValueMatcher-typed fields — the same pattern used throughout
// this file for ShiftedRegPat.RegPat and MemAccessPat.Base.
func regRangePat(startRef, endRef interface{}) pattern.RegRangePat {
	switch s := startRef.(type) {
	case pattern.RegPat:
		switch e := endRef.(type) {
		case pattern.RegPat:
			return pattern.RegRangePat{Start: s, End: e}
		case pattern.RegWildcard:
			return pattern.RegRangePat{Start: s, End: e}
		}
	case pattern.RegWildcard:
		switch e := endRef.(type) {
		case pattern.RegPat:
			return pattern.RegRangePat{Start: s, End: e}
		case pattern.RegWildcard:
			return pattern.RegRangePat{Start: s, End: e}
		}
	}
	panic("grammar: registerRef returned an unexpected type")
}
