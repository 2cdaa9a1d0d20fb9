package grammar

import (
	"strconv"
	"strings"

	"github.com/chananele/parm/internal/armmodel"
)

// instructionWidth is the fixed per-instruction address increment used
// when a line omits its address (spec §6 "Instruction textual syntax":
// "addresses ... may be absent except on block entry lines") — grounded
// on the fixed 4-byte ARM instruction encoding the rest of this package
// targets (armmodel carries no Thumb/variable-width mode).
const instructionWidth = 4

// ParseInstructions parses the plain instruction-listing syntax used for
// Program.AddCodeBlock input (spec §6): one instruction per line, each
// `[address: ] opcode operand[, operand]*`. The first line must carry an
// address; later lines that omit one continue at instructionWidth bytes
// past the previous instruction.
func ParseInstructions(src string) ([]armmodel.Instruction, []uint64, error) {
	var insts []armmodel.Instruction
	var addrs []uint64

	haveAddr := false
	var nextAddr uint64

	lineNo := 0
	for _, raw := range strings.Split(src, "\n") {
		lineNo++
		text := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if text == "" {
			continue
		}

		ts := newTokStream(lineNo, text)
		addr, hasAddr, err := ts.tryLiteralAddressPrefix()
		if err != nil {
			return nil, nil, err
		}
		if hasAddr {
			nextAddr = addr
			haveAddr = true
		} else if !haveAddr {
			return nil, nil, &SyntaxError{Line: lineNo, Message: "first instruction line must carry an address"}
		}

		inst, err := ts.parseConcreteInstruction(text)
		if err != nil {
			return nil, nil, err
		}

		insts = append(insts, inst)
		addrs = append(addrs, nextAddr)
		nextAddr += instructionWidth
	}

	return insts, addrs, nil
}

// tryLiteralAddressPrefix parses `(hex|decimal) ":"` at the front of ts —
// the instruction-listing syntax only ever takes a literal address,
// never a label or wildcard (those belong to the pattern grammar only).
func (s *tokStream) tryLiteralAddressPrefix() (uint64, bool, error) {
	if s.cur().Type != NUMBER {
		return 0, false, nil
	}
	mark := s.mark()
	lit := s.advance().Lit
	if s.cur().Type != COLON {
		s.reset(mark)
		return 0, false, nil
	}
	s.advance()
	v, err := parseUintLiteral(lit)
	if err != nil {
		return 0, false, syntaxErrorf(s.line, s.toks[mark], "invalid address %q: %s", lit, err)
	}
	return v, true, nil
}

// parseConcreteInstruction parses `opcode operand[, operand]*` against
// already-decoded values rather than patterns (spec §6 "Instruction
// textual syntax"), grounded on arm_asm.py's ArmTransformer productions.
func (s *tokStream) parseConcreteInstruction(raw string) (armmodel.Instruction, error) {
	op, err := s.expect(IDENT)
	if err != nil {
		return armmodel.Instruction{}, err
	}
	opcode := strings.ToLower(op.Lit)

	var operands []armmodel.Operand
	if !s.atEOF() {
		for {
			operand, err := s.parseConcreteOperand()
			if err != nil {
				return armmodel.Instruction{}, err
			}
			operands = append(operands, operand)
			if s.cur().Type == COMMA {
				s.advance()
				continue
			}
			break
		}
	}
	if !s.atEOF() {
		return armmodel.Instruction{}, syntaxErrorf(s.line, s.cur(), "unexpected trailing token %s %q", s.cur().Type, s.cur().Lit)
	}
	return armmodel.Instruction{Opcode: opcode, Operands: operands, Raw: raw}, nil
}

func (s *tokStream) concreteRegister() (armmodel.Register, error) {
	id, err := s.expect(IDENT)
	if err != nil {
		return armmodel.Register{}, err
	}
	if _, ok := armmodel.CanonicalRegisterName(id.Lit); !ok {
		return armmodel.Register{}, syntaxErrorf(s.line, id, "%q is not a recognized register", id.Lit)
	}
	return armmodel.Register{Synonym: id.Lit}, nil
}

func (s *tokStream) parseConcreteOperand() (armmodel.Operand, error) {
	switch s.cur().Type {
	case HASH:
		s.advance()
		v, err := s.parseSignedInt()
		if err != nil {
			return armmodel.Operand{}, err
		}
		return armmodel.ImmOperand(v), nil
	case NUMBER:
		lit := s.advance().Lit
		v, err := parseUintLiteral(lit)
		if err != nil {
			return armmodel.Operand{}, err
		}
		return armmodel.AddrOperand(v), nil
	case LBRACKET:
		return s.parseConcreteMemAccess()
	case LBRACE:
		return s.parseConcreteRegList()
	case IDENT:
		return s.parseConcreteShiftedReg()
	default:
		return armmodel.Operand{}, syntaxErrorf(s.line, s.cur(), "unexpected token %s %q in operand", s.cur().Type, s.cur().Lit)
	}
}

func (s *tokStream) parseConcreteShiftedReg() (armmodel.Operand, error) {
	reg, err := s.concreteRegister()
	if err != nil {
		return armmodel.Operand{}, err
	}
	if s.cur().Type != COMMA {
		return armmodel.RegOperand(reg), nil
	}
	mark := s.mark()
	s.advance() // comma
	if s.cur().Type != IDENT {
		s.reset(mark)
		return armmodel.RegOperand(reg), nil
	}
	name := strings.ToLower(s.cur().Lit)
	op, ok := shiftOps[name]
	if !ok {
		s.reset(mark)
		return armmodel.RegOperand(reg), nil
	}
	s.advance() // shift op ident
	if _, err := s.expect(HASH); err != nil {
		return armmodel.Operand{}, err
	}
	v, err := s.parseSignedInt()
	if err != nil {
		return armmodel.Operand{}, err
	}
	return armmodel.ShiftedRegOperand(reg, &armmodel.Shift{Op: op, Value: int(v)}), nil
}

// parseConcreteMemAccess parses `[reg[, off]]`, `[reg[, off]]!`, and
// `[reg], off`. Pre/post-indexed forms reject a zero offset, matching
// arm_asm.py's MemAccessPreIndexed/MemAccessPostIndexed assertion.
func (s *tokStream) parseConcreteMemAccess() (armmodel.Operand, error) {
	s.advance() // '['
	base, err := s.concreteRegister()
	if err != nil {
		return armmodel.Operand{}, err
	}

	var offset *armmodel.Operand
	if s.cur().Type == COMMA {
		s.advance()
		v, err := s.parseSignedInt()
		if err != nil {
			return armmodel.Operand{}, err
		}
		o := armmodel.ImmOperand(v)
		offset = &o
	}
	if _, err := s.expect(RBRACKET); err != nil {
		return armmodel.Operand{}, err
	}

	if s.cur().Type == BANG {
		s.advance()
		if offset == nil || offset.Immediate.Value == 0 {
			return armmodel.Operand{}, &SyntaxError{Line: s.line, Message: "pre-indexed memory access requires a nonzero offset"}
		}
		return armmodel.MemOperand(armmodel.MemoryAccess{Base: base, Offset: offset, Mode: armmodel.AddrPreIndexed}), nil
	}
	if s.cur().Type == COMMA {
		s.advance()
		v, err := s.parseSignedInt()
		if err != nil {
			return armmodel.Operand{}, err
		}
		if v == 0 {
			return armmodel.Operand{}, &SyntaxError{Line: s.line, Message: "post-indexed memory access requires a nonzero offset"}
		}
		o := armmodel.ImmOperand(v)
		return armmodel.MemOperand(armmodel.MemoryAccess{Base: base, Offset: &o, Mode: armmodel.AddrPostIndexed}), nil
	}
	return armmodel.MemOperand(armmodel.MemoryAccess{Base: base, Offset: offset, Mode: armmodel.AddrPlain}), nil
}

// parseConcreteRegList parses `{r0,r1,r4-r6,...}`, expanding any `ra-rb`
// element into its explicit ascending member registers — display
// compression, not a wildcard, for the plain instruction syntax (spec §6;
// grounded on arm_asm.py's RegList.__str__ compressing contiguous runs
// the same way in reverse).
func (s *tokStream) parseConcreteRegList() (armmodel.Operand, error) {
	s.advance() // '{'
	var regs []armmodel.Register
	seen := map[string]bool{}
	for s.cur().Type != RBRACE {
		reg, err := s.concreteRegister()
		if err != nil {
			return armmodel.Operand{}, err
		}
		run := []armmodel.Register{reg}
		if s.cur().Type == MINUS {
			s.advance()
			end, err := s.concreteRegister()
			if err != nil {
				return armmodel.Operand{}, err
			}
			run, err = expandRegRange(s.line, reg, end)
			if err != nil {
				return armmodel.Operand{}, err
			}
		}
		for _, r := range run {
			if seen[r.Name()] {
				return armmodel.Operand{}, &SyntaxError{Line: s.line, Message: "duplicate register " + r.Name() + " in register list"}
			}
			seen[r.Name()] = true
			regs = append(regs, r)
		}
		if s.cur().Type == COMMA {
			s.advance()
			continue
		}
		break
	}
	if _, err := s.expect(RBRACE); err != nil {
		return armmodel.Operand{}, err
	}
	return armmodel.RegListOperand(regs), nil
}

func expandRegRange(lineNo int, start, end armmodel.Register) ([]armmodel.Register, error) {
	startIdx, ok := armmodel.RegisterIndex(start.Name())
	if !ok {
		return nil, &SyntaxError{Line: lineNo, Message: "invalid register range start " + start.Synonym}
	}
	endIdx, ok := armmodel.RegisterIndex(end.Name())
	if !ok {
		return nil, &SyntaxError{Line: lineNo, Message: "invalid register range end " + end.Synonym}
	}
	if endIdx <= startIdx {
		return nil, &SyntaxError{Line: lineNo, Message: "register range must be ascending and non-empty"}
	}
	out := make([]armmodel.Register, 0, endIdx-startIdx+1)
	for i := startIdx; i <= endIdx; i++ {
		out = append(out, armmodel.Register{Synonym: "r" + strconv.Itoa(i)})
	}
	return out, nil
}
