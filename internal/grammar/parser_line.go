package grammar

import (
	"strings"

	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/ext"
	"github.com/chananele/parm/internal/pattern"
)

var dataDirectives = map[string]int{
	"db": 1, "dw": 2, "dd": 4, "dq": 8,
}

// tryAddressPrefix attempts `address_pat ":"` at the front of ts: a hex
// or decimal literal, `@[:cap]`, or a bare identifier label (spec §6
// "Address"). Grounded on the original grammar's dedicated
// line-address-pat rule, which is always tried before falling back to a
// bare opcode — this port keeps that same greedy preference rather than
// the original Earley parser's fuller ambiguity resolution (see
// DESIGN.md).
func (s *tokStream) tryAddressPrefix() (*pattern.AddressLine, bool) {
	mark := s.mark()

	var al *pattern.AddressLine
	switch s.cur().Type {
	case NUMBER:
		lit := s.advance().Lit
		v, err := parseUintLiteral(lit)
		if err != nil {
			s.reset(mark)
			return nil, false
		}
		al = &pattern.AddressLine{Literal: &v}
	case AT:
		s.advance()
		cap, err := s.optionalCapture()
		if err != nil {
			s.reset(mark)
			return nil, false
		}
		al = &pattern.AddressLine{Capture: cap}
	case IDENT:
		name := s.advance().Lit
		al = &pattern.AddressLine{Capture: name}
	default:
		s.reset(mark)
		return nil, false
	}

	if s.cur().Type != COLON {
		s.reset(mark)
		return nil, false
	}
	s.advance()
	return al, true
}

// parseOpcodePat parses `opcode[:cap]` — a literal glob, case-folded, or
// the bare `*` wildcard (spec §6 "Instruction line").
func (s *tokStream) parseOpcodePat() (pattern.OpcodePat, error) {
	var glob string
	switch s.cur().Type {
	case STAR:
		s.advance()
		glob = "*"
	case IDENT:
		glob = strings.ToLower(s.advance().Lit)
	default:
		return pattern.OpcodePat{}, syntaxErrorf(s.line, s.cur(), "expected an opcode, got %s %q", s.cur().Type, s.cur().Lit)
	}
	cap, err := s.optionalCapture()
	if err != nil {
		return pattern.OpcodePat{}, err
	}
	return pattern.OpcodePat{Glob: glob, Capture: cap}, nil
}

// parseOperandList parses a comma-separated operand list through EOF.
func (s *tokStream) parseOperandList() ([]pattern.OperandConsumer, error) {
	var ops []pattern.OperandConsumer
	if s.atEOF() {
		return ops, nil
	}
	for {
		op, err := s.parseOperand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if s.cur().Type == COMMA {
			s.advance()
			continue
		}
		break
	}
	if !s.atEOF() {
		return nil, syntaxErrorf(s.line, s.cur(), "unexpected trailing token %s %q", s.cur().Type, s.cur().Lit)
	}
	return ops, nil
}

// parseDataAtomList parses `.db val[,val]...` and friends — one or more
// sized integer atoms, each a literal or `@[:cap]` (spec §6 "Data atoms").
func (s *tokStream) parseDataAtomList(byteLen int) (*pattern.DataAtomLine, error) {
	var atoms []pattern.DataAtom
	for {
		atom := pattern.DataAtom{ByteLen: byteLen}
		if s.cur().Type == AT {
			s.advance()
			cap, err := s.optionalCapture()
			if err != nil {
				return nil, err
			}
			atom.Capture = cap
		} else {
			v, err := s.parseSignedInt()
			if err != nil {
				return nil, err
			}
			atom.Literal = &v
		}
		atoms = append(atoms, atom)
		if s.cur().Type == COMMA {
			s.advance()
			continue
		}
		break
	}
	if !s.atEOF() {
		return nil, syntaxErrorf(s.line, s.cur(), "unexpected trailing token %s %q", s.cur().Type, s.cur().Lit)
	}
	return &pattern.DataAtomLine{Atoms: atoms}, nil
}

// parseAssemblyLine parses one physical pattern-text line that is
// neither embedded code, a matchable generator, a skip line, nor a
// `.obj` atom: an optional address prefix followed by either a data
// atom directive or an instruction (spec §6). It returns the node(s) in
// textual order — [AddressLine, <body>] or just [<body>].
func parseAssemblyLine(lineNo int, text string) ([]execctx.Line, error) {
	ts := newTokStream(lineNo, text)

	var nodes []execctx.Line
	if al, ok := ts.tryAddressPrefix(); ok {
		nodes = append(nodes, al)
	}

	if ts.cur().Type == DOT {
		ts.advance()
		dir, err := ts.expect(IDENT)
		if err != nil {
			return nil, err
		}
		byteLen, ok := dataDirectives[strings.ToLower(dir.Lit)]
		if !ok {
			return nil, syntaxErrorf(lineNo, dir, "unrecognized data directive %q", dir.Lit)
		}
		atomLine, err := ts.parseDataAtomList(byteLen)
		if err != nil {
			return nil, err
		}
		return append(nodes, atomLine), nil
	}

	opcode, err := ts.parseOpcodePat()
	if err != nil {
		return nil, err
	}
	operands, err := ts.parseOperandList()
	if err != nil {
		return nil, err
	}
	return append(nodes, &pattern.InstructionLine{Opcode: opcode, Operands: operands}), nil
}

// splitObjLine recognizes a `.obj [name:]${expr}` atom by direct string
// scanning rather than tokenizing: expr is arbitrary embedded-namespace
// source and may itself contain colons, braces, or commas that the
// operand lexer has no business parsing (spec §6 "Data atoms"). A
// leading `address_pat:` is supported the same pragmatic way.
func splitObjLine(line string) (addrText, nameCap, expr string, ok bool) {
	idx := strings.Index(line, ".obj")
	if idx == -1 {
		return "", "", "", false
	}
	before := strings.TrimSpace(line[:idx])
	if before != "" {
		if !strings.HasSuffix(before, ":") {
			return "", "", "", false
		}
		addrText = strings.TrimSpace(strings.TrimSuffix(before, ":"))
	}

	after := line[idx+len(".obj"):]
	dollar := strings.Index(after, "${")
	if dollar == -1 {
		return "", "", "", false
	}
	name := strings.TrimSpace(after[:dollar])
	name = strings.TrimSpace(strings.TrimSuffix(name, ":"))

	rest := after[dollar+2:]
	lastBrace := strings.LastIndex(rest, "}")
	if lastBrace == -1 {
		return "", "", "", false
	}
	return addrText, name, rest[:lastBrace], true
}

// parseObjLine builds the node(s) for a recognized `.obj` atom.
func parseObjLine(lineNo int, addrText, nameCap, expr string, compiler ext.PatternCompiler) ([]execctx.Line, error) {
	var nodes []execctx.Line
	if addrText != "" {
		ts := newTokStream(lineNo, addrText+":")
		al, ok := ts.tryAddressPrefix()
		if !ok {
			return nil, &SyntaxError{Line: lineNo, Message: "invalid address prefix before .obj"}
		}
		nodes = append(nodes, al)
	}
	nodes = append(nodes, &pattern.StructuredObjectLine{Code: expr, Compiler: compiler, Capture: nameCap})
	return nodes, nil
}

// parseSkipLine parses `...`, `...{min,max}`, `...{n}` (spec §6 "Skip
// line"). Either bound may be absent in the `{min,max}` form; omitting
// both is the unbounded `...` form; `...{n}` is exact.
func parseSkipLine(lineNo int, text string) (*pattern.SkipPatternLine, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "..."))
	if rest == "" {
		return &pattern.SkipPatternLine{}, nil
	}
	if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}") {
		return nil, &SyntaxError{Line: lineNo, Message: "invalid skip line suffix, expected {min,max} or {n}"}
	}
	inner := strings.TrimSpace(rest[1 : len(rest)-1])
	if !strings.Contains(inner, ",") {
		n, err := parseBoundInt(inner)
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Message: "invalid skip count: " + err.Error()}
		}
		return &pattern.SkipPatternLine{Min: &n, Max: &n}, nil
	}
	parts := strings.SplitN(inner, ",", 2)
	sp := &pattern.SkipPatternLine{}
	if lo := strings.TrimSpace(parts[0]); lo != "" {
		v, err := parseBoundInt(lo)
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Message: "invalid skip min: " + err.Error()}
		}
		sp.Min = &v
	}
	if hi := strings.TrimSpace(parts[1]); hi != "" {
		v, err := parseBoundInt(hi)
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Message: "invalid skip max: " + err.Error()}
		}
		sp.Max = &v
	}
	return sp, nil
}

func parseBoundInt(s string) (int, error) {
	v, err := parseIntLiteral(s)
	return int(v), err
}
