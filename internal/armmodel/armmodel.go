// Package armmodel implements the program data model (spec §3): the
// instruction and operand shapes a disassembled ARM-like program is made
// of, independent of where the disassembly came from.
package armmodel

import "fmt"

// Serializable is implemented by every value that can appear inside a
// MatchResult capture and needs custom §6 serialization (registers as
// canonical names, shifted registers as string form, addresses as
// integers).
type Serializable interface {
	Serialize() interface{}
}

// canonicalRegisters maps every recognized synonym (§6) to its canonical
// rN form. r0..r15 map to themselves.
var canonicalRegisters = map[string]string{
	"sb": "r9", "fp": "r11", "ip": "r12", "sp": "r13", "lr": "r14", "pc": "r15",
}

func init() {
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("r%d", i)
		canonicalRegisters[name] = name
	}
}

// CanonicalRegisterName resolves a register synonym (case-insensitively)
// to its canonical rN form, or returns ok=false if name isn't recognized.
func CanonicalRegisterName(name string) (string, bool) {
	canon, ok := canonicalRegisters[lower(name)]
	return canon, ok
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// RegisterIndex returns the rN numeric index of a canonical register name,
// used for register-range ordering (RegRangePat, §6's "ra-rb").
func RegisterIndex(canonical string) (int, bool) {
	if len(canonical) < 2 || canonical[0] != 'r' {
		return 0, false
	}
	n := 0
	for _, c := range canonical[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Register is a single ARM-like register operand.
type Register struct {
	// Synonym is the name as written in the source (e.g. "sp", "R3").
	Synonym string
}

// Name returns the canonical rN form.
func (r Register) Name() string {
	canon, _ := CanonicalRegisterName(r.Synonym)
	return canon
}

func (r Register) Serialize() interface{} { return r.Name() }

func (r Register) Equal(other interface{}) bool {
	o, ok := other.(Register)
	if !ok {
		return false
	}
	return r.Name() == o.Name()
}

// ShiftOp is one of the ARM barrel-shifter operations (§6).
type ShiftOp string

const (
	ShiftLSL ShiftOp = "lsl"
	ShiftLSR ShiftOp = "lsr"
	ShiftASR ShiftOp = "asr"
	ShiftROR ShiftOp = "ror"
	ShiftRRX ShiftOp = "rrx"
)

// Shift is the optional shift applied to a shifted-register operand.
type Shift struct {
	Op    ShiftOp
	Value int
}

// ShiftedRegister is a register plus its optional shift (§3).
type ShiftedRegister struct {
	Reg   Register
	Shift *Shift // nil if unshifted
}

func (s ShiftedRegister) Serialize() interface{} {
	if s.Shift == nil {
		return s.Reg.Name()
	}
	return fmt.Sprintf("%s, %s#%d", s.Reg.Name(), s.Shift.Op, s.Shift.Value)
}

// Immediate is a literal integer operand (`#num`).
type Immediate struct {
	Value int64
}

func (im Immediate) Serialize() interface{} { return im.Value }

func (im Immediate) Equal(other interface{}) bool {
	o, ok := other.(Immediate)
	return ok && im.Value == o.Value
}

// RegisterList is an explicit `{r0,r1,...}` operand.
type RegisterList struct {
	Regs []Register
}

func (rl RegisterList) Serialize() interface{} {
	out := make([]interface{}, len(rl.Regs))
	for i, r := range rl.Regs {
		out[i] = r.Serialize()
	}
	return out
}

// AddrMode is the three addressing forms a MemoryAccess can take (§3).
type AddrMode int

const (
	AddrPlain AddrMode = iota
	AddrPreIndexed
	AddrPostIndexed
)

// MemoryAccess is `[base, offset]`, `[base, offset]!`, or `[base], offset`.
type MemoryAccess struct {
	Base   Register
	Offset *Operand // nil if no offset
	Mode   AddrMode
}

func (m MemoryAccess) Serialize() interface{} {
	s := "[" + m.Base.Name()
	if m.Offset != nil {
		s += ", " + fmt.Sprint(m.Offset.Serialize())
	}
	s += "]"
	if m.Mode == AddrPreIndexed {
		s += "!"
	}
	return s
}

// Address is a resolved numeric address operand.
type Address struct {
	Value uint64
}

func (a Address) Serialize() interface{} { return a.Value }

func (a Address) Equal(other interface{}) bool {
	o, ok := other.(Address)
	return ok && a.Value == o.Value
}

// OperandKind discriminates the Operand tagged union.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandShiftedRegister
	OperandImmediate
	OperandRegisterList
	OperandMemoryAccess
	OperandAddress
)

// Operand is a tagged union over every operand shape an Instruction can
// carry (spec §3). Exactly one of the typed fields is valid, selected by
// Kind.
type Operand struct {
	Kind            OperandKind
	Register        Register
	ShiftedRegister ShiftedRegister
	Immediate       Immediate
	RegisterList    RegisterList
	MemoryAccess    MemoryAccess
	Address         Address
}

func (o Operand) Serialize() interface{} {
	switch o.Kind {
	case OperandRegister:
		return o.Register.Serialize()
	case OperandShiftedRegister:
		return o.ShiftedRegister.Serialize()
	case OperandImmediate:
		return o.Immediate.Serialize()
	case OperandRegisterList:
		return o.RegisterList.Serialize()
	case OperandMemoryAccess:
		return o.MemoryAccess.Serialize()
	case OperandAddress:
		return o.Address.Serialize()
	default:
		return nil
	}
}

func RegOperand(r Register) Operand { return Operand{Kind: OperandRegister, Register: r} }
func ImmOperand(v int64) Operand {
	return Operand{Kind: OperandImmediate, Immediate: Immediate{Value: v}}
}
func ShiftedRegOperand(r Register, sh *Shift) Operand {
	return Operand{Kind: OperandShiftedRegister, ShiftedRegister: ShiftedRegister{Reg: r, Shift: sh}}
}
func RegListOperand(regs []Register) Operand {
	return Operand{Kind: OperandRegisterList, RegisterList: RegisterList{Regs: regs}}
}
func MemOperand(m MemoryAccess) Operand { return Operand{Kind: OperandMemoryAccess, MemoryAccess: m} }
func AddrOperand(v uint64) Operand      { return Operand{Kind: OperandAddress, Address: Address{Value: v}} }

// Instruction is one disassembled line: an opcode plus its ordered
// operands (spec §3).
type Instruction struct {
	Opcode   string
	Operands []Operand

	// Raw is the original disassembly text, kept only for diagnostics —
	// never compared by patterns (SPEC_FULL §3 expansion).
	Raw string
}
