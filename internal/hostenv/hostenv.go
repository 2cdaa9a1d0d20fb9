// Package hostenv implements the two program providers spec §6 ("Host
// integration") calls for: one backed by a linear-disassembly text
// snippet, the other by a bytes-disassembly front-end. Both expose
// identical matcher behaviour — they only differ in how armmodel
// instructions get into a program.Program in the first place.
package hostenv

import (
	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/grammar"
	"github.com/chananele/parm/internal/program"
)

// SymbolTable is a simple name->address map shared by both providers
// (spec §4.4 find_symbol; SPEC_FULL §6 host integration).
type SymbolTable map[string]uint64

// FindSymbol implements program.HostProvider.
func (t SymbolTable) FindSymbol(name string) (uint64, bool) {
	addr, ok := t[name]
	return addr, ok
}

// TextProvider loads a program from the plain instruction-listing syntax
// (spec §6 "Instruction textual syntax"), the disassembly-snippet
// loader's shape.
type TextProvider struct {
	Symbols SymbolTable
}

// NewTextProvider returns a TextProvider with an empty symbol table.
func NewTextProvider() *TextProvider {
	return &TextProvider{Symbols: make(SymbolTable)}
}

// FindSymbol implements program.HostProvider.
func (p *TextProvider) FindSymbol(name string) (uint64, bool) {
	return p.Symbols.FindSymbol(name)
}

// LoadProgram parses src with the grammar package's instruction-listing
// parser and assembles a fresh program.Program around it.
func (p *TextProvider) LoadProgram(src string) (*program.Program, error) {
	insts, addrs, err := grammar.ParseInstructions(src)
	if err != nil {
		return nil, err
	}
	prog := program.New(p)
	if len(insts) > 0 {
		if err := prog.AddCodeBlock(insts, addrs); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// LoadDataBlock attaches a raw byte range to prog (spec §3 DataBlock),
// for the `.obj`/`.db` family of atoms to read against.
func (p *TextProvider) LoadDataBlock(prog *program.Program, start uint64, data []byte) error {
	return prog.AddDataBlock(start, data)
}

// Disassembler turns a raw byte buffer at a base address into decoded
// instructions — the seam a bytes-disassembly front-end (e.g. a
// Capstone binding) implements (spec §6 "a bytes-disassembly front-end").
type Disassembler interface {
	Disassemble(code []byte, baseAddr uint64) ([]armmodel.Instruction, []uint64, error)
}

// CapstoneProvider is the bytes-disassembly-backed counterpart to
// TextProvider. It depends only on the Disassembler seam above — wiring
// an actual Capstone (or any other) decoder in means providing a
// Disassembler, not modifying this type. No cgo binding is included
// here (see DESIGN.md), and no Disassembler implementation ships with the
// repository; the seam is the Disassembler interface alone.
type CapstoneProvider struct {
	Symbols      SymbolTable
	Disassembler Disassembler
}

// NewCapstoneProvider returns a CapstoneProvider wired to disasm.
func NewCapstoneProvider(disasm Disassembler) *CapstoneProvider {
	return &CapstoneProvider{Symbols: make(SymbolTable), Disassembler: disasm}
}

// FindSymbol implements program.HostProvider.
func (p *CapstoneProvider) FindSymbol(name string) (uint64, bool) {
	return p.Symbols.FindSymbol(name)
}

// LoadProgram disassembles code (as loaded at baseAddr) and assembles a
// program.Program around the result.
func (p *CapstoneProvider) LoadProgram(code []byte, baseAddr uint64) (*program.Program, error) {
	insts, addrs, err := p.Disassembler.Disassemble(code, baseAddr)
	if err != nil {
		return nil, err
	}
	prog := program.New(p)
	if len(insts) > 0 {
		if err := prog.AddCodeBlock(insts, addrs); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// LoadDataBlock attaches a raw byte range to prog.
func (p *CapstoneProvider) LoadDataBlock(prog *program.Program, start uint64, data []byte) error {
	return prog.AddDataBlock(start, data)
}
