package program

import (
	"bytes"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/perrors"
)

type cursorKind int

const (
	kindCode cursorKind = iota
	kindData
	kindPreInit
	kindPostTerm
	kindNull
)

// Cursor is a handle to a position in the program (spec §4.4): an
// address, optionally an instruction, byte reads, and prev/next/offset
// navigation. Two sentinel kinds (pre-init, post-term) bracket each code
// block; a third (null) supports matching with no program location at all
// (spec §4.4).
type Cursor struct {
	program *Program
	kind    cursorKind
	addr    uint64
	inst    armmodel.Instruction

	prevC, nextC *Cursor
}

// NullCursor returns a cursor with no program location: no address, no
// instruction and no neighbours (spec §4.4).
func NullCursor() *Cursor {
	return &Cursor{kind: kindNull}
}

func (c *Cursor) IsNull() bool { return c.kind == kindNull }

// Address returns the cursor's address. Sentinel and null cursors have
// none.
func (c *Cursor) Address() (uint64, bool) {
	switch c.kind {
	case kindCode, kindData:
		return c.addr, true
	default:
		return 0, false
	}
}

// Instruction returns the decoded instruction at this cursor. Errors with
// NoMoreInstructions on a sentinel/data/null cursor.
func (c *Cursor) Instruction() (armmodel.Instruction, error) {
	if c.kind != kindCode {
		return armmodel.Instruction{}, &perrors.NoMoreInstructions{}
	}
	return c.inst, nil
}

// ReadBytes reads count bytes starting at this cursor's address from the
// program's data blocks (spec §4.4). Out-of-range reads are InvalidAccess.
func (c *Cursor) ReadBytes(count int) ([]byte, error) {
	addr, ok := c.Address()
	if !ok {
		return nil, &perrors.InvalidAccess{Msg: "read_bytes on a cursor with no address"}
	}
	for _, b := range c.program.dataBlocks {
		if addr >= b.Start && addr+uint64(count) <= b.End() {
			off := addr - b.Start
			return b.Bytes[off : off+uint64(count)], nil
		}
	}
	return nil, &perrors.InvalidAccess{Msg: "read_bytes out of range"}
}

// CreateDataStream returns a seekable reader over this cursor's data block
// from its address onward (spec §4.4, used by the structured-object atom).
func (c *Cursor) CreateDataStream() (*bytes.Reader, error) {
	addr, ok := c.Address()
	if !ok {
		return nil, &perrors.InvalidAccess{Msg: "create_data_stream on a cursor with no address"}
	}
	for _, b := range c.program.dataBlocks {
		if addr >= b.Start && addr < b.End() {
			off := addr - b.Start
			return bytes.NewReader(b.Bytes[off:]), nil
		}
	}
	return nil, &perrors.InvalidAccess{Msg: "no data block at this address"}
}

// Offset returns the cursor delta instructions away (delta may be
// negative); implemented via repeated Next/Prev since the chain, not the
// address arithmetic, defines "next instruction".
func (c *Cursor) Offset(delta int) (*Cursor, error) {
	cur := c
	var err error
	for delta > 0 {
		cur, err = cur.Next()
		if err != nil {
			return nil, err
		}
		delta--
	}
	for delta < 0 {
		cur, err = cur.Prev()
		if err != nil {
			return nil, err
		}
		delta++
	}
	return cur, nil
}

// Next returns the next cursor in program order.
func (c *Cursor) Next() (*Cursor, error) {
	if c.kind == kindPostTerm || c.kind == kindNull {
		return nil, &perrors.NoMoreInstructions{}
	}
	if c.nextC == nil {
		return nil, &perrors.NoMoreInstructions{}
	}
	return c.nextC, nil
}

// Prev returns the previous cursor in program order.
func (c *Cursor) Prev() (*Cursor, error) {
	if c.kind == kindPreInit || c.kind == kindNull {
		return nil, &perrors.NoMoreInstructions{}
	}
	if c.prevC == nil {
		return nil, &perrors.NoMoreInstructions{}
	}
	return c.prevC, nil
}

// Program returns the owning program, or nil for a null cursor.
func (c *Cursor) Program() *Program { return c.program }
