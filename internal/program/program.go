// Package program implements the program model (spec §4.4): an ordered
// sequence of instruction cursors plus addressed data blocks, an
// address→cursor index, and the cursor handle type itself.
package program

import (
	"sort"

	"github.com/chananele/parm/internal/armmodel"
	"github.com/chananele/parm/internal/perrors"
)

// HostProvider supplies symbol resolution the core cannot do itself
// (spec §4.4 find_symbol; SPEC_FULL §6 host integration). The default,
// used when no provider is configured, always raises UnresolvedSymbol.
type HostProvider interface {
	FindSymbol(name string) (uint64, bool)
}

type noopProvider struct{}

func (noopProvider) FindSymbol(string) (uint64, bool) { return 0, false }

// DataBlock is a half-open byte range [Start, Start+len(Bytes)) (spec §3).
type DataBlock struct {
	Start uint64
	Bytes []byte
}

func (b DataBlock) End() uint64 { return b.Start + uint64(len(b.Bytes)) }

func (b DataBlock) contains(addr uint64) bool { return addr >= b.Start && addr < b.End() }

// Program is the ordered sequence of cursors plus data blocks (spec §4.4).
type Program struct {
	host HostProvider

	// cursors holds every code cursor in address order (spec §4.4). The
	// pre-init and post-term sentinels are not in it; they are reachable
	// only through the cursors' prev/next links.
	cursors []*Cursor
	byAddr  map[uint64]*Cursor

	dataBlocks []DataBlock
}

// New returns an empty program. Code/data blocks are added with
// AddCodeBlock/AddDataBlock.
func New(host HostProvider) *Program {
	if host == nil {
		host = noopProvider{}
	}
	p := &Program{host: host, byAddr: make(map[uint64]*Cursor)}
	return p
}

// AddCodeBlock links a contiguous run of already-decoded instructions,
// each with a known address, into the program's cursor chain, bracketed
// by a pre-init and post-term sentinel (spec §4.4). Duplicate addresses
// are a fatal error (returned, never panicked, since add-time is outside
// the matching core and the caller should be able to recover).
func (p *Program) AddCodeBlock(insts []armmodel.Instruction, addrs []uint64) error {
	if len(insts) != len(addrs) {
		return &perrors.InvalidAccess{Msg: "instruction/address length mismatch"}
	}
	for _, a := range addrs {
		if _, exists := p.byAddr[a]; exists {
			return &perrors.InvalidAccess{Msg: "duplicate address in code block"}
		}
	}

	pre := &Cursor{program: p, kind: kindPreInit}
	post := &Cursor{program: p, kind: kindPostTerm}

	made := make([]*Cursor, len(insts))
	for i := range insts {
		made[i] = &Cursor{program: p, kind: kindCode, addr: addrs[i], inst: insts[i]}
	}

	pre.nextC = made[0]
	post.prevC = made[len(made)-1]
	for i, c := range made {
		if i == 0 {
			c.prevC = pre
		} else {
			c.prevC = made[i-1]
		}
		if i == len(made)-1 {
			c.nextC = post
		} else {
			c.nextC = made[i+1]
		}
		p.byAddr[c.addr] = c
	}

	p.cursors = append(p.cursors, made...)
	sort.Slice(p.cursors, func(i, j int) bool { return p.cursors[i].addr < p.cursors[j].addr })
	p.linkDataBoundaries()
	return nil
}

// linkDataBoundaries rewires a code block's leading pre-init sentinel to a
// data cursor when a data block ends exactly at that block's first
// address (spec §3/§4.6: a data run immediately preceding an anchored
// instruction). Without this, Cursor.Prev() on the first instruction of a
// block preceded by data would hit the sentinel and never reach the data
// atoms a reverse block-pattern half needs to read (spec §8 scenario: data
// block + anchor). Only the reverse direction is relinked: a data atom
// line's own MatchReverse already does its addressing by arithmetic from
// this boundary, it just needs a cursor with a valid Address() to start
// from.
func (p *Program) linkDataBoundaries() {
	for _, c := range p.cursors {
		if c.kind != kindCode || c.prevC == nil || c.prevC.kind != kindPreInit {
			continue
		}
		for _, b := range p.dataBlocks {
			if b.End() == c.addr {
				c.prevC = &Cursor{program: p, kind: kindData, addr: c.addr}
				break
			}
		}
	}
}

// AddDataBlock merges a new range into any adjacent existing block (spec
// §3 invariant e: ranges never overlap). Any overlap with an existing
// block is an error.
func (p *Program) AddDataBlock(start uint64, data []byte) error {
	newBlock := DataBlock{Start: start, Bytes: append([]byte(nil), data...)}

	var merged []DataBlock
	placed := false
	for _, b := range p.dataBlocks {
		switch {
		case newBlock.End() == b.Start: // new immediately before b
			newBlock = DataBlock{Start: newBlock.Start, Bytes: append(append([]byte(nil), newBlock.Bytes...), b.Bytes...)}
		case b.End() == newBlock.Start: // b immediately before new
			newBlock = DataBlock{Start: b.Start, Bytes: append(append([]byte(nil), b.Bytes...), newBlock.Bytes...)}
		case newBlock.Start < b.End() && b.Start < newBlock.End():
			return &perrors.InvalidAccess{Msg: "overlapping data block insert"}
		default:
			merged = append(merged, b)
			continue
		}
		placed = true
	}
	merged = append(merged, newBlock)
	_ = placed
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	p.dataBlocks = merged
	p.linkDataBoundaries()
	return nil
}

// CreateCursor returns the cached cursor for addr, synthesizing a
// data-only cursor lazily if addr falls inside a known data block with no
// instruction there (spec §4.4).
func (p *Program) CreateCursor(addr uint64) (*Cursor, error) {
	if c, ok := p.byAddr[addr]; ok {
		return c, nil
	}
	for _, b := range p.dataBlocks {
		if b.contains(addr) {
			c := &Cursor{program: p, kind: kindData, addr: addr}
			p.byAddr[addr] = c
			return c, nil
		}
	}
	return nil, &perrors.InvalidAccess{Msg: "no cursor at this address"}
}

// FindSymbol delegates to the host provider (spec §4.4); raises
// UnresolvedSymbol if unresolved.
func (p *Program) FindSymbol(name string) (*Cursor, error) {
	addr, ok := p.host.FindSymbol(name)
	if !ok {
		return nil, &perrors.UnresolvedSymbol{Name: name}
	}
	return p.CreateCursor(addr)
}

// Cursors returns every real (non-sentinel) code cursor in address order.
func (p *Program) Cursors() []*Cursor {
	out := make([]*Cursor, 0, len(p.cursors))
	for _, c := range p.cursors {
		if c.kind == kindCode {
			out = append(out, c)
		}
	}
	return out
}

// XrefsTo returns every cursor whose instruction has an operand
// referencing addr — the default extension's xrefs_to (SPEC_FULL §4
// expansion).
func (p *Program) XrefsTo(addr uint64) []*Cursor {
	var out []*Cursor
	for _, c := range p.Cursors() {
		for _, op := range c.inst.Operands {
			if op.Kind == armmodel.OperandAddress && op.Address.Value == addr {
				out = append(out, c)
				break
			}
			if op.Kind == armmodel.OperandMemoryAccess && op.MemoryAccess.Offset != nil &&
				op.MemoryAccess.Offset.Kind == armmodel.OperandAddress && op.MemoryAccess.Offset.Address.Value == addr {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
