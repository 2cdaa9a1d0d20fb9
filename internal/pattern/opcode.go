package pattern

import (
	"strings"

	"github.com/chananele/parm/internal/matchresult"
	"github.com/chananele/parm/internal/perrors"
)

// OpcodePat matches an instruction's opcode string: a literal (shell-glob,
// case-insensitive) or the bare `*` wildcard, each with an optional
// capture (spec §3, §6).
type OpcodePat struct {
	Glob    string // already lower-cased
	Capture string
}

// Match checks opcode against the glob and binds Capture if set (spec
// §4.6 instruction pattern).
func (p OpcodePat) Match(opcode string, mr *matchresult.MatchResult) error {
	lower := strings.ToLower(opcode)
	if !matchGlob(p.Glob, lower) {
		return &perrors.PatternValueMismatch{Expected: p.Glob, Got: lower}
	}
	return mr.Set(p.Capture, opcode)
}
