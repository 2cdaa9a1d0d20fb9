package grammar

import (
	"strings"

	"github.com/chananele/parm/internal/execctx"
	"github.com/chananele/parm/internal/ext"
	"github.com/chananele/parm/internal/pattern"
)

// Compiler implements ext.PatternCompiler.Compile (spec §4.7, §6), and is
// the value wired into every embedded namespace so `goto`-style
// sub-patterns and matchable generators can recursively compile more
// pattern text.
type Compiler struct{}

// NewCompiler returns the grammar's ext.PatternCompiler implementation.
func NewCompiler() *Compiler { return &Compiler{} }

// Compile parses a full pattern's source text and returns it as a plain
// execctx.Line — the pattern's forward half only (spec §4.8 inline
// re-use). If the source marks a later line as the anchor, the lines
// before it are not run.
func (c *Compiler) Compile(src string) (execctx.Line, error) {
	p, err := CompilePattern(src)
	if err != nil {
		return nil, err
	}
	return p.InlineLine(), nil
}

// CompilePattern parses pattern source text into a *pattern.Pattern
// (spec §3 "Pattern" / §6 "Pattern grammar (textual)"). Physical lines
// are split first (honoring %% fences so embedded code's own newlines
// are never mistaken for pattern-line breaks), classified, and parsed
// into an ordered slice of AST nodes; NewBlockPattern then wires that
// slice around whichever line was anchor-marked (`> `, spec §6
// "Anchor"), defaulting to index 0 when no line carries the marker.
func CompilePattern(src string) (*pattern.Pattern, error) {
	physical, err := splitPhysicalLines(src)
	if err != nil {
		return nil, err
	}

	var nodes []execctx.Line
	anchor := 0
	compiler := NewCompiler()

	for _, pl := range physical {
		if pl.anchored {
			anchor = len(nodes)
		}
		line, err := classifyLine(pl.lineNo, pl.text, compiler)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, line...)
	}

	return &pattern.Pattern{Block: pattern.NewBlockPattern(nodes, anchor)}, nil
}

// physicalLine is one logical source line after %% fence-joining, with
// its 1-based line number (for error messages) and whether it carried
// the `> ` anchor marker.
type physicalLine struct {
	lineNo   int
	text     string
	anchored bool
}

// splitPhysicalLines walks raw source lines, joining %%...%% fences into
// a single physicalLine (so the embedded code inside keeps its own
// newlines, spec §6 "Embedded code"), stripping the `> ` anchor prefix
// (spec §6 "Anchor"), and skipping blank lines — indentation is
// otherwise not significant for assembly lines (spec §6 "Pattern
// grammar (textual)").
func splitPhysicalLines(src string) ([]physicalLine, error) {
	raw := strings.Split(src, "\n")
	var out []physicalLine

	for i := 0; i < len(raw); i++ {
		lineNo := i + 1
		line := strings.TrimRight(raw[i], "\r")

		anchored := false
		if rest, ok := cutAnchorPrefix(line); ok {
			anchored = true
			line = rest
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "%%") {
			body, consumed, err := readFence(raw, i, trimmed)
			if err != nil {
				return nil, err
			}
			out = append(out, physicalLine{lineNo: lineNo, text: "%%" + body, anchored: anchored})
			i = consumed
			continue
		}

		out = append(out, physicalLine{lineNo: lineNo, text: trimmed, anchored: anchored})
	}
	return out, nil
}

// cutAnchorPrefix strips a leading `> ` marker, honoring leading
// indentation before it (spec §6: "a line prefix `> ` before an
// indented line").
func cutAnchorPrefix(line string) (string, bool) {
	trimmedLeft := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmedLeft, "> ") {
		return line, false
	}
	return trimmedLeft[2:], true
}

// readFence collects the lines of a %%...%% block starting at raw[start]
// (whose trimmed form already begins with "%%"), returning the joined
// body text (without the delimiters) and the index of the last line
// consumed.
func readFence(raw []string, start int, firstTrimmed string) (string, int, error) {
	afterOpen := strings.TrimPrefix(firstTrimmed, "%%")
	if closeIdx := strings.Index(afterOpen, "%%"); closeIdx != -1 {
		return afterOpen[:closeIdx], start, nil
	}

	var body strings.Builder
	body.WriteString(afterOpen)

	for i := start + 1; i < len(raw); i++ {
		line := strings.TrimRight(raw[i], "\r")
		if closeIdx := strings.Index(line, "%%"); closeIdx != -1 {
			body.WriteString("\n")
			body.WriteString(line[:closeIdx])
			return body.String(), i, nil
		}
		body.WriteString("\n")
		body.WriteString(line)
	}
	return "", 0, &SyntaxError{Line: start + 1, Message: "unterminated %% embedded code fence"}
}

// classifyLine dispatches one physical line to the right sub-parser
// (spec §6 "Pattern grammar (textual)"), returning the AST node(s) it
// produces in textual order.
func classifyLine(lineNo int, text string, compiler ext.PatternCompiler) ([]execctx.Line, error) {
	switch {
	case strings.HasPrefix(text, "%%"):
		code := strings.TrimSuffix(strings.TrimPrefix(text, "%%"), "%%")
		return []execctx.Line{&pattern.EmbeddedCodeLine{Code: code, Compiler: compiler}}, nil
	case strings.HasPrefix(text, "%"):
		return []execctx.Line{&pattern.EmbeddedCodeLine{Code: strings.TrimPrefix(text, "%"), Compiler: compiler}}, nil
	case strings.HasPrefix(text, "!"):
		return []execctx.Line{&pattern.MatchableGeneratorLine{Code: strings.TrimPrefix(text, "!"), Compiler: compiler}}, nil
	case strings.HasPrefix(text, "..."):
		sp, err := parseSkipLine(lineNo, text)
		if err != nil {
			return nil, err
		}
		return []execctx.Line{sp}, nil
	}

	if addrText, nameCap, expr, ok := splitObjLine(text); ok {
		return parseObjLine(lineNo, addrText, nameCap, expr, compiler)
	}

	return parseAssemblyLine(lineNo, text)
}
