// Package format implements the pretty-printer. It replays
// sqlang's lexer token stream through a small state machine tracking brace,
// paren and bracket nesting, rather than walking the parsed cst.Tree — the
// same split an editor keeps between "what the wire protocol says" and
// "how the buffer is rendered."
package format

// IndentStyle selects how Options.pushIndent renders one level of nesting.
type IndentStyle int

const (
	IndentTabs IndentStyle = iota
	IndentSpaces
)

// Options controls layout choices that vary by project convention.
type Options struct {
	IndentStyle            IndentStyle
	SpaceWidth             int // only consulted when IndentStyle == IndentSpaces
	MaxLineWidth           int // array/condition line-break threshold; 0 uses the default of 100
	InsertFinalNewline     bool
	TrimTrailingWhitespace bool
}

// DefaultOptions mirrors the formatter's out-of-the-box behavior against
// Battle-Brothers-style mod scripts: tab indentation, a final newline,
// and trailing whitespace trimmed.
func DefaultOptions() Options {
	return Options{
		IndentStyle:            IndentTabs,
		SpaceWidth:             4,
		MaxLineWidth:           100,
		InsertFinalNewline:     true,
		TrimTrailingWhitespace: true,
	}
}

func (o Options) maxWidth() int {
	if o.MaxLineWidth <= 0 {
		return 100
	}
	return o.MaxLineWidth
}

func (o Options) pushIndent(buf *[]byte, level int) {
	switch o.IndentStyle {
	case IndentSpaces:
		for i := 0; i < level*o.SpaceWidth; i++ {
			*buf = append(*buf, ' ')
		}
	default:
		for i := 0; i < level; i++ {
			*buf = append(*buf, '\t')
		}
	}
}
