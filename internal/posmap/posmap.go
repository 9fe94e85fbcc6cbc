// Package posmap converts between byte offsets (the coordinate system the
// parser and analyzers use) and LSP positions (zero-based line, UTF-16
// code unit column).
package posmap

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is an LSP-style zero-based line/character position. Character
// counts UTF-16 code units, per the LSP spec, not bytes or runes.
type Position struct {
	Line      uint32
	Character uint32
}

// Range is a half-open [Start, End) span expressed in Positions.
type Range struct {
	Start Position
	End   Position
}

// Mapper translates between byte offsets in a document's text and LSP
// Positions. It is built once per document version and discarded on the
// next edit: a document's tree and mapper are tied to one text snapshot.
type Mapper struct {
	text string
	// lineStarts[i] is the byte offset of the first byte of line i.
	lineStarts []int
}

// New builds a Mapper over text.
func New(text string) *Mapper {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Mapper{text: text, lineStarts: starts}
}

// lineOf returns the zero-based line number containing byte offset b.
func (m *Mapper) lineOf(b int) int {
	lo, hi := 0, len(m.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.lineStarts[mid] <= b {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// PositionAt converts a byte offset into the document into an LSP
// Position. Offsets past the end of the text clamp to the document's
// final position rather than panicking.
func (m *Mapper) PositionAt(byteOffset int) Position {
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(m.text) {
		byteOffset = len(m.text)
	}
	line := m.lineOf(byteOffset)
	lineStart := m.lineStarts[line]
	lineEnd := len(m.text)
	if line+1 < len(m.lineStarts) {
		lineEnd = m.lineStarts[line+1]
	}
	lineText := m.text[lineStart:minInt(lineEnd, len(m.text))]
	col := utf16Units(lineText, byteOffset-lineStart)
	return Position{Line: uint32(line), Character: uint32(col)}
}

// ByteOffsetAt converts an LSP Position back into a byte offset, clamping
// a character value past the end of its line to the line's length (a
// client that sends a stale position shouldn't crash the server).
func (m *Mapper) ByteOffsetAt(pos Position) int {
	line := int(pos.Line)
	if line < 0 {
		return 0
	}
	if line >= len(m.lineStarts) {
		return len(m.text)
	}
	lineStart := m.lineStarts[line]
	lineEnd := len(m.text)
	if line+1 < len(m.lineStarts) {
		lineEnd = m.lineStarts[line+1]
	}
	lineText := m.text[lineStart:minInt(lineEnd, len(m.text))]
	return lineStart + byteOffsetForUTF16(lineText, int(pos.Character))
}

// RangeAt converts a [startByte, endByte) byte span into an LSP Range.
func (m *Mapper) RangeAt(startByte, endByte int) Range {
	return Range{Start: m.PositionAt(startByte), End: m.PositionAt(endByte)}
}

// utf16Units counts the UTF-16 code units needed to represent the first
// byteLen bytes of line (which must be valid UTF-8, tolerated loosely:
// invalid sequences count as one unit each so a malformed mod script never
// aborts position mapping).
func utf16Units(line string, byteLen int) int {
	if byteLen > len(line) {
		byteLen = len(line)
	}
	units := 0
	for i := 0; i < byteLen; {
		r, size := utf8.DecodeRuneInString(line[i:])
		if r == utf8.RuneError && size <= 1 {
			units++
			i++
			continue
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return units
}

// byteOffsetForUTF16 finds the byte offset within line corresponding to
// the given count of UTF-16 code units.
func byteOffsetForUTF16(line string, units int) int {
	if units <= 0 {
		return 0
	}
	count := 0
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		width := 1
		if r > 0xFFFF {
			width = 2
		}
		if count+width > units {
			return i
		}
		count += width
		i += size
		if count >= units {
			return i
		}
	}
	return len(line)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SplitMultilineToken splits a token's text on line breaks, returning one
// (text, Range) pair per physical line it spans. Nothing in this module
// calls it: internal/format splits block comments itself, and
// publishDiagnostics sends each range as one span.
func (m *Mapper) SplitMultilineToken(startByte, endByte int) []struct {
	Text  string
	Range Range
} {
	text := m.text[startByte:endByte]
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return []struct {
			Text  string
			Range Range
		}{{Text: text, Range: m.RangeAt(startByte, endByte)}}
	}
	out := make([]struct {
		Text  string
		Range Range
	}, 0, len(lines))
	offset := startByte
	for i, l := range lines {
		lineEnd := offset + len(l)
		out = append(out, struct {
			Text  string
			Range Range
		}{Text: l, Range: m.RangeAt(offset, lineEnd)})
		offset = lineEnd + 1 // +1 for the '\n' consumed by Split
		if i == len(lines)-1 {
			break
		}
	}
	return out
}

// UTF16Len returns the number of UTF-16 code units needed to encode s.
// Nothing in this module calls it; the formatter's line-width estimate
// uses go-runewidth display widths instead.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// EncodeUTF16 exposes the standard library helper directly for callers
// that need raw code units rather than a count.
func EncodeUTF16(s string) []uint16 { return utf16.Encode([]rune(s)) }
