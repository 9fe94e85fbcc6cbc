// Package sqlang is the TreeProvider: a hand-written, error-tolerant
// lexer and recursive-descent parser for the scripting language the
// modding ecosystem uses, producing a cst.Tree. Where a generated-grammar
// incremental parser would normally sit, this is adapted instead from
// gotreesitter's token/lexer shape, since no generated grammar table
// exists for this language and the chosen resource policy calls for a
// full reparse per request rather than incremental editing anyway.
package sqlang

import (
	"unicode/utf8"

	"github.com/mnshdw/squirrel-lsp/internal/cst"
)

// TokenKind classifies a lexical token. It deliberately matches the
// formatter's token taxonomy so the same lexer feeds both
// the parser and the formatter's flat token stream.
type TokenKind int

const (
	TokKeyword TokenKind = iota
	TokIdentifier
	TokNumber
	TokString
	TokComment
	TokSymbol
	TokOther
	TokEOF
)

// Token is one lexical token plus the layout information the formatter
// needs: how many source newlines preceded it.
type Token struct {
	Kind             TokenKind
	Text             string
	StartByte        uint32
	EndByte          uint32
	StartPoint       cst.Point
	EndPoint         cst.Point
	NewlinesBefore   int // 0, 1, or 2+ (2+ means a blank line separated this token from the previous one)
}

var keywords = map[string]bool{
	"base": true, "break": true, "case": true, "catch": true, "class": true,
	"clone": true, "continue": true, "const": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "extends": true,
	"false": true, "for": true, "foreach": true, "function": true,
	"if": true, "in": true, "instanceof": true, "local": true, "null": true,
	"resume": true, "return": true, "static": true, "switch": true,
	"this": true, "throw": true, "true": true, "try": true, "typeof": true,
	"while": true, "yield": true, "var": true, "rawcall": true, "__LINE__": true, "__FILE__": true,
}

// multiCharSymbols is ordered longest-first so the scanner can greedily
// match the longest valid operator at each position.
var multiCharSymbols = []string{
	">>>=", "<=>", "<-", "::", "&&", "||", "==", "!=", "<=", ">=", "<<", ">>",
	"+=", "-=", "*=", "/=", "%=", "++", "--", "->",
}

// Lexer turns source bytes into a flat Token stream, tolerant of any byte
// sequence: an unrecognized ASCII character becomes a one-byte TokSymbol
// token and bytes at or above 0x80 are scanned as identifier characters,
// rather than aborting the scan.
type Lexer struct {
	src        []byte
	pos        int
	row, col   uint32
}

// NewLexer creates a lexer over src.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src}
}

func (l *Lexer) point() cst.Point { return cst.Point{Row: l.row, Column: l.col} }

func (l *Lexer) peekByte(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.row++
		l.col = 0
	} else {
		// Counting UTF-16 units is PositionMapper's job; the lexer counts
		// runes, skipping UTF-8 continuation bytes, for diagnostics fallback.
		if b < 0x80 || b >= 0xC0 {
			l.col++
		}
	}
	return b
}

// Tokenize scans the entire source into a token slice terminated by a
// TokEOF token. It never returns an error: every byte is accounted for by
// some token, even if that token is TokOther.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		newlines := l.skipTrivia()
		start := l.pos
		startPoint := l.point()
		if l.pos >= len(l.src) {
			tokens = append(tokens, Token{
				Kind: TokEOF, StartByte: uint32(start), EndByte: uint32(start),
				StartPoint: startPoint, EndPoint: startPoint, NewlinesBefore: newlines,
			})
			return tokens
		}

		tok := l.scanOne()
		tok.StartByte = uint32(start)
		tok.EndByte = uint32(l.pos)
		tok.StartPoint = startPoint
		tok.EndPoint = l.point()
		tok.NewlinesBefore = newlines
		tokens = append(tokens, tok)
	}
}

// skipTrivia consumes whitespace, capping the newline count the caller
// needs to distinguish "no blank line" (0), "line break" (1) and
// "paragraph break" (2+, rendered by the formatter as a Blankline token).
func (l *Lexer) skipTrivia() int {
	newlines := 0
	for l.pos < len(l.src) {
		b := l.src[l.pos]
		switch b {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.advance()
			newlines++
		default:
			if newlines > 2 {
				newlines = 2
			}
			return newlines
		}
	}
	if newlines > 2 {
		newlines = 2
	}
	return newlines
}

func (l *Lexer) scanOne() Token {
	b := l.src[l.pos]

	switch {
	case b == '/' && l.peekByte(1) == '/':
		return l.scanLineComment()
	case b == '#':
		return l.scanLineComment()
	case b == '/' && l.peekByte(1) == '*':
		return l.scanBlockComment()
	case b == '"':
		return l.scanString('"', false)
	case b == '\'':
		return l.scanCharLiteral()
	case b == '@' && l.peekByte(1) == '"':
		l.advance() // consume '@'
		return l.scanString('"', true)
	case isIdentStart(b):
		return l.scanIdentifier()
	case isDigit(b):
		return l.scanNumber()
	default:
		return l.scanSymbol()
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (l *Lexer) scanIdentifier() Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if keywords[text] {
		return Token{Kind: TokKeyword, Text: text}
	}
	return Token{Kind: TokIdentifier, Text: text}
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	if l.src[l.pos] == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.advance()
		}
		return Token{Kind: TokNumber, Text: string(l.src[start:l.pos])}
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance()
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && isDigit(l.peekByte(1)) {
		l.advance()
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.advance()
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.advance()
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.advance()
			}
		} else {
			l.pos = save
		}
	}
	return Token{Kind: TokNumber, Text: string(l.src[start:l.pos])}
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (l *Lexer) scanString(quote byte, verbatim bool) Token {
	start := l.pos
	l.advance() // opening quote
	for l.pos < len(l.src) {
		b := l.src[l.pos]
		if b == quote {
			if verbatim && l.peekByte(1) == quote {
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			break
		}
		if b == '\\' && !verbatim {
			l.advance()
			if l.pos < len(l.src) {
				l.advance()
			}
			continue
		}
		l.advance()
	}
	return Token{Kind: TokString, Text: string(l.src[start:l.pos])}
}

func (l *Lexer) scanCharLiteral() Token {
	start := l.pos
	l.advance()
	for l.pos < len(l.src) && l.src[l.pos] != '\'' {
		if l.src[l.pos] == '\\' {
			l.advance()
		}
		l.advance()
	}
	if l.pos < len(l.src) {
		l.advance()
	}
	return Token{Kind: TokString, Text: string(l.src[start:l.pos])}
}

func (l *Lexer) scanLineComment() Token {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance()
	}
	return Token{Kind: TokComment, Text: string(l.src[start:l.pos])}
}

func (l *Lexer) scanBlockComment() Token {
	start := l.pos
	l.advance()
	l.advance()
	for l.pos < len(l.src) {
		if l.src[l.pos] == '*' && l.peekByte(1) == '/' {
			l.advance()
			l.advance()
			break
		}
		l.advance()
	}
	return Token{Kind: TokComment, Text: string(l.src[start:l.pos])}
}

func (l *Lexer) scanSymbol() Token {
	remaining := l.src[l.pos:]
	for _, sym := range multiCharSymbols {
		if len(remaining) >= len(sym) && string(remaining[:len(sym)]) == sym {
			for range sym {
				l.advance()
			}
			return Token{Kind: TokSymbol, Text: sym}
		}
	}
	b := l.src[l.pos]
	if b < utf8.RuneSelf {
		l.advance()
		return Token{Kind: TokSymbol, Text: string(b)}
	}
	r, size := utf8.DecodeRune(l.src[l.pos:])
	for i := 0; i < size; i++ {
		l.advance()
	}
	return Token{Kind: TokOther, Text: string(r)}
}
