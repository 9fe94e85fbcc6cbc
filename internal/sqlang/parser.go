package sqlang

import (
	"github.com/mnshdw/squirrel-lsp/internal/cst"
)

// Parser is a hand-written, error-tolerant recursive-descent parser. It
// never returns a parse error to its caller — an error-node-bearing tree
// counts as a successful parse. The source is not checked for valid
// UTF-8: bytes that do not decode are lexed as identifier characters.
type Parser struct {
	toks []Token
	pos  int
	src  string
}

// Parse lexes and parses text into a cst.Tree. It always succeeds; parse
// failures are represented as ERROR nodes within the returned tree.
func Parse(text string) *cst.Tree {
	p := &Parser{toks: NewLexer([]byte(text)).Tokenize(), src: text}
	root := cst.NewNode("program", true, rangeOf(p.toks[0]), rangeOf(p.toks[0]))
	for !p.atEOF() {
		start := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			root.AddChild(stmt, "")
		}
		if p.pos == start {
			// Guarantee forward progress even on a token type the parser has
			// no production for at all.
			root.AddChild(p.errorNode(p.pos, p.pos+1), "")
			p.pos++
		}
	}
	if len(root.Children) > 0 {
		root.EndByte = root.Children[len(root.Children)-1].EndByte
		root.EndPoint = root.Children[len(root.Children)-1].EndPoint
	}
	return &cst.Tree{Root: root, Source: text}
}

func rangeOf(t Token) cst.Range {
	return cst.Range{StartByte: t.StartByte, EndByte: t.EndByte, StartPoint: t.StartPoint, EndPoint: t.EndPoint}
}

func (p *Parser) atEOF() bool { return p.cur().Kind == TokEOF }

func (p *Parser) cur() Token {
	for p.pos < len(p.toks) && p.toks[p.pos].Kind == TokComment {
		p.pos++
	}
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	i, skipped := p.pos, 0
	for i < len(p.toks) {
		if p.toks[i].Kind != TokComment {
			if skipped == n {
				return p.toks[i]
			}
			skipped++
		}
		i++
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() Token {
	t := p.cur()
	p.pos++
	return t
}

func (p *Parser) is(text string) bool { return p.cur().Text == text }

func (p *Parser) isKeyword(kw string) bool { return p.cur().Kind == TokKeyword && p.cur().Text == kw }

func (p *Parser) accept(text string) (Token, bool) {
	if p.is(text) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *Parser) errorNode(startByte, endByte int) *cst.Node {
	sb, eb := uint32(startByte), uint32(endByte)
	if int(sb) >= len(p.toks) {
		sb = uint32(len(p.toks) - 1)
	}
	n := cst.NewNode(cst.KindError, true, rangeOf(p.toks[minInt(int(sb), len(p.toks)-1)]), rangeOf(p.toks[minInt(int(eb)-1, len(p.toks)-1)]))
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// recoverTo consumes tokens up to and including one of the given
// terminators (or EOF), wrapping them in an ERROR node. This is the single
// error-recovery strategy the parser uses: resynchronize at a statement
// boundary and keep going, so one malformed construct never stops analysis
// of the rest of the file.
func (p *Parser) recoverTo(terminators ...string) *cst.Node {
	start := p.pos
	for !p.atEOF() {
		for _, t := range terminators {
			if p.is(t) {
				p.advance()
				return p.spanError(start, p.pos)
			}
		}
		p.advance()
	}
	return p.spanError(start, p.pos)
}

func (p *Parser) spanError(startTok, endTok int) *cst.Node {
	if endTok <= startTok {
		endTok = startTok + 1
	}
	endTok = minInt(endTok, len(p.toks))
	startTok = minInt(startTok, len(p.toks)-1)
	n := cst.NewNode(cst.KindError, true, rangeOf(p.toks[startTok]), rangeOf(p.toks[endTok-1]))
	return n
}

// leaf builds a childless node, named or not as the caller asks, whose
// Kind is a punctuation/keyword token's text, used so
// analyzers that scan for a literal operator child (e.g. "<-" inside
// update_expression) can find it.
func (p *Parser) leaf(t Token, named bool) *cst.Node {
	kind := t.Text
	return cst.NewNode(kind, named, rangeOf(t), rangeOf(t))
}
