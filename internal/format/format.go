package format

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
)

// BraceKind classifies one open `{` so the matching `}` knows how it was
// laid out.
type BraceKind int

const (
	BraceObjectInline BraceKind = iota
	BraceObjectMultiline
	BraceBlock
	BraceSwitch
)

func (k BraceKind) isObject() bool {
	return k == BraceObjectInline || k == BraceObjectMultiline
}

func (k BraceKind) isInline() bool { return k == BraceObjectInline }

type braceFrame struct {
	kind              BraceKind
	parenDepthAtOpen  int
	bracketDepthAtOpen int
	inCaseLabel       bool
	caseBodyIndented  bool
}

// ParenKind records what construct opened a `(` so the matching `)` can
// decide whether a single-statement block should be synthesized (If) or a
// line-break budget applies (If).
type ParenKind int

const (
	ParenFor ParenKind = iota
	ParenIf
	ParenSwitch
	ParenFunction
	ParenRegular
)

type parenFrame struct {
	kind               ParenKind
	bracketDepthAtOpen int
}

type prevToken struct {
	text string
	kind sqlang.TokenKind
}

// Format re-renders source in the project's house style. It tolerates
// parse errors in the same spirit as the rest of this module: formatting
// works token-by-token, so a file the parser can't fully make sense of
// still gets reformatted rather than rejected.
func Format(source string, opts Options) string {
	toks := sqlang.NewLexer([]byte(source)).Tokenize()

	f := newFormatter(opts)
	for i, tok := range toks {
		if tok.Kind == sqlang.TokEOF {
			continue
		}
		var next *sqlang.Token
		if i+1 < len(toks) && toks[i+1].Kind != sqlang.TokEOF {
			next = &toks[i+1]
		}
		remaining := toks[i+1:]
		f.writeToken(&tok, next, remaining)
	}

	out := f.finish()
	if opts.InsertFinalNewline && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

type formatter struct {
	options Options
	output  []byte

	indentLevel int
	parenDepth  int
	bracketDepth int

	needsIndent  bool
	pendingSpace bool
	prevWasUnary bool
	prev         *prevToken

	braces *arraystack.Stack // of braceFrame
	parens *arraystack.Stack // of parenFrame

	autoBraceStack          *arraystack.Stack // of bool
	bracketIndentBumpStack  *arraystack.Stack // of bool
	arrayStartIndices       []int
	lastClosedParenKind     *ParenKind
}

func newFormatter(opts Options) *formatter {
	return &formatter{
		options:                opts,
		braces:                 arraystack.New(),
		parens:                 arraystack.New(),
		autoBraceStack:         arraystack.New(),
		bracketIndentBumpStack: arraystack.New(),
	}
}

func (f *formatter) finish() string {
	if f.options.TrimTrailingWhitespace {
		f.trimTrailingWhitespaceLine()
	}
	return string(f.output)
}

// --- small stack-typed helpers -------------------------------------------

func (f *formatter) peekBrace() (braceFrame, bool) {
	v, ok := f.braces.Peek()
	if !ok {
		return braceFrame{}, false
	}
	return v.(braceFrame), true
}

func (f *formatter) popBrace() (braceFrame, bool) {
	v, ok := f.braces.Pop()
	if !ok {
		return braceFrame{}, false
	}
	return v.(braceFrame), true
}

func (f *formatter) peekParen() (parenFrame, bool) {
	v, ok := f.parens.Peek()
	if !ok {
		return parenFrame{}, false
	}
	return v.(parenFrame), true
}

func (f *formatter) popParen() (parenFrame, bool) {
	v, ok := f.parens.Pop()
	if !ok {
		return parenFrame{}, false
	}
	return v.(parenFrame), true
}

func (f *formatter) peekBool(s *arraystack.Stack) bool {
	v, ok := s.Peek()
	if !ok {
		return false
	}
	return v.(bool)
}

func (f *formatter) popBool(s *arraystack.Stack) bool {
	v, ok := s.Pop()
	if !ok {
		return false
	}
	return v.(bool)
}

// --- state queries ---------------------------------------------------------

func (f *formatter) inForHeader() bool {
	if f.parenDepth == 0 {
		return false
	}
	p, ok := f.peekParen()
	return ok && p.kind == ParenFor
}

func (f *formatter) inIfCondition() bool {
	if f.parenDepth == 0 {
		return false
	}
	found := false
	f.parens.Each(func(_ int, v interface{}) {
		if v.(parenFrame).kind == ParenIf {
			found = true
		}
	})
	return found
}

func (f *formatter) inFunctionParams() bool {
	if f.parenDepth == 0 {
		return false
	}
	p, ok := f.peekParen()
	return ok && p.kind == ParenFunction
}

func (f *formatter) inObjectTopLevel() bool {
	b, ok := f.peekBrace()
	return ok && b.kind == BraceObjectMultiline &&
		b.parenDepthAtOpen == f.parenDepth && b.bracketDepthAtOpen == f.bracketDepth
}

func (f *formatter) inPrettyArray() bool {
	parenBracketDepth := 0
	if p, ok := f.peekParen(); ok {
		parenBracketDepth = p.bracketDepthAtOpen
	}
	bracketOpenedInParen := f.parenDepth > 0 && f.bracketDepth > parenBracketDepth
	return f.peekBool(f.bracketIndentBumpStack) && (f.parenDepth == 0 || bracketOpenedInParen)
}

func (f *formatter) inSwitchBlock() bool {
	b, ok := f.peekBrace()
	return ok && b.kind == BraceSwitch
}

// --- low-level output ------------------------------------------------------

func (f *formatter) endsWithWhitespace() bool {
	if len(f.output) == 0 {
		return false
	}
	switch f.output[len(f.output)-1] {
	case ' ', '\n', '\t':
		return true
	}
	return false
}

func (f *formatter) endsWith(s string) bool {
	return strings.HasSuffix(string(f.output), s)
}

func (f *formatter) popByte() {
	if len(f.output) > 0 {
		f.output = f.output[:len(f.output)-1]
	}
}

func (f *formatter) ensureIndent() {
	if f.needsIndent {
		f.options.pushIndent(&f.output, f.indentLevel)
		f.needsIndent = false
	}
}

func (f *formatter) applyPendingSpace() {
	if f.pendingSpace && !f.endsWithWhitespace() {
		f.output = append(f.output, ' ')
	}
	f.pendingSpace = false
}

func (f *formatter) pushNewline() {
	if f.options.TrimTrailingWhitespace {
		f.trimTrailingWhitespaceLine()
	}
	if !f.endsWith("\n") {
		f.output = append(f.output, '\n')
	}
	f.needsIndent = true
	f.pendingSpace = false
	f.prev = nil
}

func (f *formatter) writeBlankline() {
	if f.inSwitchBlock() {
		return
	}
	if f.endsWith("\n\n") {
		return
	}
	if !f.endsWith("\n") {
		f.pushNewline()
	}
	f.output = append(f.output, '\n')
	f.needsIndent = true
	f.pendingSpace = false
	f.prev = nil
}

func (f *formatter) trimTrailingWhitespaceLine() {
	for len(f.output) > 0 {
		last := f.output[len(f.output)-1]
		if last == ' ' || last == '\t' {
			f.output = f.output[:len(f.output)-1]
			continue
		}
		break
	}
}

func (f *formatter) setPrev(tok *sqlang.Token) {
	f.prev = &prevToken{text: tok.Text, kind: tok.Kind}
}

func (f *formatter) prepareToken(tok *sqlang.Token) {
	f.ensureIndent()
	f.applyPendingSpace()
	if !f.prevWasUnary && needsSpace(f.prev, tok) && !f.endsWithWhitespace() {
		f.output = append(f.output, ' ')
	}
	if f.prevWasUnary {
		f.prevWasUnary = false
	}
}

// --- main dispatch -----------------------------------------------------

func (f *formatter) writeToken(tok *sqlang.Token, next *sqlang.Token, remaining []sqlang.Token) {
	if tok.NewlinesBefore >= 2 {
		f.writeBlankline()
	}

	if f.inSwitchBlock() && (tok.Text == "case" || tok.Text == "default") {
		f.writeCaseLabel(tok)
		return
	}

	switch tok.Text {
	case "{":
		f.writeOpenBrace(tok, next)
		return
	case "}":
		f.writeCloseBrace(tok, next)
		return
	case ";":
		f.writeSemicolon(tok, next)
		return
	case ",":
		f.writeComma(tok, next)
		return
	case "(":
		f.writeOpenParen(tok)
		return
	case ")":
		f.writeCloseParen(tok, next)
		return
	case "[":
		f.writeOpenBracket(tok, next, remaining)
		return
	case "]":
		f.writeCloseBracket(tok)
		return
	case ".", "::":
		f.writeMemberAccess(tok)
		return
	case "?":
		f.writeQuestion(tok)
		return
	case ":":
		f.writeColon(tok, next)
		return
	case "++", "--":
		f.writeIncrement(tok)
		return
	}

	switch tok.Kind {
	case sqlang.TokComment:
		f.writeComment(tok)
		return
	}

	if isOperator(tok.Text) {
		f.writeOperator(tok, remaining)
		return
	}
	f.writeDefault(tok)
}

// --- per-token-kind writers -------------------------------------------

func (f *formatter) writeOpenBrace(tok *sqlang.Token, next *sqlang.Token) {
	f.prepareToken(tok)

	isSwitch := f.lastClosedParenKind != nil && *f.lastClosedParenKind == ParenSwitch
	isBlock := f.prev != nil && (f.prev.text == ")" || f.prev.kind == sqlang.TokKeyword)

	var kind BraceKind
	switch {
	case isSwitch:
		kind = BraceSwitch
	case isBlock:
		kind = BraceBlock
	case next != nil && next.Text == "}":
		kind = BraceObjectInline
	default:
		kind = BraceObjectMultiline
	}

	f.output = append(f.output, '{')
	f.braces.Push(braceFrame{kind: kind, parenDepthAtOpen: f.parenDepth, bracketDepthAtOpen: f.bracketDepth})
	f.lastClosedParenKind = nil

	if kind.isInline() {
		f.setPrev(tok)
		return
	}
	f.indentLevel++
	f.pushNewline()
}

func (f *formatter) writeCloseBrace(tok *sqlang.Token, next *sqlang.Token) {
	frame, had := f.popBrace()
	inline := had && frame.kind.isInline()
	isObject := had && frame.kind.isObject()

	if had && frame.kind == BraceSwitch && frame.caseBodyIndented {
		f.dedent()
	}

	if !inline {
		f.dedent()
	}
	if !f.endsWith("\n") && !inline {
		f.pushNewline()
	}

	nextIsBracket := next != nil && next.Text == "]"
	inPrettyArray := f.peekBool(f.bracketIndentBumpStack)
	needsArrayIndent := !inline && nextIsBracket && !inPrettyArray && isObject

	if needsArrayIndent {
		f.indentLevel++
	}

	if isObject && !inline && next != nil && next.Text == ")" {
		f.pushNewline()
		f.writeBlankline()
		f.ensureIndent()
		f.output = append(f.output, '}')
		if needsArrayIndent {
			f.dedent()
		}
		f.setPrev(tok)
		f.needsIndent = false
		return
	}

	f.ensureIndent()
	f.output = append(f.output, '}')
	if needsArrayIndent {
		f.dedent()
	}
	f.setPrev(tok)

	if next != nil {
		switch next.Text {
		case ")", ";", ",":
			f.needsIndent = false
			return
		case "else", "catch", "finally", "while":
			f.output = append(f.output, ' ')
			f.needsIndent = false
			f.prev = nil
			return
		}
		if next.Kind == sqlang.TokComment && strings.HasPrefix(strings.TrimSpace(next.Text), "//") {
			f.output = append(f.output, ' ')
			f.needsIndent = false
			return
		}
	}

	if !inline {
		f.pushNewline()
	}
}

func (f *formatter) dedent() {
	if f.indentLevel > 0 {
		f.indentLevel--
	}
}

func (f *formatter) writeSemicolon(tok *sqlang.Token, next *sqlang.Token) {
	f.ensureIndent()
	f.applyPendingSpace()
	f.output = append(f.output, ';')

	nextIsSameLineComment := next != nil && next.Kind == sqlang.TokComment &&
		strings.HasPrefix(strings.TrimSpace(next.Text), "//") && next.NewlinesBefore == 0

	if nextIsSameLineComment {
		if !f.endsWith(" ") && !f.endsWith("\t") {
			f.output = append(f.output, ' ')
		}
		f.setPrev(tok)
		return
	}

	if f.inForHeader() {
		f.output = append(f.output, ' ')
		f.setPrev(tok)
	} else {
		f.pushNewline()
	}

	if f.autoBraceStack.Size() > 0 && f.peekBool(f.autoBraceStack) {
		f.popBool(f.autoBraceStack)
		synthetic := sqlang.Token{Text: "}", Kind: sqlang.TokSymbol}
		f.writeCloseBrace(&synthetic, nil)
	}
}

func (f *formatter) writeComma(tok *sqlang.Token, next *sqlang.Token) {
	f.prepareToken(tok)

	inObjectTopLevel := f.inObjectTopLevel()
	inFunctionParams := f.inFunctionParams()
	inPrettyArray := f.inPrettyArray()

	isTrailing := next != nil && next.Text == "}"
	if isTrailing && inObjectTopLevel && !inFunctionParams {
		f.pushNewline()
		f.setPrev(tok)
		return
	}

	f.output = append(f.output, ',')

	switch {
	case inObjectTopLevel && !inFunctionParams:
		if next != nil && next.Text == "function" {
			f.writeBlankline()
		} else {
			f.pushNewline()
		}
	case inPrettyArray:
		f.pushNewline()
	default:
		shouldSpace := next == nil || (next.Text != ")" && next.Text != "]" && next.Text != "}")
		if shouldSpace {
			f.output = append(f.output, ' ')
		}
	}
	f.setPrev(tok)
}

func (f *formatter) writeOpenParen(tok *sqlang.Token) {
	f.prepareToken(tok)
	f.output = append(f.output, '(')
	f.parenDepth++

	kind := ParenRegular
	if f.prev != nil {
		switch f.prev.text {
		case "for":
			kind = ParenFor
		case "if":
			kind = ParenIf
		case "switch":
			kind = ParenSwitch
		case "function":
			kind = ParenFunction
		}
	}
	f.parens.Push(parenFrame{kind: kind, bracketDepthAtOpen: f.bracketDepth})
	f.setPrev(tok)
}

func (f *formatter) writeCloseParen(tok *sqlang.Token, next *sqlang.Token) {
	if f.parenDepth > 0 {
		f.parenDepth--
	}
	frame, had := f.popParen()
	isIfHeader := had && frame.kind == ParenIf

	if had {
		k := frame.kind
		f.lastClosedParenKind = &k
	} else {
		f.lastClosedParenKind = nil
	}

	f.ensureIndent()
	f.applyPendingSpace()
	f.output = append(f.output, ')')

	nextIsBrace := next != nil && next.Text == "{"
	if nextIsBrace {
		f.output = append(f.output, ' ')
		f.needsIndent = false
	} else if isIfHeader {
		f.output = append(f.output, ' ')
		synthetic := sqlang.Token{Text: "{", Kind: sqlang.TokSymbol}
		f.writeOpenBrace(&synthetic, next)
		f.autoBraceStack.Push(true)
	}
	f.setPrev(tok)
}

func (f *formatter) writeOpenBracket(tok *sqlang.Token, next *sqlang.Token, remaining []sqlang.Token) {
	f.prepareToken(tok)
	f.output = append(f.output, '[')
	f.bracketDepth++

	isSubscript := f.prev != nil && (f.prev.kind == sqlang.TokIdentifier || f.prev.kind == sqlang.TokNumber ||
		f.prev.kind == sqlang.TokString || f.prev.text == "]" || f.prev.text == ")" || f.prev.text == "}")
	isEmpty := next != nil && next.Text == "]"

	if isSubscript || isEmpty {
		f.bracketIndentBumpStack.Push(false)
		f.setPrev(tok)
		f.arrayStartIndices = append(f.arrayStartIndices, len(f.output))
		return
	}

	nextIsComplex := next != nil && (next.Text == "{" || next.Text == "[")
	parentIsPretty := f.peekBool(f.bracketIndentBumpStack)
	estimatedLength := f.estimateArrayLength(remaining)
	wouldBeTooLong := estimatedLength > f.options.maxWidth()

	shouldPrettyPrint := nextIsComplex || parentIsPretty || wouldBeTooLong

	if shouldPrettyPrint {
		f.pushNewline()
		f.indentLevel++
		f.bracketIndentBumpStack.Push(true)
	} else {
		f.bracketIndentBumpStack.Push(false)
	}
	f.setPrev(tok)
	f.arrayStartIndices = append(f.arrayStartIndices, len(f.output))
}

func (f *formatter) writeCloseBracket(tok *sqlang.Token) {
	if f.bracketDepth > 0 {
		f.bracketDepth--
	}
	if n := len(f.arrayStartIndices); n > 0 {
		f.arrayStartIndices = f.arrayStartIndices[:n-1]
	}

	wasPretty := f.popBool(f.bracketIndentBumpStack)
	if wasPretty {
		f.dedent()
		if !f.endsWith("\n") {
			parentIsPretty := f.peekBool(f.bracketIndentBumpStack)
			prevIsClosing := f.prev != nil && (f.prev.text == "]" || f.prev.text == "}")
			prevIsValue := f.prev != nil && (f.prev.kind == sqlang.TokIdentifier ||
				f.prev.kind == sqlang.TokNumber || f.prev.kind == sqlang.TokString)
			if parentIsPretty || prevIsClosing || prevIsValue {
				f.pushNewline()
			}
		}
	}
	f.ensureIndent()
	f.applyPendingSpace()
	f.output = append(f.output, ']')
	f.setPrev(tok)
}

func (f *formatter) writeMemberAccess(tok *sqlang.Token) {
	f.ensureIndent()
	f.applyPendingSpace()

	keepSpace := f.prev != nil && (isOperator(f.prev.text) || f.prev.text == ",")
	if f.endsWith(" ") && !keepSpace {
		f.popByte()
	}
	f.output = append(f.output, tok.Text...)
	f.setPrev(tok)
}

func (f *formatter) writeQuestion(tok *sqlang.Token) {
	f.prepareToken(tok)
	if !f.endsWith(" ") {
		f.output = append(f.output, ' ')
	}
	f.output = append(f.output, '?', ' ')
	f.setPrev(tok)
}

func (f *formatter) writeColon(tok *sqlang.Token, next *sqlang.Token) {
	frame, hasSwitch := f.peekBrace()
	inCaseLabel := hasSwitch && frame.kind == BraceSwitch && frame.inCaseLabel

	if inCaseLabel {
		if f.endsWith(" ") {
			f.popByte()
		}
		f.ensureIndent()
		f.output = append(f.output, ':')
		f.pushNewline()
		f.indentLevel++

		v, _ := f.braces.Pop()
		top := v.(braceFrame)
		top.caseBodyIndented = true
		top.inCaseLabel = false
		f.braces.Push(top)
		return
	}

	f.prepareToken(tok)

	isTernary := f.parenDepth > 0 || f.bracketDepth > 0 || !f.inObjectTopLevel()
	if isTernary && !f.endsWith(" ") {
		f.output = append(f.output, ' ')
	} else if !isTernary && f.endsWith(" ") {
		f.popByte()
	}

	f.output = append(f.output, ':')

	shouldSpace := !(next != nil && (next.Text == "}" || next.Text == "," || next.Text == ";"))
	if shouldSpace {
		f.output = append(f.output, ' ')
	}
	f.setPrev(tok)
}

func (f *formatter) writeIncrement(tok *sqlang.Token) {
	f.prepareToken(tok)
	f.output = append(f.output, tok.Text...)
	f.setPrev(tok)
}

func (f *formatter) writeOperator(tok *sqlang.Token, remaining []sqlang.Token) {
	if isUnaryOperator(tok.Text) && isUnaryContext(f.prev) {
		f.prepareToken(tok)
		f.output = append(f.output, tok.Text...)
		f.prevWasUnary = true
		f.setPrev(tok)
		return
	}

	isLogicalOp := tok.Text == "&&" || tok.Text == "||"
	if isLogicalOp && f.inIfCondition() {
		currentLineLength := f.currentLineLength()
		restLength := f.estimateLengthToParenClose(remaining)
		if currentLineLength+runewidth.StringWidth(tok.Text)+2+restLength > f.options.maxWidth() {
			f.pushNewline()
			f.indentLevel++
			f.ensureIndent()
			f.dedent()
			f.output = append(f.output, tok.Text...)
			f.pendingSpace = true
			f.setPrev(tok)
			return
		}
	}

	f.prepareToken(tok)
	if !f.endsWith(" ") {
		f.output = append(f.output, ' ')
	}
	f.output = append(f.output, tok.Text...)
	f.pendingSpace = true
	f.setPrev(tok)
}

func (f *formatter) writeComment(tok *sqlang.Token) {
	text := strings.ReplaceAll(tok.Text, "\r\n", "\n")
	trimmed := strings.TrimLeft(text, " \t")

	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
		if len(f.output) > 0 && !f.endsWith("\n") {
			if !f.endsWith(" ") && !f.endsWith("\t") {
				f.output = append(f.output, ' ')
			}
			f.output = append(f.output, trimmed...)
			f.pushNewline()
		} else {
			f.ensureIndent()
			f.output = append(f.output, trimmed...)
			f.pushNewline()
		}
		return
	}

	if strings.Contains(text, "\n") {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if i > 0 {
				if f.options.TrimTrailingWhitespace {
					f.trimTrailingWhitespaceLine()
				}
				f.output = append(f.output, '\n')
				f.output = append(f.output, line...)
				continue
			}
			f.ensureIndent()
			f.output = append(f.output, strings.TrimLeft(line, " \t")...)
		}
		f.pushNewline()
		return
	}

	f.prepareToken(tok)
	if !f.endsWith(" ") && !f.endsWith("\n") {
		f.output = append(f.output, ' ')
	}
	f.output = append(f.output, text...)
	f.setPrev(tok)
}

func (f *formatter) writeDefault(tok *sqlang.Token) {
	f.prepareToken(tok)
	f.output = append(f.output, tok.Text...)
	f.setPrev(tok)
}

func (f *formatter) writeCaseLabel(tok *sqlang.Token) {
	if v, ok := f.braces.Peek(); ok {
		top := v.(braceFrame)
		if top.caseBodyIndented {
			f.dedent()
			top.caseBodyIndented = false
		}
		top.inCaseLabel = true
		f.braces.Pop()
		f.braces.Push(top)
	}
	f.prepareToken(tok)
	f.output = append(f.output, tok.Text...)
	f.setPrev(tok)
}

// --- line-width estimation, used only to decide whether to break -------

func (f *formatter) estimateTokenSpacing(prevText string, tok sqlang.Token) int {
	switch {
	case tok.Text == ",":
		return 1
	case isOperator(tok.Text):
		return 2
	case !isOneOf(prevText, "[", "(", "{", ".", "::") && !isOneOf(tok.Text, "]", ")", "}", ",", ".", "::"):
		return 1
	default:
		return 0
	}
}

func (f *formatter) estimateArrayLength(remaining []sqlang.Token) int {
	length := 1
	depth := 0
	prevText := "["
	for _, tok := range remaining {
		if tok.Text == "]" && depth == 0 {
			length++
			break
		}
		switch tok.Text {
		case "[":
			depth++
		case "]":
			if depth > 0 {
				depth--
			}
		}
		if tok.NewlinesBefore >= 2 || tok.Kind == sqlang.TokComment {
			continue
		}
		length += runewidth.StringWidth(tok.Text)
		length += f.estimateTokenSpacing(prevText, tok)
		prevText = tok.Text
	}
	return length
}

func (f *formatter) currentLineLength() int {
	s := string(f.output)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n += runewidth.RuneWidth(r)
		}
	}
	return n
}

func (f *formatter) estimateLengthToParenClose(remaining []sqlang.Token) int {
	length := 0
	depth := 0
	prevText := ""
	for _, tok := range remaining {
		if tok.NewlinesBefore >= 2 || tok.Kind == sqlang.TokComment {
			continue
		}
		switch tok.Text {
		case "(":
			depth++
		case ")":
			if depth > 0 {
				depth--
			} else {
				return length
			}
		}
		length += runewidth.StringWidth(tok.Text)
		length += f.estimateTokenSpacing(prevText, tok)
		prevText = tok.Text
	}
	return length
}

func isOneOf(s string, opts ...string) bool {
	for _, o := range opts {
		if s == o {
			return true
		}
	}
	return false
}

// --- token-pair spacing rules -------------------------------------------

func needsSpace(prev *prevToken, cur *sqlang.Token) bool {
	if prev == nil {
		return false
	}
	if isOneOf(prev.text, "(", "[", "{", ".", "::") {
		return false
	}
	if isOneOf(cur.Text, ")", "]", ",", ";", ".", "::") {
		return false
	}
	if cur.Text == "(" {
		return keywordRequiresSpaceBeforeParen(prev.text)
	}
	if cur.Text == "{" {
		return prev.kind == sqlang.TokIdentifier || prev.kind == sqlang.TokOther ||
			prev.kind == sqlang.TokKeyword || prev.text == ")"
	}
	if cur.Text == "}" {
		return false
	}
	if isOperator(cur.Text) || isOperator(prev.text) {
		return true
	}
	if prev.kind == sqlang.TokKeyword {
		return true
	}
	if prev.kind == sqlang.TokIdentifier && cur.Kind == sqlang.TokIdentifier {
		return true
	}
	if (prev.kind == sqlang.TokIdentifier || prev.kind == sqlang.TokNumber) && cur.Kind == sqlang.TokNumber {
		return true
	}
	if cur.Kind == sqlang.TokComment {
		return true
	}
	return false
}

func keywordRequiresSpaceBeforeParen(text string) bool {
	return isOneOf(text, "if", "for", "foreach", "while", "switch", "catch")
}

var operators = map[string]bool{
	"=": true, "+": true, "-": true, "*": true, "/": true, "%": true, "<-": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"&&": true, "||": true, "&": true, "|": true, "^": true, "~": true, "!": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<": true, "<<=": true, ">>": true, ">>=": true,
	"|=": true, "&=": true, "^=": true, "in": true, "instanceof": true,
}

func isOperator(text string) bool { return operators[text] }

func isUnaryOperator(text string) bool {
	return isOneOf(text, "-", "+", "!", "~")
}

func isUnaryContext(prev *prevToken) bool {
	if prev == nil {
		return true
	}
	if isOneOf(prev.text, "(", "[", "{", ",", ";", "=", "+=", "-=", "*=", "/=", "%=",
		"==", "!=", "<", "<=", ">", ">=", "&&", "||", "&", "|", "^", "?", ":") {
		return true
	}
	return isOperator(prev.text) || prev.kind == sqlang.TokKeyword
}
