package sqlang

import "github.com/mnshdw/squirrel-lsp/internal/cst"

// parseStatement dispatches on the current token to the matching
// production, falling back to an expression-statement, and recovering to
// the next ';' or '}' on anything it can't make sense of.
func (p *Parser) parseStatement() *cst.Node {
	switch {
	case p.is("{"):
		return p.parseBlock()
	case p.isKeyword("local") || p.isKeyword("var"):
		return p.parseLocalDeclaration()
	case p.isKeyword("const"):
		return p.parseConstDeclaration()
	case p.isKeyword("function"):
		return p.parseFunctionDeclaration()
	case p.isKeyword("class"):
		return p.parseClassDeclaration()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("foreach"):
		return p.parseForeach()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("do"):
		return p.parseDoWhile()
	case p.isKeyword("switch"):
		return p.parseSwitch()
	case p.isKeyword("try"):
		return p.parseTry()
	case p.isKeyword("return"):
		return p.parseReturnLike("return_statement")
	case p.isKeyword("throw"):
		return p.parseReturnLike("throw_statement")
	case p.isKeyword("break"):
		n := p.leaf(p.advance(), true)
		n.Kind = "break_statement"
		p.accept(";")
		return n
	case p.isKeyword("continue"):
		n := p.leaf(p.advance(), true)
		n.Kind = "continue_statement"
		p.accept(";")
		return n
	case p.is(";"):
		p.advance()
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseBlock() *cst.Node {
	open := p.advance() // {
	block := cst.NewNode("block", true, rangeOf(open), rangeOf(open))
	for !p.is("}") && !p.atEOF() {
		start := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			block.AddChild(stmt, "")
		}
		if p.pos == start {
			block.AddChild(p.recoverTo(";", "}"), "")
		}
	}
	if close, ok := p.accept("}"); ok {
		block.EndByte = close.EndByte
		block.EndPoint = close.EndPoint
	}
	return block
}

// parseLocalDeclaration handles `local a = 1, b, c = f()`. Each binding
// becomes its own local_declaration node so the resolver's "first
// identifier child is the declared name" rule holds for
// every binding, matching the shape a single-name tree-sitter production
// would produce.
func (p *Parser) parseLocalDeclaration() *cst.Node {
	kw := p.advance()
	var group *cst.Node
	var first *cst.Node
	for {
		if p.cur().Kind != TokIdentifier {
			break
		}
		name := p.advance()
		decl := cst.NewNode("local_declaration", true, rangeOf(kw), rangeOf(name))
		id := p.leaf(name, true)
		id.Kind = "identifier"
		decl.AddChild(id, "name")
		if _, ok := p.accept("="); ok {
			val := p.parseExpression()
			if val != nil {
				decl.AddChild(val, "value")
				decl.EndByte = val.EndByte
				decl.EndPoint = val.EndPoint
			}
		}
		if first == nil {
			first = decl
		} else {
			if group == nil {
				group = cst.NewNode("local_declaration_list", true, rangeOf(kw), rangeOf(kw))
				group.AddChild(first, "")
			}
			group.AddChild(decl, "")
		}
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	p.accept(";")
	if group != nil {
		return group
	}
	if first == nil {
		// `local` with no bindings at all: still an ERROR, not a crash.
		return p.recoverTo(";")
	}
	return first
}

func (p *Parser) parseConstDeclaration() *cst.Node {
	kw := p.advance()
	if p.cur().Kind != TokIdentifier {
		return p.recoverTo(";")
	}
	name := p.advance()
	decl := cst.NewNode("const_declaration", true, rangeOf(kw), rangeOf(name))
	id := p.leaf(name, true)
	id.Kind = "identifier"
	decl.AddChild(id, "name")
	if _, ok := p.accept("="); ok {
		val := p.parseExpression()
		if val != nil {
			decl.AddChild(val, "value")
			decl.EndByte = val.EndByte
			decl.EndPoint = val.EndPoint
		}
	}
	p.accept(";")
	return decl
}

// parseFunctionDeclaration handles both `function name(...) {...}` at
// statement level and the `function name() {}` table-slot syntax (the
// same production; callers in table-literal position invoke this too).
func (p *Parser) parseFunctionDeclaration() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("function_declaration", true, rangeOf(kw), rangeOf(kw))
	if p.cur().Kind == TokIdentifier {
		name := p.advance()
		id := p.leaf(name, true)
		id.Kind = "identifier"
		node.AddChild(id, "name")
	}
	params := p.parseParameters()
	node.AddChild(params, "parameters")
	body := p.parseBlock()
	node.AddChild(body, "body")
	node.EndByte = body.EndByte
	node.EndPoint = body.EndPoint
	return node
}

func (p *Parser) parseParameters() *cst.Node {
	open, _ := p.accept("(")
	params := cst.NewNode("parameters", true, rangeOf(open), rangeOf(open))
	for !p.is(")") && !p.atEOF() {
		if p.is("...") {
			p.advance()
			continue
		}
		if p.cur().Kind != TokIdentifier {
			params.AddChild(p.recoverTo(",", ")"), "")
			continue
		}
		name := p.advance()
		pd := cst.NewNode("parameter_declaration", true, rangeOf(name), rangeOf(name))
		id := p.leaf(name, true)
		id.Kind = "identifier"
		pd.AddChild(id, "name")
		if _, ok := p.accept("="); ok {
			def := p.parseExpression()
			if def != nil {
				pd.AddChild(def, "default")
			}
		}
		params.AddChild(pd, "")
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	if close, ok := p.accept(")"); ok {
		params.EndByte = close.EndByte
		params.EndPoint = close.EndPoint
	}
	return params
}

// parseTableBody parses the comma/semicolon separated contents of a
// `{ ... }` table or class body: slots, nested function declarations, and
// the `function name() {}` table-slot shorthand, all at once. This is the
// single source of member extraction for Workspace and the
// declaration pre-pass for the resolver.
func (p *Parser) parseTableBody(kind string) *cst.Node {
	open := p.advance() // {
	body := cst.NewNode(kind, true, rangeOf(open), rangeOf(open))
	for !p.is("}") && !p.atEOF() {
		start := p.pos
		if p.isKeyword("function") {
			body.AddChild(p.parseFunctionDeclaration(), "")
		} else if p.is(",") || p.is(";") {
			p.advance()
		} else {
			body.AddChild(p.parseTableSlot(), "")
		}
		if p.pos == start {
			body.AddChild(p.recoverTo(",", "}"), "")
		}
	}
	if close, ok := p.accept("}"); ok {
		body.EndByte = close.EndByte
		body.EndPoint = close.EndPoint
	}
	return body
}

func (p *Parser) parseTableSlot() *cst.Node {
	start := p.cur()
	var key *cst.Node
	if p.isKeyword("static") {
		p.advance()
	}
	switch {
	case p.cur().Kind == TokIdentifier:
		t := p.advance()
		key = p.leaf(t, true)
		key.Kind = "identifier"
	case p.cur().Kind == TokString:
		t := p.advance()
		key = p.leaf(t, true)
		key.Kind = "string_literal"
	case p.is("["):
		p.advance()
		key = p.parseExpression()
		p.accept("]")
	default:
		return p.recoverTo(",", "}")
	}
	slot := cst.NewNode("table_slot", true, rangeOf(start), rangeOf(start))
	if key != nil {
		slot.AddChild(key, "key")
	}
	if _, ok := p.accept("="); !ok {
		p.accept(":")
	}
	val := p.parseExpression()
	if val != nil {
		slot.AddChild(val, "value")
		slot.EndByte = val.EndByte
		slot.EndPoint = val.EndPoint
	}
	return slot
}

func (p *Parser) parseClassDeclaration() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("class_declaration", true, rangeOf(kw), rangeOf(kw))
	if p.cur().Kind == TokIdentifier {
		name := p.advance()
		id := p.leaf(name, true)
		id.Kind = "identifier"
		node.AddChild(id, "name")
	}
	if p.isKeyword("extends") {
		p.advance()
		base := p.parseExpression()
		if base != nil {
			node.AddChild(base, "base")
		}
	}
	body := p.parseTableBody("class_body")
	node.AddChild(body, "body")
	node.EndByte = body.EndByte
	node.EndPoint = body.EndPoint
	return node
}

func (p *Parser) parseIf() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("if_statement", true, rangeOf(kw), rangeOf(kw))
	p.accept("(")
	cond := p.parseExpression()
	if cond != nil {
		node.AddChild(cond, "condition")
	}
	p.accept(")")
	body := p.parseStatement()
	if body != nil {
		node.AddChild(body, "consequence")
		node.EndByte, node.EndPoint = body.EndByte, body.EndPoint
	}
	if p.isKeyword("else") {
		p.advance()
		alt := p.parseStatement()
		if alt != nil {
			node.AddChild(alt, "alternative")
			node.EndByte, node.EndPoint = alt.EndByte, alt.EndPoint
		}
	}
	return node
}

func (p *Parser) parseFor() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("for_statement", true, rangeOf(kw), rangeOf(kw))
	p.accept("(")
	if !p.is(";") {
		var init *cst.Node
		if p.isKeyword("local") {
			init = p.parseLocalDeclaration()
		} else {
			init = p.parseExpression()
			p.accept(";")
		}
		if init != nil {
			node.AddChild(init, "init")
		}
	} else {
		p.accept(";")
	}
	if !p.is(";") {
		cond := p.parseExpression()
		if cond != nil {
			node.AddChild(cond, "condition")
		}
	}
	p.accept(";")
	if !p.is(")") {
		upd := p.parseExpression()
		if upd != nil {
			node.AddChild(upd, "update")
		}
	}
	p.accept(")")
	body := p.parseStatement()
	if body != nil {
		node.AddChild(body, "body")
		node.EndByte, node.EndPoint = body.EndByte, body.EndPoint
	}
	return node
}

func (p *Parser) parseForeach() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("foreach_statement", true, rangeOf(kw), rangeOf(kw))
	p.accept("(")
	if p.cur().Kind == TokIdentifier {
		first := p.advance()
		id1 := p.leaf(first, true)
		id1.Kind = "identifier"
		if _, ok := p.accept(","); ok {
			node.AddChild(id1, "key")
			if p.cur().Kind == TokIdentifier {
				second := p.advance()
				id2 := p.leaf(second, true)
				id2.Kind = "identifier"
				node.AddChild(id2, "value")
			}
		} else {
			node.AddChild(id1, "value")
		}
	}
	p.accept("in")
	coll := p.parseExpression()
	if coll != nil {
		node.AddChild(coll, "collection")
	}
	p.accept(")")
	body := p.parseStatement()
	if body != nil {
		node.AddChild(body, "body")
		node.EndByte, node.EndPoint = body.EndByte, body.EndPoint
	}
	return node
}

func (p *Parser) parseWhile() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("while_statement", true, rangeOf(kw), rangeOf(kw))
	p.accept("(")
	cond := p.parseExpression()
	if cond != nil {
		node.AddChild(cond, "condition")
	}
	p.accept(")")
	body := p.parseStatement()
	if body != nil {
		node.AddChild(body, "body")
		node.EndByte, node.EndPoint = body.EndByte, body.EndPoint
	}
	return node
}

func (p *Parser) parseDoWhile() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("do_while_statement", true, rangeOf(kw), rangeOf(kw))
	body := p.parseStatement()
	if body != nil {
		node.AddChild(body, "body")
	}
	p.accept("while")
	p.accept("(")
	cond := p.parseExpression()
	if cond != nil {
		node.AddChild(cond, "condition")
		node.EndByte, node.EndPoint = cond.EndByte, cond.EndPoint
	}
	p.accept(")")
	p.accept(";")
	return node
}

func (p *Parser) parseSwitch() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("switch_statement", true, rangeOf(kw), rangeOf(kw))
	p.accept("(")
	val := p.parseExpression()
	if val != nil {
		node.AddChild(val, "value")
	}
	p.accept(")")
	open, _ := p.accept("{")
	body := cst.NewNode("switch_body", true, rangeOf(open), rangeOf(open))
	for !p.is("}") && !p.atEOF() {
		start := p.pos
		if p.isKeyword("case") {
			body.AddChild(p.parseSwitchCase(false), "")
		} else if p.isKeyword("default") {
			body.AddChild(p.parseSwitchCase(true), "")
		} else {
			body.AddChild(p.parseStatement(), "")
		}
		if p.pos == start {
			body.AddChild(p.recoverTo("}"), "")
		}
	}
	if close, ok := p.accept("}"); ok {
		body.EndByte = close.EndByte
		body.EndPoint = close.EndPoint
	}
	node.AddChild(body, "body")
	node.EndByte, node.EndPoint = body.EndByte, body.EndPoint
	return node
}

func (p *Parser) parseSwitchCase(isDefault bool) *cst.Node {
	kw := p.advance() // case | default
	caseNode := cst.NewNode("switch_case", true, rangeOf(kw), rangeOf(kw))
	if !isDefault {
		val := p.parseExpression()
		if val != nil {
			caseNode.AddChild(val, "value")
		}
	}
	p.accept(":")
	for !p.isKeyword("case") && !p.isKeyword("default") && !p.is("}") && !p.atEOF() {
		start := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			caseNode.AddChild(stmt, "")
			caseNode.EndByte, caseNode.EndPoint = stmt.EndByte, stmt.EndPoint
		}
		if p.pos == start {
			break
		}
	}
	return caseNode
}

func (p *Parser) parseTry() *cst.Node {
	kw := p.advance()
	node := cst.NewNode("try_statement", true, rangeOf(kw), rangeOf(kw))
	body := p.parseBlock()
	node.AddChild(body, "body")
	node.EndByte, node.EndPoint = body.EndByte, body.EndPoint
	if p.isKeyword("catch") {
		p.advance()
		p.accept("(")
		if p.cur().Kind == TokIdentifier {
			name := p.advance()
			id := p.leaf(name, true)
			id.Kind = "identifier"
			node.AddChild(id, "catch_parameter")
		}
		p.accept(")")
		catchBody := p.parseBlock()
		node.AddChild(catchBody, "catch_body")
		node.EndByte, node.EndPoint = catchBody.EndByte, catchBody.EndPoint
	}
	return node
}

func (p *Parser) parseReturnLike(kind string) *cst.Node {
	kw := p.advance()
	node := cst.NewNode(kind, true, rangeOf(kw), rangeOf(kw))
	if !p.is(";") && !p.is("}") && !p.atEOF() {
		val := p.parseExpression()
		if val != nil {
			node.AddChild(val, "value")
			node.EndByte, node.EndPoint = val.EndByte, val.EndPoint
		}
	}
	p.accept(";")
	return node
}

func (p *Parser) parseExpressionStatement() *cst.Node {
	start := p.pos
	expr := p.parseExpression()
	if expr == nil {
		if p.pos == start {
			// No production matched at all: consume through the next ';' or
			// '}' as an error so the loop that called us always makes progress.
			return p.recoverTo(";", "}")
		}
		return nil
	}
	p.accept(";")
	return expr
}
