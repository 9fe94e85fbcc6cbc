package sqlang

import "github.com/mnshdw/squirrel-lsp/internal/cst"

// parseExpression is the precedence-climbing entry point: assignment is
// the lowest-binding production, matching the scripting language's
// right-associative `=`/compound-assignment family.
func (p *Parser) parseExpression() *cst.Node {
	return p.parseAssignment()
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
}

func (p *Parser) parseAssignment() *cst.Node {
	left := p.parseTernary()
	if left == nil {
		return nil
	}
	if p.is("<-") {
		op := p.advance()
		right := p.parseAssignment()
		n := cst.NewNode("update_expression", true, left.Range(), left.Range())
		n.AddChild(left, "left")
		n.AddChild(p.leaf(op, false), "")
		if right != nil {
			n.AddChild(right, "right")
			n.EndByte, n.EndPoint = right.EndByte, right.EndPoint
		}
		return n
	}
	if assignOps[p.cur().Text] && p.cur().Kind == TokSymbol {
		op := p.advance()
		right := p.parseAssignment()
		n := cst.NewNode("assignment_expression", true, left.Range(), left.Range())
		n.AddChild(left, "left")
		n.AddChild(p.leaf(op, false), "")
		if right != nil {
			n.AddChild(right, "right")
			n.EndByte, n.EndPoint = right.EndByte, right.EndPoint
		}
		return n
	}
	return left
}

func (p *Parser) parseTernary() *cst.Node {
	cond := p.parseLogicalOr()
	if cond == nil {
		return nil
	}
	if _, ok := p.accept("?"); ok {
		thenExpr := p.parseExpression()
		p.accept(":")
		elseExpr := p.parseExpression()
		n := cst.NewNode("ternary_expression", true, cond.Range(), cond.Range())
		n.AddChild(cond, "condition")
		if thenExpr != nil {
			n.AddChild(thenExpr, "consequence")
		}
		if elseExpr != nil {
			n.AddChild(elseExpr, "alternative")
			n.EndByte, n.EndPoint = elseExpr.EndByte, elseExpr.EndPoint
		}
		return n
	}
	return cond
}

// parseBinary is the shared climbing step for every left-associative
// binary precedence level: parse one operand with next, then keep folding
// in `operand op operand` for as long as the current token is one of ops.
func (p *Parser) parseBinary(next func() *cst.Node, ops ...string) *cst.Node {
	left := next()
	if left == nil {
		return nil
	}
	for {
		matched := ""
		for _, op := range ops {
			if p.is(op) && (p.cur().Kind == TokSymbol || p.cur().Kind == TokKeyword) {
				matched = op
				break
			}
		}
		if matched == "" {
			return left
		}
		opTok := p.advance()
		right := next()
		n := cst.NewNode("binary_expression", true, left.Range(), left.Range())
		n.AddChild(left, "left")
		n.AddChild(p.leaf(opTok, false), "operator")
		if right != nil {
			n.AddChild(right, "right")
			n.EndByte, n.EndPoint = right.EndByte, right.EndPoint
		}
		left = n
	}
}

func (p *Parser) parseLogicalOr() *cst.Node  { return p.parseBinary(p.parseLogicalAnd, "||") }
func (p *Parser) parseLogicalAnd() *cst.Node { return p.parseBinary(p.parseBitOr, "&&") }
func (p *Parser) parseBitOr() *cst.Node      { return p.parseBinary(p.parseBitXor, "|") }
func (p *Parser) parseBitXor() *cst.Node     { return p.parseBinary(p.parseBitAnd, "^") }
func (p *Parser) parseBitAnd() *cst.Node     { return p.parseBinary(p.parseEquality, "&") }

func (p *Parser) parseEquality() *cst.Node {
	return p.parseBinary(p.parseRelational, "==", "!=", "<=>")
}

func (p *Parser) parseRelational() *cst.Node {
	return p.parseBinary(p.parseShift, "<", ">", "<=", ">=", "instanceof", "in")
}

func (p *Parser) parseShift() *cst.Node {
	return p.parseBinary(p.parseAdditive, "<<", ">>", ">>>")
}

func (p *Parser) parseAdditive() *cst.Node {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *Parser) parseMultiplicative() *cst.Node {
	return p.parseBinary(p.parseUnary, "*", "/", "%")
}

var unaryOps = map[string]bool{
	"!": true, "~": true, "-": true, "++": true, "--": true,
}

func (p *Parser) parseUnary() *cst.Node {
	if unaryOps[p.cur().Text] && p.cur().Kind == TokSymbol {
		op := p.advance()
		operand := p.parseUnary()
		n := cst.NewNode("unary_expression", true, rangeOf(op), rangeOf(op))
		n.AddChild(p.leaf(op, false), "operator")
		if operand != nil {
			n.AddChild(operand, "operand")
			n.EndByte, n.EndPoint = operand.EndByte, operand.EndPoint
		}
		return n
	}
	if p.isKeyword("typeof") || p.isKeyword("clone") || p.isKeyword("delete") || p.isKeyword("resume") {
		kw := p.advance()
		kind := kw.Text + "_expression"
		operand := p.parseUnary()
		n := cst.NewNode(kind, true, rangeOf(kw), rangeOf(kw))
		if operand != nil {
			n.AddChild(operand, "operand")
			n.EndByte, n.EndPoint = operand.EndByte, operand.EndPoint
		}
		return n
	}
	return p.parsePostfix()
}

// parsePostfix handles call expressions, subscripting, member access
// (both `.` and `::`), and postfix `++`/`--`, all left-associatively
// chained off a primary expression.
func (p *Parser) parsePostfix() *cst.Node {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch {
		case p.is("("):
			expr = p.parseCall(expr)
		case p.is("["):
			open := p.advance()
			idx := p.parseExpression()
			n := cst.NewNode("subscript_expression", true, expr.Range(), rangeOf(open))
			n.AddChild(expr, "object")
			if idx != nil {
				n.AddChild(idx, "index")
			}
			if close, ok := p.accept("]"); ok {
				n.EndByte, n.EndPoint = close.EndByte, close.EndPoint
			}
			expr = n
		case p.is("."):
			p.advance()
			n := cst.NewNode("deref_expression", true, expr.Range(), expr.Range())
			n.AddChild(expr, "object")
			if p.cur().Kind == TokIdentifier {
				prop := p.advance()
				id := p.leaf(prop, true)
				id.Kind = "property_identifier"
				n.AddChild(id, "property")
				n.EndByte, n.EndPoint = id.EndByte, id.EndPoint
			}
			expr = n
		case p.is("::"):
			p.advance()
			n := cst.NewNode("global_variable", true, expr.Range(), expr.Range())
			n.AddChild(expr, "object")
			if p.cur().Kind == TokIdentifier {
				name := p.advance()
				id := p.leaf(name, true)
				id.Kind = "identifier"
				n.AddChild(id, "name")
				n.EndByte, n.EndPoint = id.EndByte, id.EndPoint
			}
			expr = n
		case p.is("++") || p.is("--"):
			op := p.advance()
			n := cst.NewNode("update_expression", true, expr.Range(), rangeOf(op))
			n.AddChild(expr, "operand")
			n.AddChild(p.leaf(op, false), "")
			expr = n
		default:
			return expr
		}
	}
}

func (p *Parser) parseCall(callee *cst.Node) *cst.Node {
	open := p.advance() // (
	n := cst.NewNode("call_expression", true, callee.Range(), rangeOf(open))
	n.AddChild(callee, "function")
	args := cst.NewNode("call_args", true, rangeOf(open), rangeOf(open))
	for !p.is(")") && !p.atEOF() {
		arg := p.parseExpression()
		if arg != nil {
			args.AddChild(arg, "")
		}
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	if close, ok := p.accept(")"); ok {
		args.EndByte, args.EndPoint = close.EndByte, close.EndPoint
		n.EndByte, n.EndPoint = close.EndByte, close.EndPoint
	}
	n.AddChild(args, "arguments")
	return n
}

// parsePrimary handles identifiers, literals, `::name` globals, table and
// array literals, parenthesized expressions, and anonymous
// function/lambda expressions.
func (p *Parser) parsePrimary() *cst.Node {
	switch {
	case p.is("::"):
		start := p.advance()
		n := cst.NewNode("global_variable", true, rangeOf(start), rangeOf(start))
		if p.cur().Kind == TokIdentifier {
			name := p.advance()
			id := p.leaf(name, true)
			id.Kind = "identifier"
			n.AddChild(id, "name")
			n.EndByte, n.EndPoint = id.EndByte, id.EndPoint
		}
		return n
	case p.cur().Kind == TokIdentifier:
		t := p.advance()
		n := p.leaf(t, true)
		n.Kind = "identifier"
		return n
	case p.cur().Kind == TokNumber:
		t := p.advance()
		n := p.leaf(t, true)
		n.Kind = "number"
		return n
	case p.cur().Kind == TokString:
		t := p.advance()
		n := p.leaf(t, true)
		n.Kind = "string_literal"
		return n
	case p.isKeyword("true") || p.isKeyword("false"):
		t := p.advance()
		n := p.leaf(t, true)
		n.Kind = "bool"
		return n
	case p.isKeyword("null"):
		t := p.advance()
		n := p.leaf(t, true)
		n.Kind = "null"
		return n
	case p.isKeyword("this") || p.isKeyword("base") || p.isKeyword("__LINE__") || p.isKeyword("__FILE__"):
		t := p.advance()
		n := p.leaf(t, true)
		n.Kind = "identifier"
		return n
	case p.is("{"):
		return p.parseTableBody("table")
	case p.is("["):
		return p.parseArrayLiteral()
	case p.is("("):
		p.advance()
		inner := p.parseExpression()
		p.accept(")")
		return inner
	case p.isKeyword("function"):
		return p.parseAnonymousFunction()
	case p.is("@") || p.cur().Text == "@":
		// Lambda shorthand `@(params) expr`, a squirrel extension some mods use.
		return p.parseLambda()
	default:
		return nil
	}
}

func (p *Parser) parseArrayLiteral() *cst.Node {
	open := p.advance() // [
	n := cst.NewNode("array", true, rangeOf(open), rangeOf(open))
	for !p.is("]") && !p.atEOF() {
		el := p.parseExpression()
		if el != nil {
			n.AddChild(el, "")
		}
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	if close, ok := p.accept("]"); ok {
		n.EndByte, n.EndPoint = close.EndByte, close.EndPoint
	}
	return n
}

func (p *Parser) parseAnonymousFunction() *cst.Node {
	kw := p.advance() // function
	n := cst.NewNode("anonymous_function", true, rangeOf(kw), rangeOf(kw))
	params := p.parseParameters()
	n.AddChild(params, "parameters")
	body := p.parseBlock()
	n.AddChild(body, "body")
	n.EndByte, n.EndPoint = body.EndByte, body.EndPoint
	return n
}

func (p *Parser) parseLambda() *cst.Node {
	at := p.advance() // @
	n := cst.NewNode("lambda_expression", true, rangeOf(at), rangeOf(at))
	params := p.parseParameters()
	n.AddChild(params, "parameters")
	body := p.parseExpression()
	if body != nil {
		n.AddChild(body, "body")
		n.EndByte, n.EndPoint = body.EndByte, body.EndPoint
	}
	return n
}
