// Package resolver walks a parsed file's scope structure to find
// undeclared references and unused declarations.
package resolver

import (
	"github.com/emirpasic/gods/sets/hashset"

	"github.com/mnshdw/squirrel-lsp/internal/cst"
	"github.com/mnshdw/squirrel-lsp/internal/posmap"
)

// Severity mirrors the LSP DiagnosticSeverity levels this package emits.
type Severity int

const (
	SeverityError Severity = 1
	SeverityWarning Severity = 2
	SeverityHint    Severity = 4
)

// Diagnostic is one resolver finding, already in LSP-range coordinates.
type Diagnostic struct {
	Range    posmap.Range
	Severity Severity
	Message  string
	Unnecessary bool // maps to DiagnosticTag.Unnecessary, for unused declarations
}

// builtins is the fixed set of identifiers the resolver never flags as
// undeclared: the scripting language's own standard library plus the
// modding framework's ambient names. Deciding this set was this
// see DESIGN.md for how this list was decided.
var builtins = hashset.New(
	"array", "assert", "callee", "clone",
	"collectgarbage", "compilestring", "enabledebuginfo",
	"error", "format", "getconsttable", "getroottable",
	"getstackinfos", "newthread", "print", "regexp",
	"resurrectunreachable", "setconsttable", "setdebughook",
	"seterrorhandler", "setroottable", "suspend",
	"throw", "type", "typeof",
	"this", "base", "Math", "inherit",
)

type declKind int

const (
	declParameter declKind = iota
	declLocal
	declLoopVariable
	declCatchVariable
)

type declaration struct {
	name  string
	node  *cst.Node
	kind  declKind
}

// scope is the per-block symbol table. It mirrors the reference
// resolver's ResolverContext: a clone-on-entry set of visible locals, the
// declarations made directly in this scope (for unused reporting), the
// names referenced in this scope, and whether this scope is inside an
// inherit() class-body table (which suppresses "undeclared" for call
// expressions, since those may resolve to a parent class method).
type scope struct {
	locals     *hashset.Set
	decls      []declaration
	references *hashset.Set
	hasParent  bool
}

func newScope() *scope {
	return &scope{locals: hashset.New(), references: hashset.New()}
}

func (s *scope) addDeclaration(name string, node *cst.Node, kind declKind) {
	s.locals.Add(name)
	s.decls = append(s.decls, declaration{name: name, node: node, kind: kind})
}

func (s *scope) recordReference(name string) { s.references.Add(name) }

// mergeReferences propagates a child scope's references for names that
// are visible in this (parent) scope — this is how a closure using an
// outer local keeps that local marked "used" in the enclosing function.
func (s *scope) mergeReferences(child *scope) {
	for _, name := range child.references.Values() {
		if s.locals.Contains(name) {
			s.references.Add(name)
		}
	}
}

func (s *scope) child() *scope {
	c := newScope()
	for _, k := range s.locals.Values() {
		c.locals.Add(k)
	}
	c.hasParent = s.hasParent
	return c
}

// Resolver analyzes one parsed file's identifier usage.
type Resolver struct {
	source       string
	mapper       *posmap.Mapper
	knownGlobals map[string]bool
	diagnostics  []Diagnostic
}

// New creates a Resolver. knownGlobals is the workspace's set of
// file-scope `name <- value` registrations across the whole mod, checked
// after locals and before reporting "undeclared" (nil is treated as
// empty).
func New(source string, knownGlobals map[string]bool) *Resolver {
	return &Resolver{source: source, mapper: posmap.New(source), knownGlobals: knownGlobals}
}

// Analyze walks tree and returns every undeclared-reference and
// unused-declaration diagnostic found.
func Analyze(tree *cst.Tree, knownGlobals map[string]bool) []Diagnostic {
	r := New(tree.Source, knownGlobals)
	root := newScope()

	// Pre-pass: every file-level declaration is visible throughout the
	// file, including to code written above it — matching how a table
	// literal's sibling methods can already call each other regardless
	// of source order.
	for _, child := range tree.Root.Children {
		r.seedFileLevelName(child, root)
	}

	r.analyzeStatements(tree.Root.Children, root)
	r.reportUnused(root)
	return r.diagnostics
}

func (r *Resolver) seedFileLevelName(n *cst.Node, s *scope) {
	switch n.Kind {
	case "function_declaration", "class_declaration":
		if id := firstIdentifier(n); id != nil {
			s.locals.Add(id.Text(r.source))
		}
	case "local_declaration", "const_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			s.locals.Add(name.Text(r.source))
		}
	}
}

func (r *Resolver) pos(n *cst.Node) posmap.Range {
	return r.mapper.RangeAt(int(n.StartByte), int(n.EndByte))
}

// analyzeStatements walks a sequence of sibling statements, handling the
// declaration-introducing kinds specially so later siblings see earlier
// declarations, following the scope-stack model the whole package uses.
func (r *Resolver) analyzeStatements(stmts []*cst.Node, ctx *scope) {
	for _, child := range stmts {
		switch child.Kind {
		case "local_declaration", "const_declaration":
			if name := child.ChildByFieldName("name"); name != nil {
				ctx.addDeclaration(name.Text(r.source), name, declLocal)
			}
			r.analyzeDeclarationValue(child, ctx)
		case "local_declaration_list":
			r.analyzeStatements(child.Children, ctx)
		case "function_declaration":
			if id := firstIdentifier(child); id != nil {
				ctx.locals.Add(id.Text(r.source))
			}
			r.analyzeFunction(child, ctx)
		case "class_declaration":
			if id := firstIdentifier(child); id != nil {
				ctx.locals.Add(id.Text(r.source))
			}
			r.analyzeClass(child, ctx)
		case "for_statement":
			r.analyzeFor(child, ctx)
		case "foreach_statement":
			r.analyzeForeach(child, ctx)
		case "try_statement":
			r.analyzeTry(child, ctx)
		default:
			r.analyzeNode(child, ctx)
		}
	}
}

// analyzeDeclarationValue analyzes everything in a local/const
// declaration except the declared name itself.
func (r *Resolver) analyzeDeclarationValue(n *cst.Node, ctx *scope) {
	if val := n.ChildByFieldName("value"); val != nil {
		r.analyzeNode(val, ctx)
	}
}

// analyzeNode dispatches on node kind, recursing into children for
// anything it doesn't special-case.
func (r *Resolver) analyzeNode(n *cst.Node, ctx *scope) {
	switch n.Kind {
	case "function_declaration", "lambda_expression", "anonymous_function":
		r.analyzeFunction(n, ctx)
		return
	case "table":
		r.analyzeTable(n, ctx, false)
		return
	case "class_declaration":
		r.analyzeClass(n, ctx)
		return
	case "block":
		r.analyzeBlockAsScope(n, ctx)
		return
	case "for_statement":
		r.analyzeFor(n, ctx)
		return
	case "foreach_statement":
		r.analyzeForeach(n, ctx)
		return
	case "try_statement":
		r.analyzeTry(n, ctx)
		return
	case "call_expression":
		if r.isInheritCall(n) {
			r.analyzeInheritCall(n, ctx)
			return
		}
	case "local_declaration", "const_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			ctx.addDeclaration(name.Text(r.source), name, declLocal)
		}
		r.analyzeDeclarationValue(n, ctx)
		return
	case "identifier":
		r.checkIdentifier(n, ctx)
		return
	}
	for _, c := range n.Children {
		r.analyzeNode(c, ctx)
	}
}

func (r *Resolver) analyzeFunction(n *cst.Node, parent *scope) {
	ctx := parent.child()
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range params.Children {
			if p.Kind != "parameter_declaration" {
				continue
			}
			if id := p.ChildByFieldName("name"); id != nil {
				ctx.addDeclaration(id.Text(r.source), id, declParameter)
			}
			if def := p.ChildByFieldName("default"); def != nil {
				r.analyzeNode(def, ctx)
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		r.analyzeStatements(body.Children, ctx)
	} else if n.Kind == "lambda_expression" {
		// An expression-bodied lambda: every child but the parameter list.
		for _, c := range n.Children {
			if c.Kind == "parameters" {
				continue
			}
			r.analyzeNode(c, ctx)
		}
	}
	parent.mergeReferences(ctx)
	r.reportUnused(ctx)
}

// analyzeBlockAsScope analyzes a block that introduces its own scope
// (if/while bodies, bare blocks and try bodies). A function's own body is
// not one of these: analyzeFunction handles that case directly so
// parameters and body share one scope, and analyzeFor does the same for
// for/foreach bodies.
func (r *Resolver) analyzeBlockAsScope(n *cst.Node, parent *scope) {
	ctx := parent.child()
	r.analyzeStatements(n.Children, ctx)
	r.reportUnused(ctx)
	parent.mergeReferences(ctx)
}

func (r *Resolver) analyzeTable(n *cst.Node, parent *scope, fromInherit bool) {
	ctx := parent.child()
	if fromInherit {
		ctx.hasParent = true
	}
	for _, slot := range n.Children {
		if name := slotName(slot, r.source); name != "" {
			ctx.locals.Add(name)
		}
	}
	for _, slot := range n.Children {
		r.analyzeTableSlot(slot, ctx)
	}
}

func (r *Resolver) analyzeTableSlot(n *cst.Node, ctx *scope) {
	slotCtx := ctx.child()
	switch n.Kind {
	case "function_declaration":
		r.analyzeFunction(n, slotCtx)
	case "table_slot":
		if val := n.ChildByFieldName("value"); val != nil {
			r.analyzeNode(val, slotCtx)
		}
	}
}

func (r *Resolver) analyzeClass(n *cst.Node, parent *scope) {
	ctx := parent.child()
	ctx.hasParent = n.ChildByFieldName("base") != nil
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, m := range body.Children {
		if name := slotName(m, r.source); name != "" {
			ctx.locals.Add(name)
		}
	}
	for _, m := range body.Children {
		r.analyzeTableSlot(m, ctx)
	}
}

func (r *Resolver) analyzeInheritCall(n *cst.Node, parent *scope) {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for _, arg := range args.Children {
		if !arg.IsNamed {
			continue
		}
		if arg.Kind == "table" {
			r.analyzeTable(arg, parent, true)
		} else {
			r.analyzeNode(arg, parent)
		}
	}
}

func (r *Resolver) analyzeFor(n *cst.Node, parent *scope) {
	ctx := parent.child()
	if init := n.ChildByFieldName("init"); init != nil && init.Kind == "local_declaration" {
		if name := init.ChildByFieldName("name"); name != nil {
			ctx.addDeclaration(name.Text(r.source), name, declLoopVariable)
		}
		if val := init.ChildByFieldName("value"); val != nil {
			r.analyzeNode(val, ctx)
		}
	} else if init != nil {
		r.analyzeNode(init, ctx)
	}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		r.analyzeNode(cond, ctx)
	}
	if upd := n.ChildByFieldName("update"); upd != nil {
		r.analyzeNode(upd, ctx)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Kind == "block" {
			r.analyzeStatements(body.Children, ctx)
		} else {
			r.analyzeNode(body, ctx)
		}
	}
	r.reportUnused(ctx)
	parent.mergeReferences(ctx)
}

func (r *Resolver) analyzeForeach(n *cst.Node, parent *scope) {
	ctx := parent.child()
	if key := n.ChildByFieldName("key"); key != nil {
		ctx.addDeclaration(key.Text(r.source), key, declLoopVariable)
	}
	if val := n.ChildByFieldName("value"); val != nil {
		ctx.addDeclaration(val.Text(r.source), val, declLoopVariable)
	}
	if coll := n.ChildByFieldName("collection"); coll != nil {
		r.analyzeNode(coll, ctx)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Kind == "block" {
			r.analyzeStatements(body.Children, ctx)
		} else {
			r.analyzeNode(body, ctx)
		}
	}
	r.reportUnused(ctx)
	parent.mergeReferences(ctx)
}

func (r *Resolver) analyzeTry(n *cst.Node, ctx *scope) {
	if body := n.ChildByFieldName("body"); body != nil {
		r.analyzeBlockAsScope(body, ctx)
	}
	if body := n.ChildByFieldName("catch_body"); body != nil {
		catchCtx := ctx.child()
		if param := n.ChildByFieldName("catch_parameter"); param != nil {
			catchCtx.addDeclaration(param.Text(r.source), param, declCatchVariable)
		}
		r.analyzeStatements(body.Children, catchCtx)
		r.reportUnused(catchCtx)
		ctx.mergeReferences(catchCtx)
	}
}

func (r *Resolver) checkIdentifier(n *cst.Node, ctx *scope) {
	if r.shouldSkipIdentifier(n) {
		return
	}
	name := n.Text(r.source)
	if builtins.Contains(name) {
		return
	}
	if ctx.locals.Contains(name) {
		ctx.recordReference(name)
		return
	}
	if r.knownGlobals[name] {
		return
	}
	if ctx.hasParent && r.isFunctionCallCallee(n) {
		return
	}
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Range:    r.pos(n),
		Severity: SeverityError,
		Message:  "Undeclared variable '" + name + "'",
	})
}

// shouldSkipIdentifier reports whether node is an identifier occurrence
// that names a declaration (rather than referencing one) and so should
// never be checked: the name slot of a local/const/function/class
// declaration or parameter, or the left side of a `name <- value`
// new-slot assignment.
func (r *Resolver) shouldSkipIdentifier(n *cst.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind {
	case "local_declaration", "const_declaration", "function_declaration",
		"class_declaration", "parameter_declaration":
		if name := parent.ChildByFieldName("name"); name == n {
			return true
		}
	case "update_expression":
		isFirstIdentifier := false
		hasNewSlot := false
		for _, c := range parent.Children {
			if c.Kind == "identifier" && !isFirstIdentifier {
				isFirstIdentifier = c == n
			}
			if c.Kind == "<-" {
				hasNewSlot = true
			}
		}
		if isFirstIdentifier && hasNewSlot {
			return true
		}
	}
	return false
}

func (r *Resolver) isFunctionCallCallee(n *cst.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Kind == "call_expression" && parent.ChildByFieldName("function") == n
}

func (r *Resolver) isInheritCall(n *cst.Node) bool {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	switch fn.Kind {
	case "identifier":
		return fn.Text(r.source) == "inherit"
	case "deref_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return prop.Text(r.source) == "inherit"
		}
	}
	return false
}

func (r *Resolver) reportUnused(ctx *scope) {
	for _, d := range ctx.decls {
		if ctx.references.Contains(d.name) {
			continue
		}
		sev := SeverityWarning
		if d.kind == declParameter {
			sev = SeverityHint
		}
		r.diagnostics = append(r.diagnostics, Diagnostic{
			Range:       r.pos(d.node),
			Severity:    sev,
			Message:     "Unused variable '" + d.name + "'",
			Unnecessary: true,
		})
	}
}

func firstIdentifier(n *cst.Node) *cst.Node {
	if name := n.ChildByFieldName("name"); name != nil {
		return name
	}
	for _, c := range n.Children {
		if c.Kind == "identifier" {
			return c
		}
	}
	return nil
}

// slotName returns the member name a table_slot or function_declaration
// child introduces, or "" if it isn't a name-introducing member.
func slotName(n *cst.Node, source string) string {
	switch n.Kind {
	case "function_declaration":
		if id := firstIdentifier(n); id != nil {
			return id.Text(source)
		}
	case "table_slot":
		if key := n.ChildByFieldName("key"); key != nil && key.Kind == "identifier" {
			return key.Text(source)
		}
	}
	return ""
}
