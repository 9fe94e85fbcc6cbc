package workspace

import "github.com/mnshdw/squirrel-lsp/internal/cst"

// InheritCall describes one `name <- inherit("parent/path", { ... })` (or
// `this.name <- this.inherit(...)`) assignment found in a file.
type InheritCall struct {
	ClassName  string
	ParentPath string
	ClassBody  *cst.Node
}

// findFirstInheritCall walks the tree depth-first and returns the first
// inherit() assignment it finds, in source order, mirroring the
// reference indexer's "first inherit call wins" rule for a file (a
// script defines at most one class).
func findFirstInheritCall(root *cst.Node, source string) (InheritCall, bool) {
	var found InheritCall
	var ok bool
	cst.Walk(root, func(n *cst.Node) bool {
		if ok {
			return false
		}
		if n.Kind != "update_expression" {
			return true
		}
		if call, good := parseInheritUpdate(n, source); good {
			found, ok = call, true
			return false
		}
		return true
	})
	return found, ok
}

func parseInheritUpdate(n *cst.Node, source string) (InheritCall, bool) {
	hasNewSlot := false
	className := ""
	var callExpr *cst.Node
	for _, c := range n.Children {
		switch {
		case c.Kind == "<-":
			hasNewSlot = true
		case className == "" && c.Kind == "identifier":
			className = c.Text(source)
		case className == "" && c.Kind == "deref_expression":
			// `this.name <- ...`: the property being assigned is the class name.
			if prop := c.ChildByFieldName("property"); prop != nil {
				className = prop.Text(source)
			}
		case c.Kind == "call_expression":
			callExpr = c
		}
	}
	if !hasNewSlot || className == "" || callExpr == nil {
		return InheritCall{}, false
	}

	funcName := callExpressionName(callExpr, source)
	if funcName != "inherit" {
		return InheritCall{}, false
	}

	args := callExpr.ChildByFieldName("arguments")
	if args == nil {
		return InheritCall{}, false
	}
	named := args.NamedChildren()
	if len(named) < 2 {
		return InheritCall{}, false
	}
	parentPath, ok := stringLiteralValue(named[0], source)
	if !ok {
		return InheritCall{}, false
	}
	return InheritCall{ClassName: className, ParentPath: parentPath, ClassBody: named[1]}, true
}

// callExpressionName returns the identifier naming the called function,
// whether the callee is a bare identifier (`inherit(...)`) or a member
// access (`this.inherit(...)`, where the property is what matters).
func callExpressionName(callExpr *cst.Node, source string) string {
	fn := callExpr.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind {
	case "identifier":
		return fn.Text(source)
	case "deref_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return prop.Text(source)
		}
	}
	return ""
}

// stringLiteralValue extracts the content of a string_literal node,
// stripping its surrounding quotes.
func stringLiteralValue(n *cst.Node, source string) (string, bool) {
	if n == nil || n.Kind != "string_literal" {
		return "", false
	}
	text := n.Text(source)
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0] {
		return text[1 : len(text)-1], true
	}
	return text, true
}

// findGlobalTable looks for a `name <- { ... }` assignment at file scope
// or inside ERROR nodes (so syntax extensions this parser doesn't fully
// understand still let the surrounding file get indexed) where name
// matches fileStem. Other nested nodes are not searched.
func findGlobalTable(root *cst.Node, source, fileStem string) (string, *cst.Node, bool) {
	var name string
	var table *cst.Node
	var found bool
	var walk func(n *cst.Node)
	walk = func(n *cst.Node) {
		if found {
			return
		}
		for _, c := range n.Children {
			if found {
				return
			}
			if c.Kind == "update_expression" {
				hasNewSlot := false
				var ident string
				var tbl *cst.Node
				for _, gc := range c.Children {
					switch gc.Kind {
					case "<-":
						hasNewSlot = true
					case "identifier":
						if ident == "" {
							ident = gc.Text(source)
						}
					case "table":
						tbl = gc
					}
				}
				if hasNewSlot && ident == fileStem && tbl != nil {
					name, table, found = ident, tbl, true
					return
				}
			} else if c.Kind == cst.KindError {
				walk(c)
			}
		}
	}
	walk(root)
	return name, table, found
}

// extractMembersFromTable recursively collects method members from a
// table or class body: `function name() {}` declarations, `key = function
// () {}` table slots, and the `function name() {}` shorthand nested
// inside a table slot.
func extractMembersFromTable(node *cst.Node, source string) []MemberInfo {
	var members []MemberInfo
	for _, child := range node.Children {
		switch child.Kind {
		case "function_declaration":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				members = append(members, memberFrom(nameNode, source))
			} else if id := firstNamedChildOfKind(child, "identifier"); id != nil {
				members = append(members, memberFrom(id, source))
			}
		case "table_slot":
			if key := child.ChildByFieldName("key"); key != nil {
				val := child.ChildByFieldName("value")
				if val != nil && (val.Kind == "lambda_expression" || val.Kind == "anonymous_function" || val.Kind == "function_declaration") {
					members = append(members, memberFrom(key, source))
				}
			} else {
				for _, slotChild := range child.Children {
					if slotChild.Kind == "function_declaration" {
						if nameNode := slotChild.ChildByFieldName("name"); nameNode != nil {
							members = append(members, memberFrom(nameNode, source))
						} else if id := firstNamedChildOfKind(slotChild, "identifier"); id != nil {
							members = append(members, memberFrom(id, source))
						}
					}
				}
			}
		default:
			members = append(members, extractMembersFromTable(child, source)...)
		}
	}
	return members
}

func memberFrom(n *cst.Node, source string) MemberInfo {
	return MemberInfo{
		Name:       n.Text(source),
		MemberType: MemberMethod,
		Line:       n.StartPoint.Row,
		Column:     n.StartPoint.Column,
	}
}

func firstNamedChildOfKind(n *cst.Node, kind string) *cst.Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// extractGlobals finds every `name <- value` assignment at file scope
// (direct children of the program root) — these are the identifiers the
// symbol resolver treats as always-declared. It returns names rather than
// registering them directly so a cache hit can replay the same globals
// without reparsing.
func extractGlobals(root *cst.Node, source string) []string {
	var names []string
	for _, child := range root.Children {
		if child.Kind != "update_expression" {
			continue
		}
		hasNewSlot := false
		var name string
		for _, n := range child.Children {
			switch n.Kind {
			case "<-":
				hasNewSlot = true
			case "identifier":
				if name == "" {
					name = n.Text(source)
				}
			}
		}
		if hasNewSlot && name != "" {
			names = append(names, name)
		}
	}
	return names
}
