// Package navigation answers go-to-definition, document-symbol, and
// workspace-symbol requests. It walks the cst.Tree the same
// way internal/workspace's extractors do, but for a single open document
// rather than the whole indexed tree.
package navigation

import (
	"sort"
	"strings"

	"github.com/mnshdw/squirrel-lsp/internal/cst"
	"github.com/mnshdw/squirrel-lsp/internal/posmap"
	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
	"github.com/mnshdw/squirrel-lsp/internal/workspace"
)

// SymbolKind mirrors the LSP SymbolKind values this package emits.
type SymbolKind int

const (
	KindVariable SymbolKind = 13
	KindFunction SymbolKind = 12
	KindMethod   SymbolKind = 6
	KindClass    SymbolKind = 5
	KindField    SymbolKind = 8
)

// Definition is the file/position a go-to-definition request resolves to.
type Definition struct {
	FilePath string
	Line     uint32
	Column   uint32
}

// symbolAtPosition classifies the token the cursor sits on so
// FindDefinition knows which lookup to run.
type symbolAtPosition int

const (
	symbolNone symbolAtPosition = iota
	symbolInheritParentPath
	symbolMethodCall
	symbolFunctionDeclaration
	symbolIdentifier
)

type resolvedSymbol struct {
	kind symbolAtPosition
	text string
}

// FindDefinition resolves the symbol under pos in text (a document
// belonging to currentScriptPath) against the workspace index.
func FindDefinition(text string, pos posmap.Position, currentScriptPath string, ws *workspace.Workspace) (Definition, bool) {
	mapper := posmap.New(text)
	byteOffset := mapper.ByteOffsetAt(pos)

	tree := sqlang.Parse(text)
	node := findDeepestNodeAt(tree.Root, byteOffset)
	if node == nil {
		return Definition{}, false
	}
	sym := classifyNode(node, text)

	switch sym.kind {
	case symbolInheritParentPath:
		normalized := strings.TrimSuffix(strings.TrimPrefix(sym.text, "scripts/"), ".nut")
		if entry, ok := ws.Get(normalized); ok {
			return Definition{FilePath: entry.FilePath, Line: 0, Column: 0}, true
		}
	case symbolMethodCall, symbolIdentifier:
		if currentScriptPath != "" {
			if loc, ok := ws.FindMethodDefinition(currentScriptPath, sym.text); ok {
				return Definition{FilePath: loc.FilePath, Line: loc.Line, Column: loc.Column}, true
			}
		}
		if locs := ws.FindMethodAnywhere(sym.text); len(locs) > 0 {
			return Definition{FilePath: locs[0].FilePath, Line: locs[0].Line, Column: locs[0].Column}, true
		}
	case symbolFunctionDeclaration, symbolNone:
		return Definition{}, false
	}
	return Definition{}, false
}

func findDeepestNodeAt(node *cst.Node, byteOffset int) *cst.Node {
	if byteOffset < int(node.StartByte) || byteOffset > int(node.EndByte) {
		return nil
	}
	for _, child := range node.Children {
		if deeper := findDeepestNodeAt(child, byteOffset); deeper != nil {
			return deeper
		}
	}
	return node
}

func classifyNode(node *cst.Node, source string) resolvedSymbol {
	switch node.Kind {
	case "string_literal":
		if isInsideInheritCall(node, source) {
			text := node.Text(source)
			text = strings.Trim(text, `"'`)
			return resolvedSymbol{kind: symbolInheritParentPath, text: text}
		}
		return resolvedSymbol{}
	case "identifier", "property_identifier":
		if parent := node.Parent(); parent != nil {
			switch parent.Kind {
			case "deref_expression", "call_expression":
				return resolvedSymbol{kind: symbolMethodCall, text: node.Text(source)}
			case "function_declaration":
				return resolvedSymbol{kind: symbolFunctionDeclaration}
			}
		}
		return resolvedSymbol{kind: symbolIdentifier, text: node.Text(source)}
	}
	return resolvedSymbol{}
}

func isInsideInheritCall(node *cst.Node, source string) bool {
	for current := node.Parent(); current != nil; current = current.Parent() {
		if current.Kind != "call_expression" {
			continue
		}
		fn := current.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		switch fn.Kind {
		case "identifier":
			if fn.Text(source) == "inherit" {
				return true
			}
		case "deref_expression":
			if prop := fn.ChildByFieldName("property"); prop != nil && prop.Text(source) == "inherit" {
				return true
			}
		}
	}
	return false
}

// DocumentSymbol is one entry in a textDocument/documentSymbol response.
type DocumentSymbol struct {
	Name     string
	Kind     SymbolKind
	Range    posmap.Range
	Children []DocumentSymbol
}

// DocumentSymbols lists the top-level declarations in text in source
// order, with class/global-table bodies expanded into Children.
func DocumentSymbols(text string) []DocumentSymbol {
	tree := sqlang.Parse(text)
	mapper := posmap.New(text)
	var out []DocumentSymbol
	for _, child := range tree.Root.Children {
		if sym, ok := extractSymbol(child, text, mapper); ok {
			out = append(out, sym)
		}
	}
	return out
}

func extractSymbol(node *cst.Node, source string, mapper *posmap.Mapper) (DocumentSymbol, bool) {
	switch node.Kind {
	case "update_expression", "assignment_expression":
		return extractAssignmentSymbol(node, source, mapper)
	case "function_declaration":
		name := functionName(node, source)
		if name == "" {
			return DocumentSymbol{}, false
		}
		return DocumentSymbol{Name: name, Kind: KindFunction, Range: mapper.RangeAt(int(node.StartByte), int(node.EndByte))}, true
	case "local_declaration":
		name := firstIdentifierText(node, source)
		if name == "" {
			return DocumentSymbol{}, false
		}
		return DocumentSymbol{Name: name, Kind: KindVariable, Range: mapper.RangeAt(int(node.StartByte), int(node.EndByte))}, true
	}
	return DocumentSymbol{}, false
}

func extractAssignmentSymbol(node *cst.Node, source string, mapper *posmap.Mapper) (DocumentSymbol, bool) {
	var name string
	var tableNode *cst.Node
	isClass := false

	for _, child := range node.Children {
		switch child.Kind {
		case "identifier", "deref_expression":
			if name == "" {
				name = identifierName(child, source)
			}
		case "call_expression":
			if isInheritCallExpression(child, source) {
				isClass = true
				if args := child.ChildByFieldName("arguments"); args != nil {
					for _, arg := range args.Children {
						if arg.Kind == "table" {
							tableNode = arg
							break
						}
					}
				}
			}
		case "table":
			tableNode = child
		}
	}
	if name == "" {
		return DocumentSymbol{}, false
	}

	rng := mapper.RangeAt(int(node.StartByte), int(node.EndByte))
	kind := KindVariable
	if isClass {
		kind = KindClass
	}
	var children []DocumentSymbol
	if tableNode != nil {
		children = extractTableMembers(tableNode, source, mapper)
	}
	return DocumentSymbol{Name: name, Kind: kind, Range: rng, Children: children}, true
}

func isInheritCallExpression(call *cst.Node, source string) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Text(source), "inherit")
}

func extractTableMembers(node *cst.Node, source string, mapper *posmap.Mapper) []DocumentSymbol {
	var members []DocumentSymbol
	for _, child := range node.Children {
		switch child.Kind {
		case "function_declaration":
			name := functionName(child, source)
			if name != "" {
				members = append(members, DocumentSymbol{Name: name, Kind: KindMethod, Range: mapper.RangeAt(int(child.StartByte), int(child.EndByte))})
			}
		case "table_slot":
			key := child.ChildByFieldName("key")
			value := child.ChildByFieldName("value")
			isFunction := value != nil && (value.Kind == "lambda_expression" || value.Kind == "anonymous_function")
			if key != nil && isFunction {
				members = append(members, DocumentSymbol{Name: key.Text(source), Kind: KindMethod, Range: mapper.RangeAt(int(child.StartByte), int(child.EndByte))})
				continue
			}
			for _, slotChild := range child.Children {
				if slotChild.Kind == "function_declaration" {
					name := functionName(slotChild, source)
					if name != "" {
						members = append(members, DocumentSymbol{Name: name, Kind: KindMethod, Range: mapper.RangeAt(int(slotChild.StartByte), int(slotChild.EndByte))})
					}
				}
			}
		case "assignment_expression":
			var name string
			var hasTable bool
			for _, c := range child.Children {
				if c.Kind == "identifier" && name == "" {
					name = c.Text(source)
				} else if c.Kind == "table" {
					hasTable = true
				}
			}
			if name != "" && hasTable {
				members = append(members, DocumentSymbol{Name: name, Kind: KindField, Range: mapper.RangeAt(int(child.StartByte), int(child.EndByte))})
			}
		default:
			members = append(members, extractTableMembers(child, source, mapper)...)
		}
	}
	return members
}

func functionName(n *cst.Node, source string) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Text(source)
	}
	return firstIdentifierText(n, source)
}

func firstIdentifierText(n *cst.Node, source string) string {
	for _, c := range n.Children {
		if c.Kind == "identifier" {
			return c.Text(source)
		}
	}
	return ""
}

func identifierName(n *cst.Node, source string) string {
	if n.Kind == "identifier" {
		return n.Text(source)
	}
	if prop := n.ChildByFieldName("property"); prop != nil {
		return prop.Text(source)
	}
	return firstIdentifierText(n, source)
}

// WorkspaceSymbol is one entry in a workspace/symbol response.
type WorkspaceSymbol struct {
	Name          string
	Kind          SymbolKind
	FilePath      string
	Line, Column  uint32
	ContainerName string
}

// WorkspaceSymbols finds every indexed file and member whose name
// contains query (case-insensitive), ranked by how early the match
// occurs and then alphabetically.
func WorkspaceSymbols(query string, ws *workspace.Workspace) []WorkspaceSymbol {
	needle := strings.ToLower(query)
	var out []WorkspaceSymbol
	for pair := ws.Files().Oldest(); pair != nil; pair = pair.Next() {
		entry := pair.Value
		if strings.Contains(strings.ToLower(entry.Name), needle) {
			out = append(out, WorkspaceSymbol{
				Name: entry.Name, Kind: KindClass, FilePath: entry.FilePath,
				ContainerName: entry.ScriptPath,
			})
		}
		for _, m := range entry.Members {
			if !strings.Contains(strings.ToLower(m.Name), needle) {
				continue
			}
			kind := KindField
			if m.MemberType == workspace.MemberMethod {
				kind = KindMethod
			}
			out = append(out, WorkspaceSymbol{
				Name: m.Name, Kind: kind, FilePath: entry.FilePath,
				Line: m.Line, Column: m.Column, ContainerName: entry.Name,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi := strings.Index(strings.ToLower(out[i].Name), needle)
		pj := strings.Index(strings.ToLower(out[j].Name), needle)
		if pi != pj {
			return pi < pj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
