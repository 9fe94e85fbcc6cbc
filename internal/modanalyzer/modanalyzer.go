// Package modanalyzer validates inheritance and hook-function usage
// against the workspace index.
package modanalyzer

import (
	"fmt"

	"github.com/mnshdw/squirrel-lsp/internal/cst"
	"github.com/mnshdw/squirrel-lsp/internal/posmap"
	"github.com/mnshdw/squirrel-lsp/internal/workspace"
)

// Severity mirrors the LSP DiagnosticSeverity levels this package emits.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
)

// Diagnostic is one mod-analysis finding.
type Diagnostic struct {
	Range    posmap.Range
	Severity Severity
	Message  string
	Code     string
}

// HookKind classifies a recognized hook-registration call by how broadly
// it applies to a class hierarchy.
type HookKind int

const (
	HookExact HookKind = iota
	HookBase
	HookDescendants
	HookTree
	HookNewObject
	HookNewObjectOnce
)

// HookSpec names one hook-registration function and the HookKind it
// represents. The analyzer is constructed with a table of these rather
// than a hardcoded switch, so framework-specific hook kinds can be added
// by configuration instead of a code change.
type HookSpec struct {
	FunctionName string
	Kind         HookKind
}

// DefaultHookSpecs is the hook-function vocabulary this modding
// ecosystem's framework recognizes out of the box.
var DefaultHookSpecs = []HookSpec{
	{"mods_hookExactClass", HookExact},
	{"mods_hookBaseClass", HookBase},
	{"mods_hookDescendants", HookDescendants},
	{"hookTree", HookTree}, // matched via ModHook.hookTree's property name
	{"mods_hookNewObject", HookNewObject},
	{"mods_hookNewObjectOnce", HookNewObjectOnce},
}

// Analyzer validates hook calls and inheritance declarations found in one
// file against a workspace index.
type Analyzer struct {
	ws        *workspace.Workspace
	hookSpecs []HookSpec
}

// New creates an Analyzer backed by ws, using specs to recognize hook
// calls (nil uses DefaultHookSpecs).
func New(ws *workspace.Workspace, specs []HookSpec) *Analyzer {
	if specs == nil {
		specs = DefaultHookSpecs
	}
	return &Analyzer{ws: ws, hookSpecs: specs}
}

func (a *Analyzer) specFor(funcName string) (HookSpec, bool) {
	for _, s := range a.hookSpecs {
		if s.FunctionName == funcName {
			return s, true
		}
	}
	return HookSpec{}, false
}

// hookCall is one recognized hook-registration invocation.
type hookCall struct {
	node           *cst.Node
	kind           HookKind
	targetPath     string
	targetPathNode *cst.Node
	hookFunction   *cst.Node
}

// AnalyzeInheritance checks the given file's parent-path declaration (if
// any) against the workspace, and reports circular inheritance.
func (a *Analyzer) AnalyzeInheritance(scriptPath string, mapper *posmap.Mapper) []Diagnostic {
	var diags []Diagnostic
	entry, ok := a.ws.Get(scriptPath)
	if !ok || entry.ParentPath == "" {
		return diags
	}
	if !a.ws.Contains(entry.ParentPath) {
		msg := fmt.Sprintf("Parent path '%s' not found", entry.ParentPath)
		if suggestions := a.ws.FindSimilarPaths(entry.ParentPath); len(suggestions) > 0 {
			msg += ". Did you mean: " + joinComma(suggestions) + "?"
		}
		diags = append(diags, Diagnostic{Severity: SeverityError, Message: msg, Code: "parent-path-not-found"})
		return diags
	}
	// Circular inheritance: if walking ancestors from the resolved parent
	// ever comes back to scriptPath itself.
	for _, ancestor := range a.ws.GetAncestors(scriptPath) {
		if ancestor.ScriptPath == scriptPath {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("Circular inheritance detected involving '%s'", scriptPath),
				Code:     "circular-inheritance",
			})
			break
		}
	}
	return diags
}

// AnalyzeHooks finds every recognized hook call in tree and validates its
// target path, the member accesses inside its handler function, and
// whether its hook kind is well-suited to the target class's place in
// the inheritance tree.
func (a *Analyzer) AnalyzeHooks(tree *cst.Tree, mapper *posmap.Mapper) []Diagnostic {
	var diags []Diagnostic
	for _, hook := range a.findHookCalls(tree.Root, tree.Source) {
		diags = append(diags, a.validateHookPath(hook, tree.Source, mapper)...)
		diags = append(diags, a.validateHookMethods(hook, tree.Source, mapper)...)
		diags = append(diags, a.validateHookType(hook, mapper)...)
	}
	return diags
}

func (a *Analyzer) findHookCalls(root *cst.Node, source string) []hookCall {
	var calls []hookCall
	cst.Walk(root, func(n *cst.Node) bool {
		if n.Kind != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		funcName := hookFunctionName(fn, source)
		spec, ok := a.specFor(funcName)
		if !ok {
			return true
		}
		args := n.ChildByFieldName("arguments")
		if args == nil {
			return true
		}
		named := args.NamedChildren()
		if len(named) < 2 {
			return true
		}
		targetPath, ok := stringLiteralValue(named[0], source)
		if !ok {
			return true
		}
		calls = append(calls, hookCall{
			node: n, kind: spec.Kind, targetPath: targetPath,
			targetPathNode: named[0], hookFunction: named[1],
		})
		return true
	})
	return calls
}

// hookFunctionName extracts the identifier naming the called function: a
// bare identifier, the identifier under a `::name` global_variable, or
// the property name of a `Thing.name` deref_expression (for
// `ModHook.hookTree`).
func hookFunctionName(fn *cst.Node, source string) string {
	switch fn.Kind {
	case "identifier":
		return fn.Text(source)
	case "global_variable":
		if name := fn.ChildByFieldName("name"); name != nil {
			return name.Text(source)
		}
	case "deref_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return prop.Text(source)
		}
	}
	return ""
}

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

func (a *Analyzer) validateHookPath(hook hookCall, source string, mapper *posmap.Mapper) []Diagnostic {
	if a.ws.Contains(hook.targetPath) {
		return nil
	}
	msg := fmt.Sprintf("Class path '%s' not found", hook.targetPath)
	if suggestions := a.ws.FindSimilarPaths(hook.targetPath); len(suggestions) > 0 {
		msg += ". Did you mean: " + joinComma(suggestions) + "?"
	}
	return []Diagnostic{{
		Range:    mapper.RangeAt(int(hook.targetPathNode.StartByte), int(hook.targetPathNode.EndByte)),
		Severity: SeverityError,
		Message:  msg,
		Code:     "hook-path-not-found",
	}}
}

// memberAccess is a `base.member` pattern found inside a hook handler.
type memberAccess struct {
	base       string
	memberName string
	memberNode *cst.Node
}

func findMemberAccesses(node *cst.Node, source string) []memberAccess {
	var out []memberAccess
	cst.Walk(node, func(n *cst.Node) bool {
		if n.Kind != "deref_expression" {
			return true
		}
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj != nil && obj.Kind == "identifier" && prop != nil {
			out = append(out, memberAccess{base: obj.Text(source), memberName: prop.Text(source), memberNode: prop})
		}
		return true
	})
	return out
}

func (a *Analyzer) validateHookMethods(hook hookCall, source string, mapper *posmap.Mapper) []Diagnostic {
	if !a.ws.Contains(hook.targetPath) {
		return nil // already reported by validateHookPath
	}
	var diags []Diagnostic
	for _, access := range findMemberAccesses(hook.hookFunction, source) {
		// Heuristic: a single-letter base (o, q, ...) is the hook
		// parameter, per how the framework's hook handlers are written.
		if len([]rune(access.base)) != 1 {
			continue
		}
		if access.memberName == "SuperName" {
			continue
		}
		if a.ws.HasMethod(hook.targetPath, access.memberName) {
			continue
		}
		msg := fmt.Sprintf("Method '%s' not found in class '%s' or its ancestors", access.memberName, hook.targetPath)
		if suggestions := a.ws.FindSimilarMethods(hook.targetPath, access.memberName); len(suggestions) > 0 {
			msg += ". Did you mean: " + joinComma(suggestions) + "?"
		}
		diags = append(diags, Diagnostic{
			Range:    mapper.RangeAt(int(access.memberNode.StartByte), int(access.memberNode.EndByte)),
			Severity: SeverityError,
			Message:  msg,
			Code:     "method-not-found",
		})
	}
	return diags
}

func (a *Analyzer) validateHookType(hook hookCall, mapper *posmap.Mapper) []Diagnostic {
	entry, ok := a.ws.Get(hook.targetPath)
	if !ok {
		return nil
	}
	hasChildren := len(entry.Children) > 0
	rng := mapper.RangeAt(int(hook.node.StartByte), int(hook.node.EndByte))
	switch {
	case hook.kind == HookExact && hasChildren:
		return []Diagnostic{{
			Range:    rng,
			Severity: SeverityWarning,
			Message: fmt.Sprintf(
				"Using 'hookExactClass' on '%s' which has %d descendant(s). Consider 'hookBaseClass' to affect all descendants.",
				entry.Name, len(entry.Children)),
			Code: "hook-type-suggestion",
		}}
	case hook.kind == HookDescendants && !hasChildren:
		return []Diagnostic{{
			Range:    rng,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Using 'hookDescendants' on '%s' which has no descendants. Consider 'hookExactClass'.", entry.Name),
			Code:     "hook-type-no-descendants",
		}}
	}
	return nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
