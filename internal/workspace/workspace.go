// Package workspace indexes script files by script path, making lookups
// fast for hook validation and inheritance resolution.
//
// A script path is relative to a "scripts/" directory and has no ".nut"
// suffix, e.g. "entity/tactical/actor" for
// ".../scripts/entity/tactical/actor.nut".
package workspace

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/time/rate"

	"github.com/mnshdw/squirrel-lsp/internal/cst"
	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
)

// MemberType classifies a class member. Only methods are tracked today;
// the type exists so fields/properties can be added later without
// changing every call site that switches on it.
type MemberType int

const (
	MemberMethod MemberType = iota
)

// MemberInfo describes one method defined directly in a file.
type MemberInfo struct {
	Name       string
	MemberType MemberType
	Line       uint32
	Column     uint32
}

// FileEntry is one indexed script file.
type FileEntry struct {
	FilePath   string
	ScriptPath string
	Name       string
	ParentPath string // as written in source, before normalization; "" if none
	Parent     string // resolved script path of the parent, set by RebuildInheritanceGraph
	Children   []string
	Members    []MemberInfo
}

// Workspace is the script-path-indexed view of a mod's source tree.
// Iteration order over Files/Globals is deterministic (insertion order)
// so diagnostics and workspace/symbol results don't reorder between
// otherwise-identical runs.
type Workspace struct {
	files   *orderedmap.OrderedMap[string, *FileEntry]
	globals *orderedmap.OrderedMap[string, struct{}]
}

// New creates an empty Workspace.
func New() *Workspace {
	return &Workspace{
		files:   orderedmap.New[string, *FileEntry](),
		globals: orderedmap.New[string, struct{}](),
	}
}

// normalize strips a leading "scripts/" and trailing ".nut" so lookups
// tolerate either form regardless of how the caller spelled the path.
func normalize(path string) string {
	path = strings.TrimPrefix(path, "scripts/")
	path = strings.TrimSuffix(path, ".nut")
	return path
}

// ScriptPathFromFilePath derives the normalized, slash-separated script
// path a workspace entry is keyed by from an absolute or relative
// filesystem path, for callers (lspserver, cmd/sq) that only have a file
// path and need the same key IndexFile would have used.
func ScriptPathFromFilePath(filePath string) string {
	return extractScriptPath(filePath)
}

// Get looks up a file entry by script path, trying an exact match first
// and then a normalized form.
func (w *Workspace) Get(scriptPath string) (*FileEntry, bool) {
	if e, ok := w.files.Get(scriptPath); ok {
		return e, true
	}
	return w.files.Get(normalize(scriptPath))
}

// Contains reports whether scriptPath resolves to an indexed file.
func (w *Workspace) Contains(scriptPath string) bool {
	_, ok := w.Get(scriptPath)
	return ok
}

// Files returns the file map for iteration in insertion order.
func (w *Workspace) Files() *orderedmap.OrderedMap[string, *FileEntry] { return w.files }

// RegisterGlobal records a globally registered identifier (`name <- value`
// at file scope, outside any class body).
func (w *Workspace) RegisterGlobal(name string) {
	w.globals.Set(name, struct{}{})
}

// Globals returns every registered global identifier, insertion ordered.
func (w *Workspace) Globals() []string {
	out := make([]string, 0, w.globals.Len())
	for pair := w.globals.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Stats summarizes the index as file, member and global counts. No
// command in this module prints it; `sq check` reports diagnostics only.
type Stats struct {
	Files   int
	Members int
	Globals int
}

func (w *Workspace) Stats() Stats {
	s := Stats{Files: w.files.Len(), Globals: w.globals.Len()}
	for pair := w.files.Oldest(); pair != nil; pair = pair.Next() {
		s.Members += len(pair.Value.Members)
	}
	return s
}

// GetAllMembers returns every member visible on scriptPath, including
// inherited ones, with child members overriding same-named ancestor
// members.
func (w *Workspace) GetAllMembers(scriptPath string) []MemberInfo {
	chain := []string{scriptPath}
	for _, a := range w.GetAncestors(scriptPath) {
		chain = append(chain, a.ScriptPath)
	}
	merged := make(map[string]MemberInfo)
	for i := len(chain) - 1; i >= 0; i-- {
		if entry, ok := w.Get(chain[i]); ok {
			for _, m := range entry.Members {
				merged[m.Name] = m
			}
		}
	}
	out := make([]MemberInfo, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	return out
}

// HasMethod reports whether scriptPath has methodName, directly or
// inherited.
func (w *Workspace) HasMethod(scriptPath, methodName string) bool {
	for _, m := range w.GetAllMembers(scriptPath) {
		if m.Name == methodName && m.MemberType == MemberMethod {
			return true
		}
	}
	return false
}

// MethodLocation is where a method was found defined.
type MethodLocation struct {
	FilePath   string
	Line       uint32
	Column     uint32
	ScriptPath string
}

// FindMethodDefinition searches scriptPath and then its ancestors for
// methodName, returning the first hit.
func (w *Workspace) FindMethodDefinition(scriptPath, methodName string) (MethodLocation, bool) {
	if entry, ok := w.Get(scriptPath); ok {
		for _, m := range entry.Members {
			if m.Name == methodName && m.MemberType == MemberMethod {
				return MethodLocation{FilePath: entry.FilePath, Line: m.Line, Column: m.Column, ScriptPath: entry.ScriptPath}, true
			}
		}
	}
	for _, ancestor := range w.GetAncestors(scriptPath) {
		for _, m := range ancestor.Members {
			if m.Name == methodName && m.MemberType == MemberMethod {
				return MethodLocation{FilePath: ancestor.FilePath, Line: m.Line, Column: m.Column, ScriptPath: ancestor.ScriptPath}, true
			}
		}
	}
	return MethodLocation{}, false
}

// FindMethodAnywhere searches every indexed file for methodName, used as
// a last-resort go-to-definition fallback.
func (w *Workspace) FindMethodAnywhere(methodName string) []MethodLocation {
	var results []MethodLocation
	for pair := w.files.Oldest(); pair != nil; pair = pair.Next() {
		entry := pair.Value
		for _, m := range entry.Members {
			if m.Name == methodName && m.MemberType == MemberMethod {
				results = append(results, MethodLocation{FilePath: entry.FilePath, Line: m.Line, Column: m.Column, ScriptPath: entry.ScriptPath})
			}
		}
	}
	return results
}

// GetAncestors walks the inheritance chain upward from scriptPath,
// returning ancestors nearest-first. Circular inheritance terminates the
// walk instead of looping forever.
func (w *Workspace) GetAncestors(scriptPath string) []*FileEntry {
	var ancestors []*FileEntry
	visited := make(map[string]bool)
	current := scriptPath
	for {
		entry, ok := w.Get(current)
		if !ok || entry.Parent == "" {
			return ancestors
		}
		if visited[entry.Parent] {
			return ancestors
		}
		visited[entry.Parent] = true
		parentEntry, ok := w.Get(entry.Parent)
		if !ok {
			return ancestors
		}
		ancestors = append(ancestors, parentEntry)
		current = entry.Parent
	}
}

// IndexFile parses content and, if it defines a class (via an inherit
// call) or a global table matching the file's stem, records it. Files
// outside any "scripts/" directory are silently skipped, matching the
// reference indexer's behavior — a workspace sweep over a mod folder
// naturally contains non-script files it has no opinion about.
func (w *Workspace) IndexFile(filePath, content string) error {
	scriptPath := extractScriptPath(filePath)
	if scriptPath == "" {
		return nil
	}
	entry, globals := parseFile(filePath, scriptPath, content)
	w.applyParseResult(scriptPath, entry, globals)
	return nil
}

// IndexFileCached behaves like IndexFile but consults cache first, keyed
// by filePath and validated against content's hash, avoiding a reparse of
// unchanged files across IndexDirectory runs. A nil cache disables
// caching and behaves exactly like IndexFile.
func (w *Workspace) IndexFileCached(filePath, content string, cache *FileCache) error {
	if cache == nil {
		return w.IndexFile(filePath, content)
	}
	scriptPath := extractScriptPath(filePath)
	if scriptPath == "" {
		return nil
	}
	if cached, ok := cache.lookup(filePath, content); ok {
		w.applyParseResult(scriptPath, cached.Entry, cached.Globals)
		return nil
	}
	entry, globals := parseFile(filePath, scriptPath, content)
	cache.store(filePath, content, entry, globals)
	w.applyParseResult(scriptPath, entry, globals)
	return nil
}

// applyParseResult records the outcome of parsing one file, whether it
// came from a fresh parse or a cache hit.
func (w *Workspace) applyParseResult(scriptPath string, entry *FileEntry, globals []string) {
	if entry != nil {
		w.files.Set(scriptPath, entry)
	}
	for _, g := range globals {
		w.RegisterGlobal(g)
	}
}

// parseFile does the actual sqlang parse + extraction work shared by
// IndexFile and the cache-miss path of IndexFileCached.
func parseFile(filePath, scriptPath, content string) (*FileEntry, []string) {
	tree := sqlang.Parse(content)
	root := tree.Root

	var entry *FileEntry
	if call, ok := findFirstInheritCall(root, content); ok {
		entry = &FileEntry{
			FilePath:   filePath,
			ScriptPath: scriptPath,
			Name:       call.ClassName,
			ParentPath: call.ParentPath,
			Members:    extractMembersFromTable(call.ClassBody, content),
		}
	} else {
		stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		if name, tableNode, ok := findGlobalTable(root, content, stem); ok {
			entry = &FileEntry{
				FilePath:   filePath,
				ScriptPath: scriptPath,
				Name:       name,
				Members:    extractMembersFromTable(tableNode, content),
			}
		}
	}

	return entry, extractGlobals(root, content)
}

// RebuildInheritanceGraph resolves every file's ParentPath into a Parent
// reference and populates Children, clearing both first so this is safe
// to call repeatedly as files are reindexed.
func (w *Workspace) RebuildInheritanceGraph() {
	for pair := w.files.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Parent = ""
		pair.Value.Children = nil
	}
	for pair := w.files.Oldest(); pair != nil; pair = pair.Next() {
		scriptPath, entry := pair.Key, pair.Value
		if entry.ParentPath == "" {
			continue
		}
		normalized := normalize(entry.ParentPath)
		if !w.Contains(normalized) {
			continue
		}
		entry.Parent = normalized
		if parent, ok := w.Get(normalized); ok {
			found := false
			for _, c := range parent.Children {
				if c == scriptPath {
					found = true
					break
				}
			}
			if !found {
				parent.Children = append(parent.Children, scriptPath)
			}
		}
	}
}

// IndexDirectory walks root, indexing every ".nut" file it finds. Reads
// are rate-limited so a very large mod folder doesn't starve the
// server's single-task event loop, and ctx cancellation is checked
// between files so a shutdown request aborts the sweep cleanly rather
// than leaving a half-built index. cache may be nil, in which case every
// file is reparsed; otherwise unchanged files are served from cache.
func (w *Workspace) IndexDirectory(ctx context.Context, root string, readFile func(path string) (string, error), limiter *rate.Limiter, cache *FileCache) error {
	staged := New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
		if filepath.Ext(path) != ".nut" {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		content, err := readFile(path)
		if err != nil {
			return nil // one unreadable file doesn't abort the sweep
		}
		return staged.IndexFileCached(path, content, cache)
	})
	if err != nil {
		return err
	}
	for pair := staged.files.Oldest(); pair != nil; pair = pair.Next() {
		w.files.Set(pair.Key, pair.Value)
	}
	for pair := staged.globals.Oldest(); pair != nil; pair = pair.Next() {
		w.RegisterGlobal(pair.Key)
	}
	return nil
}

// extractScriptPath strips everything up to and including the last
// "scripts/" segment and the ".nut" suffix. Files outside a "scripts/"
// directory yield "".
func extractScriptPath(filePath string) string {
	slashed := filepath.ToSlash(filePath)
	idx := strings.LastIndex(slashed, "scripts/")
	if idx < 0 {
		return ""
	}
	after := slashed[idx+len("scripts/"):]
	return strings.TrimSuffix(after, ".nut")
}

// textOf is a small convenience wrapper kept separate from cst.Node.Text
// so error messages here read in terms of "source text", matching the
// reference implementation's get_node_text helper naming.
func textOf(n *cst.Node, source string) string {
	if n == nil {
		return ""
	}
	return n.Text(source)
}
