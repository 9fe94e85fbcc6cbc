package workspace

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileCache persists IndexFile results across IndexDirectory runs, so
// reopening a large mod folder doesn't reparse every script whose content
// hasn't changed since the last run. Entries are keyed by file path and
// validated two ways: the file's own content hash, and a checksum of the
// running sq binary, so an upgraded binary discards every entry rather
// than risk serving a result an older parser produced.
type FileCache struct {
	ToolChecksum string                 `json:"toolChecksum"`
	Files        map[string]cachedEntry `json:"files"`

	path  string
	dirty bool
}

type cachedEntry struct {
	ContentHash string     `json:"contentHash"`
	Entry       *FileEntry `json:"entry"`
	Globals     []string   `json:"globals,omitempty"`
}

var toolChecksumOnce string

// toolChecksum hashes the currently running executable's own bytes. It is
// memoized per process since the binary on disk can't change underneath a
// running process.
func toolChecksum() (string, error) {
	if toolChecksumOnce != "" {
		return toolChecksumOnce, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("workspace: locating running binary: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	data, err := os.ReadFile(exe)
	if err != nil {
		return "", fmt.Errorf("workspace: reading running binary: %w", err)
	}
	sum := sha256.Sum256(data)
	toolChecksumOnce = hex.EncodeToString(sum[:])
	return toolChecksumOnce, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// LoadFileCache reads a cache previously written by (*FileCache).Save. Any
// problem reading it back — the file is missing, corrupt, or was written
// by a different sq binary — yields a fresh, empty cache rather than an
// error: a stale or absent cache only costs a full reparse of path, it
// never loses data.
func LoadFileCache(path string) *FileCache {
	checksum, err := toolChecksum()
	if err != nil {
		return newFileCache(path, checksum)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return newFileCache(path, checksum)
	}
	if strings.HasSuffix(path, ".gz") {
		if raw, err = gunzipBytes(raw); err != nil {
			return newFileCache(path, checksum)
		}
	}

	var c FileCache
	if err := json.Unmarshal(raw, &c); err != nil {
		return newFileCache(path, checksum)
	}
	if c.ToolChecksum != checksum {
		return newFileCache(path, checksum)
	}
	if c.Files == nil {
		c.Files = make(map[string]cachedEntry)
	}
	c.path = path
	return &c
}

func newFileCache(path, checksum string) *FileCache {
	return &FileCache{ToolChecksum: checksum, Files: make(map[string]cachedEntry), path: path}
}

func (c *FileCache) lookup(filePath, content string) (cachedEntry, bool) {
	cached, ok := c.Files[filePath]
	if !ok || cached.ContentHash != contentHash(content) {
		return cachedEntry{}, false
	}
	return cached, true
}

func (c *FileCache) store(filePath, content string, entry *FileEntry, globals []string) {
	c.Files[filePath] = cachedEntry{ContentHash: contentHash(content), Entry: entry, Globals: globals}
	c.dirty = true
}

// Save writes the cache back to its load path, if anything changed since
// it was loaded. A ".gz" path suffix gzip-compresses the JSON, matching
// how large caches are stored elsewhere in the retrieved example pack.
func (c *FileCache) Save() error {
	if c == nil || !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("workspace: creating cache directory: %w", err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("workspace: encoding cache: %w", err)
	}
	if strings.HasSuffix(c.path, ".gz") {
		if data, err = gzipBytes(data); err != nil {
			return fmt.Errorf("workspace: compressing cache: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("workspace: writing cache: %w", err)
	}
	return nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
