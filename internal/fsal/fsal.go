// Package fsal abstracts the content filesystem so stores and scans can run
// against any rooted tree. The local implementation wraps the OS filesystem
// under a fixed root.
package fsal

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"librarian/internal/fileutil"
)

// Entry describes a single directory member.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// DescendantOptions tunes ListDescendants traversal.
type DescendantOptions struct {
	// EntryType selects what gets returned: "dir", "file", or "" for both.
	EntryType string
	// IgnoredPaths are root-relative prefixes skipped entirely.
	IgnoredPaths []string
	// Offset and Limit page through the ordered result. Limit <= 0 means
	// unlimited.
	Offset int
	Limit  int
}

// FS is the filesystem surface the stores depend on. Paths are relative to
// the implementation's root, slash-separated.
type FS interface {
	ListDir(path string) (dirs, files []Entry, err error)
	Exists(path string) bool
	IsDir(path string) bool
	IsFile(path string) bool
	Remove(path string) error
	Move(src, dst string) error
	Copy(src, dst string) error
	Open(path string) (io.ReadCloser, error)
	// ListDescendants walks the tree under path depth-first, lexically
	// ordered, and returns the total match count alongside the selected
	// page.
	ListDescendants(path string, opts DescendantOptions) (count int, entries []Entry, err error)
}

// Local is an OS-backed FS rooted at a directory.
type Local struct {
	root string
}

// NewLocal roots an FS at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) abs(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *Local) rel(abs string) string {
	rel, err := filepath.Rel(l.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// ListDir returns the immediate children of path, split into directories and
// files, each sorted by name.
func (l *Local) ListDir(path string) ([]Entry, []Entry, error) {
	members, err := os.ReadDir(l.abs(path))
	if err != nil {
		return nil, nil, err
	}
	var dirs, files []Entry
	for _, member := range members {
		entry := Entry{
			Name:  member.Name(),
			Path:  strings.TrimPrefix(filepath.ToSlash(filepath.Join(path, member.Name())), "./"),
			IsDir: member.IsDir(),
		}
		if info, err := member.Info(); err == nil {
			entry.Size = info.Size()
		}
		if member.IsDir() {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return dirs, files, nil
}

func (l *Local) Exists(path string) bool {
	_, err := os.Stat(l.abs(path))
	return err == nil
}

func (l *Local) IsDir(path string) bool {
	info, err := os.Stat(l.abs(path))
	return err == nil && info.IsDir()
}

func (l *Local) IsFile(path string) bool {
	info, err := os.Stat(l.abs(path))
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes path recursively.
func (l *Local) Remove(path string) error {
	return os.RemoveAll(l.abs(path))
}

// Move renames src to dst, replacing dst if present.
func (l *Local) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(l.abs(dst)), 0o755); err != nil {
		return err
	}
	return fileutil.MoveOverwrite(l.abs(src), l.abs(dst))
}

// Copy duplicates a regular file, verifying the destination's size and
// checksum against the source. A mismatched destination is removed.
func (l *Local) Copy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(l.abs(dst)), 0o755); err != nil {
		return err
	}
	return fileutil.CopyFileVerified(l.abs(src), l.abs(dst))
}

func (l *Local) Open(path string) (io.ReadCloser, error) {
	return os.Open(l.abs(path))
}

// ListDescendants walks the subtree under path in lexical order.
func (l *Local) ListDescendants(path string, opts DescendantOptions) (int, []Entry, error) {
	root := l.abs(path)
	var matched []Entry
	err := filepath.WalkDir(root, func(current string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if current == root {
			return nil
		}
		rel := l.rel(current)
		for _, ignored := range opts.IgnoredPaths {
			if rel == ignored || strings.HasPrefix(rel, ignored+"/") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		switch opts.EntryType {
		case "dir":
			if !d.IsDir() {
				return nil
			}
		case "file":
			if d.IsDir() {
				return nil
			}
		}
		entry := Entry{Name: d.Name(), Path: rel, IsDir: d.IsDir()}
		if info, err := d.Info(); err == nil {
			entry.Size = info.Size()
		}
		matched = append(matched, entry)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	count := len(matched)
	if opts.Offset > 0 {
		if opts.Offset >= count {
			return count, nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return count, matched, nil
}
