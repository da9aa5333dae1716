package contentid

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// SegmentCount is the number of path segments a content id expands into.
const SegmentCount = 11

var (
	idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
	// dirPattern matches the nested segment form anywhere in a path:
	// ten three-character hex segments followed by a two-character tail.
	dirPattern = regexp.MustCompile(`([0-9a-f]{3}[/\\]){10}[0-9a-f]{2}$`)
)

// IsValid reports whether id is a well-formed lowercase 32-hex MD5 identifier.
func IsValid(id string) bool {
	return idPattern.MatchString(id)
}

// ToPath converts a content id into its nested path. When prefix is given the
// result is rooted there. Returns ok=false for malformed ids.
func ToPath(id string, prefix ...string) (string, bool) {
	if !IsValid(id) {
		return "", false
	}
	segments := make([]string, 0, SegmentCount+len(prefix))
	segments = append(segments, prefix...)
	for i := 0; i < 30; i += 3 {
		segments = append(segments, id[i:i+3])
	}
	segments = append(segments, id[30:])
	return filepath.Join(segments...), true
}

// ToMD5 recovers a content id from a nested path. Returns "" when the path
// does not end in the nested segment form.
func ToMD5(path string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")
	match := dirPattern.FindString(normalized)
	if match == "" {
		return ""
	}
	id := strings.ReplaceAll(match, "/", "")
	if !IsValid(id) {
		return ""
	}
	return id
}

// Walk traverses root top-down and calls visit with every path accepted by
// predicate. When shallow is true, matched directories are not descended
// into. Unreadable subtrees are skipped rather than aborting the walk. visit
// returns false to stop early; Walk reports whether the traversal ran to
// completion.
func Walk(root string, predicate func(string) bool, shallow bool, visit func(string) bool) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return true
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		matched := predicate == nil || predicate(path)
		if matched {
			if !visit(path) {
				return false
			}
		}
		if entry.IsDir() && !(shallow && matched) {
			if !Walk(path, predicate, shallow, visit) {
				return false
			}
		}
	}
	return true
}

// FindContentDirs returns every directory under root whose path ends in the
// nested content id form, shallowest first.
func FindContentDirs(root string) []string {
	var dirs []string
	Walk(root, func(path string) bool {
		return ToMD5(path) != ""
	}, true, func(path string) bool {
		dirs = append(dirs, path)
		return true
	})
	return dirs
}
