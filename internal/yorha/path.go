package yorha

import "strings"

// splitPath returns (dirPath, filename) where dirPath is everything through
// the last slash (inclusive) and filename is the tail. The root's dirPath
// is "/" with an empty filename. This is the sole path parser (spec.md §9
// resolves the original's by-reference/heap-allocating duplication in
// favor of a single non-allocating slice-returning form).
func splitPath(path string) (dirPath, filename string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i+1], path[i+1:]
}

// splitComponents splits an absolute path into its non-empty components,
// e.g. "/dev/tty" -> ["dev", "tty"], "/" -> [].
func splitComponents(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
