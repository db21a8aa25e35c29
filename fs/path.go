package fs

import "strings"

// splitPath validates and splits an absolute path into its non-empty
// segments, per spec.md §4.5's find_node rules: must start with "/", must
// not exceed MaxPathLength, and each segment must not exceed the format's
// name length.
func (fsys *Filesystem) splitPath(path string) ([]string, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, ErrWrongPath
	}
	if len(path) > MaxPathLength {
		return nil, &PathTooLongError{Path: path, Max: MaxPathLength}
	}
	var segments []string
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if len(part) > fsys.nameLength {
			return nil, &NameTooLongError{Name: part, Max: fsys.nameLength}
		}
		segments = append(segments, part)
	}
	return segments, nil
}

// splitParentChild splits a path into its parent directory path and final
// segment name, rejecting "/", ".", and "..", per spec.md §4.5's remove(path)
// and the general rule that those names are never valid as a final segment
// to create or remove.
func splitParentChild(segments []string) (parent []string, child string, err error) {
	if len(segments) == 0 {
		return nil, "", ErrWrongPath
	}
	child = segments[len(segments)-1]
	if child == "." || child == ".." {
		return nil, "", ErrWrongPath
	}
	return segments[:len(segments)-1], child, nil
}

func joinPath(segments []string) string {
	return "/" + strings.Join(segments, "/")
}
