// Package pathutil holds the path checks shared by the catalog, the PDF
// stores and the static asset handler.
package pathutil

import "strings"

// HasDotSegments reports whether any "/"-separated segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// IsFlatName reports whether name is a single file name: non-empty, no
// "/" or "\" separators, no NUL, and not "." or "..".
func IsFlatName(name string) bool {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return name != "." && name != ".."
}
