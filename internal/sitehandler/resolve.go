package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/jslearn-web/internal/pathutil"
)

// resolvePath maps a URL path to a regular file within fsys. Directory paths
// resolve to their index.html; anything ambiguous or absent is not found.
func resolvePath(urlPath string, fsys fs.FS) (string, bool) {
	p := urlPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	// basic rejection of ambiguous/unsafe paths
	if strings.Contains(p, "\x00") || strings.Contains(p, "\\") || strings.Contains(p, "..") {
		return "", false
	}
	if pathutil.HasDotSegments(p) {
		return "", false
	}

	name := strings.TrimPrefix(path.Clean(p), "/")
	if name == "" || strings.HasSuffix(p, "/") {
		name = path.Join(name, "index.html")
	}
	// dotfiles are never public
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	if !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
