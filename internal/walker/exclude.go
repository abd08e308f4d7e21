package walker

import (
	"path"
	"path/filepath"
	"strings"
)

// toSlashPath converts OS separators, drops a Windows drive letter and
// trims leading slashes.
func toSlashPath(p string) string {
	p = filepath.ToSlash(p)
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/\\")
}

func shouldExclude(rel string, patterns []string) bool {
	for _, pat := range patterns {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		if matchGlob(pat, rel) || matchGlob(pat, path.Base(rel)) {
			return true
		}
	}
	return false
}

// matchGlob supports '*' and '?' via path.Match, plus a leading "**/"
// (suffix match) and a trailing "/**" (prefix match).
func matchGlob(pattern, s string) bool {
	pattern = strings.ReplaceAll(pattern, "\\", "/")

	if strings.HasPrefix(pattern, "**/") {
		pattern = strings.TrimPrefix(pattern, "**/")
		if !strings.ContainsAny(pattern, "*?") && (s == pattern || strings.HasSuffix(s, "/"+pattern)) {
			return true
		}
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if s == prefix || strings.HasPrefix(s, prefix+"/") {
			return true
		}
	}

	ok, _ := path.Match(pattern, s)
	return ok
}
