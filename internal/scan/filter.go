package scan

import (
	"strings"
)

// MaxFileBytes is the largest file content admitted for analysis.
const MaxFileBytes = 500 * 1024

// maxNonPrintableRatio is the fraction of non-printable characters above
// which content is treated as binary.
const maxNonPrintableRatio = 0.1

// ignoredExtensions lists binary, media, archive, font and executable
// suffixes. Matching is done on the lower-cased path.
var ignoredExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico", ".webp",
	".mp4", ".webm", ".ogg", ".mp3", ".wav",
	".pdf",
	".zip", ".rar", ".7z", ".tar", ".gz",
	".woff", ".woff2", ".eot", ".ttf",
	".exe", ".dll", ".so", ".dylib", ".class",
}

// ignoredDirs contains build, dependency and VCS directory names. A path is
// rejected when any of its segments equals one of them.
var ignoredDirs = map[string]bool{
	"node_modules":     true,
	"dist":             true,
	"build":            true,
	"target":           true,
	"out":              true,
	".git":             true,
	".idea":            true,
	".vscode":          true,
	".next":            true,
	".vercel":          true,
	"vendor":           true,
	"bower_components": true,
	"jspm_packages":    true,
	"__pycache__":      true,
	"venv":             true,
	"env":              true,
	".env":             true,
	".venv":            true,
}

// IgnoredExtensions returns a copy of the extension denylist.
func IgnoredExtensions() []string {
	return append([]string(nil), ignoredExtensions...)
}

// IgnoredDirs returns the directory denylist in no particular order.
func IgnoredDirs() []string {
	out := make([]string, 0, len(ignoredDirs))
	for d := range ignoredDirs {
		out = append(out, d)
	}
	return out
}

// IsAdmissible reports whether a decoded file should be considered for
// analysis. Use IsAdmissiblePath when the content is not known yet.
func IsAdmissible(path, content string) bool {
	return IsAdmissiblePath(path) && IsAdmissibleContent(content)
}

// IsAdmissiblePath applies the extension and directory denylists.
func IsAdmissiblePath(path string) bool {
	p := strings.TrimSpace(strings.ReplaceAll(path, "\\", "/"))
	if p == "" {
		return false
	}
	lower := strings.ToLower(p)
	for _, ext := range ignoredExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, seg := range strings.Split(p, "/") {
		if ignoredDirs[seg] {
			return false
		}
	}
	return true
}

// IsAdmissibleContent rejects empty, oversized and binary-looking content.
func IsAdmissibleContent(content string) bool {
	if content == "" || len(content) > MaxFileBytes {
		return false
	}
	return nonPrintableRatio(content) <= maxNonPrintableRatio
}

func nonPrintableRatio(content string) float64 {
	total := 0
	bad := 0
	for _, r := range content {
		total++
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r < 0x20 || r > 0x7e {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}
