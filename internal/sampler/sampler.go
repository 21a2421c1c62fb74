// Package sampler picks a bounded, prioritized subset of a repository's files
// to stand in for the whole repository inside a prompt.
package sampler

import (
	"path"
	"sort"

	"repolens/internal/scan"
)

const (
	DefaultMaxFiles = 15
	DefaultMaxChars = 10000
	TruncatedMarker = "\n... [file truncated due to size]"
)

// Options configure a Sampler. Zero values select the defaults.
type Options struct {
	MaxFiles int
	MaxChars int
	Marker   string
	Patterns []Pattern
	// SortDirectories makes the breadth pass visit directories in
	// lexicographic order instead of first-seen order.
	SortDirectories bool
}

type Sampler struct {
	opts Options
}

func New(opts Options) *Sampler {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Marker == "" {
		opts.Marker = TruncatedMarker
	}
	if opts.Patterns == nil {
		opts.Patterns = DefaultPatterns
	}
	return &Sampler{opts: opts}
}

// Select returns at most MaxFiles entries: one file per priority pattern
// first, then round-robin across directories. Contents are truncated to
// MaxChars characters.
func (s *Sampler) Select(files *scan.FileMapping) []scan.FileEntry {
	if files.Len() == 0 {
		return []scan.FileEntry{}
	}
	limit := s.opts.MaxFiles
	chosen := make(map[string]bool, limit)
	order := make([]string, 0, limit)

	sorted := files.SortedPaths()
	for _, p := range s.opts.Patterns {
		if len(order) >= limit {
			break
		}
		for _, candidate := range sorted {
			if chosen[candidate] || !p.Expr.MatchString(candidate) {
				continue
			}
			chosen[candidate] = true
			order = append(order, candidate)
			break
		}
	}

	if len(order) < limit {
		order = s.fillByDirectory(files.Paths(), chosen, order, limit)
	}

	out := make([]scan.FileEntry, 0, len(order))
	for _, p := range order {
		content, _ := files.Get(p)
		out = append(out, scan.FileEntry{Path: p, Content: s.truncate(content)})
	}
	return out
}

// fillByDirectory takes the first unselected file of each directory per
// sweep until the ceiling is reached or nothing is left.
func (s *Sampler) fillByDirectory(paths []string, chosen map[string]bool, order []string, limit int) []string {
	var dirs []string
	queues := map[string][]string{}
	for _, p := range paths {
		if chosen[p] {
			continue
		}
		d := path.Dir(p)
		if _, ok := queues[d]; !ok {
			dirs = append(dirs, d)
		}
		queues[d] = append(queues[d], p)
	}
	if s.opts.SortDirectories {
		sort.Strings(dirs)
	}

	for len(order) < limit {
		progressed := false
		for _, d := range dirs {
			if len(order) >= limit {
				break
			}
			q := queues[d]
			if len(q) == 0 {
				continue
			}
			order = append(order, q[0])
			chosen[q[0]] = true
			queues[d] = q[1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return order
}

func (s *Sampler) truncate(content string) string {
	if len(content) <= s.opts.MaxChars {
		return content
	}
	runes := []rune(content)
	if len(runes) <= s.opts.MaxChars {
		return content
	}
	return string(runes[:s.opts.MaxChars]) + s.opts.Marker
}
