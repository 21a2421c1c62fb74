package scan

import "sort"

// FileEntry is one decoded text file of a repository.
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileMapping maps repo-relative paths to decoded content. It remembers the
// order in which paths were first added, which is the traversal order of the
// source. Setting an existing path overwrites its content in place.
type FileMapping struct {
	order []string
	files map[string]string
}

func NewFileMapping() *FileMapping {
	return &FileMapping{files: make(map[string]string)}
}

// Set adds or overwrites a file.
func (m *FileMapping) Set(path, content string) {
	if m.files == nil {
		m.files = make(map[string]string)
	}
	if _, ok := m.files[path]; !ok {
		m.order = append(m.order, path)
	}
	m.files[path] = content
}

func (m *FileMapping) Get(path string) (string, bool) {
	if m == nil {
		return "", false
	}
	c, ok := m.files[path]
	return c, ok
}

func (m *FileMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Paths returns paths in insertion order.
func (m *FileMapping) Paths() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

// SortedPaths returns paths in lexicographic order.
func (m *FileMapping) SortedPaths() []string {
	out := m.Paths()
	sort.Strings(out)
	return out
}
