package prompt

import (
	"sort"
	"strings"
)

// node is one level of the repository structure. Children keep the order in
// which they were first seen.
type node struct {
	name     string
	dir      bool
	children []*node
	index    map[string]*node
}

func (n *node) child(name string, dir bool) *node {
	if n.index == nil {
		n.index = make(map[string]*node)
	}
	if c, ok := n.index[name]; ok {
		if dir {
			c.dir = true
		}
		return c
	}
	c := &node{name: name, dir: dir}
	n.index[name] = c
	n.children = append(n.children, c)
	return c
}

// RenderStructure converts file paths into an indented tree:
//
//	+ src/
//	  - main.go
//	- README.md
//
// Paths are sorted once up front; siblings are then rendered in insertion
// order.
func RenderStructure(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	root := &node{dir: true}
	for _, p := range sorted {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var parts []string
		for _, part := range strings.Split(p, "/") {
			if part == "" || part == "." {
				continue
			}
			parts = append(parts, part)
		}
		cur := root
		for i, part := range parts {
			cur = cur.child(part, i < len(parts)-1)
		}
	}

	var sb strings.Builder
	renderNode(&sb, root, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func renderNode(sb *strings.Builder, n *node, depth int) {
	for _, c := range n.children {
		sb.WriteString(strings.Repeat("  ", depth))
		if c.dir {
			sb.WriteString("+ ")
			sb.WriteString(c.name)
			sb.WriteString("/\n")
			renderNode(sb, c, depth+1)
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(c.name)
		sb.WriteString("\n")
	}
}
