package logging

import (
	"sort"
	"strings"
)

// Node is one segment of the namespace tree.
type Node struct {
	Name     string
	FullName string
	Children map[string]*Node
}

// Tree arranges the recorded namespaces by their colon-separated segments.
func (r *Registry) Tree() *Node {
	root := &Node{Children: make(map[string]*Node)}
	for _, ns := range r.Namespaces() {
		cur := root
		path := ""
		for _, part := range strings.Split(ns, Separator) {
			if path == "" {
				path = part
			} else {
				path = path + Separator + part
			}
			child, ok := cur.Children[part]
			if !ok {
				child = &Node{Name: part, FullName: path, Children: make(map[string]*Node)}
				cur.Children[part] = child
			}
			cur = child
		}
	}
	return root
}

// SortedChildren returns the node's children ordered by name.
func (n *Node) SortedChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Walk visits n's descendants depth-first in name order.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	var walk func(*Node, int)
	walk = func(cur *Node, depth int) {
		for _, c := range cur.SortedChildren() {
			fn(c, depth)
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}
