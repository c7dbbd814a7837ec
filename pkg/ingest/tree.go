package ingest

import "encoding/json"

// Tree maps entry names to nodes.
type Tree map[string]*Node

// Node is either a directory (Children) or a file (File).
type Node struct {
	File     *File
	Children Tree
}

func newDirNode() *Node {
	return &Node{Children: Tree{}}
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.File == nil
}

// MarshalJSON renders a directory as a nested object and a file as its record.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.File != nil {
		return json.Marshal(n.File)
	}
	if n.Children == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n.Children)
}

// Lookup walks the tree along names and returns the node found, if any.
func (t Tree) Lookup(names ...string) (*Node, bool) {
	current := t
	var node *Node
	for _, name := range names {
		next, ok := current[name]
		if !ok {
			return nil, false
		}
		node = next
		current = next.Children
	}
	return node, node != nil
}
