package domain

import "strings"

// IngredientWeight is one row of the ingredient weight table
type IngredientWeight struct {
	Pattern           string  `json:"ingredient"`
	Weight            float64 `json:"weight"`
	UseForConsumption bool    `json:"use_for_consumption"`
}

// Match is the weight-table row a declaration token matched
type Match struct {
	Pattern           string
	Weight            float64
	UseForConsumption bool
}

// NodeKind tells a leaf ingredient apart from a group with sub-ingredients
type NodeKind int

const (
	LeafNode NodeKind = iota
	GroupNode
)

// Node is one element of a parsed ingredient declaration.
// For a leaf, Text is the ingredient. For a group, Text is the head
// ("cocoa" in "cocoa (sugar, cocoa butter)") and Children is non-empty.
type Node struct {
	Kind     NodeKind `json:"kind"`
	Text     string   `json:"text"`
	Children []Node   `json:"children,omitempty"`
}

// Leaf creates a leaf node
func Leaf(text string) Node {
	return Node{Kind: LeafNode, Text: text}
}

// Group creates a group node with the given head and children
func Group(head string, children ...Node) Node {
	return Node{Kind: GroupNode, Text: head, Children: children}
}

// IsGroup reports whether the node has sub-ingredients
func (n Node) IsGroup() bool {
	return n.Kind == GroupNode
}

// String renders the node back into declaration form
func (n Node) String() string {
	if !n.IsGroup() {
		return n.Text
	}
	var sb strings.Builder
	if n.Text != "" {
		sb.WriteString(n.Text)
		sb.WriteString(" ")
	}
	sb.WriteString("(")
	sb.WriteString(JoinNodes(n.Children))
	sb.WriteString(")")
	return sb.String()
}

// JoinNodes renders a sibling list back into declaration form
func JoinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// CountLeaves returns the number of leaf nodes in the tree
func CountLeaves(nodes []Node) int {
	count := 0
	for _, n := range nodes {
		if n.IsGroup() {
			count += CountLeaves(n.Children)
			continue
		}
		count++
	}
	return count
}
