package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	RootType     = "doc"
	TextType     = "text"
	maxNodeDepth = 64
)

// Node is one node of a section's rich-text tree. The root is a "doc" node;
// "text" nodes are leaves that carry Text and Marks.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// EmptyContent is an empty document tree.
func EmptyContent() Node {
	return Node{Type: RootType}
}

// Paragraph builds a document holding one paragraph of plain text.
func Paragraph(text string) Node {
	if text == "" {
		return EmptyContent()
	}
	return Node{Type: RootType, Content: []Node{{
		Type:    "paragraph",
		Content: []Node{{Type: TextType, Text: text}},
	}}}
}

// Validate checks the structural rules of a content tree rooted at n.
func (n Node) Validate() error {
	if n.Type != RootType {
		return fmt.Errorf("content root must be %q, got %q", RootType, n.Type)
	}
	return n.validate(0)
}

func (n Node) validate(depth int) error {
	if depth > maxNodeDepth {
		return fmt.Errorf("content nested deeper than %d", maxNodeDepth)
	}
	if n.Type == "" {
		return fmt.Errorf("content node without type at depth %d", depth)
	}
	if n.Type == TextType {
		if n.Text == "" {
			return fmt.Errorf("empty text node at depth %d", depth)
		}
		if len(n.Content) > 0 {
			return fmt.Errorf("text node with children at depth %d", depth)
		}
		for _, m := range n.Marks {
			if m.Type == "" {
				return fmt.Errorf("mark without type at depth %d", depth)
			}
		}
		return nil
	}
	if n.Text != "" {
		return fmt.Errorf("%s node carries text at depth %d", n.Type, depth)
	}
	if len(n.Marks) > 0 {
		return fmt.Errorf("%s node carries marks at depth %d", n.Type, depth)
	}
	if depth > 0 && n.Type == RootType {
		return fmt.Errorf("nested %s node at depth %d", RootType, depth)
	}
	for _, child := range n.Content {
		if err := child.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

// PlainText concatenates the text leaves, separating blocks with newlines.
func (n Node) PlainText() string {
	var out []byte
	var walk func(Node)
	walk = func(node Node) {
		if node.Type == TextType {
			out = append(out, node.Text...)
			return
		}
		for i, c := range node.Content {
			if i > 0 && c.Type != TextType {
				out = append(out, '\n')
			}
			walk(c)
		}
	}
	walk(n)
	return string(out)
}

// Value stores the tree as JSONB.
func (n Node) Value() (driver.Value, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (n *Node) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*n = EmptyContent()
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan content: unsupported type %T", src)
	}
	var out Node
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan content: %w", err)
	}
	*n = out
	return nil
}
