// Package pyparse checks that generated code is syntactically valid Python.
package pyparse

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("invalid python")

// SyntaxError locates the first problem in a parse tree.
type SyntaxError struct {
	Line   int // 1-based
	Column int // 0-based byte offset within the line
	// Missing is set when the parser inserted a token that was absent.
	Missing string
	Text    string
}

func (e *SyntaxError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("%d:%d: %s: missing %q", e.Line, e.Column, ErrSyntax, e.Missing)
	}

	return fmt.Sprintf("%d:%d: %s near %q", e.Line, e.Column, ErrSyntax, e.Text)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Check parses code and returns a *SyntaxError for the first ERROR or
// MISSING node, or nil when the code parses cleanly.
func Check(ctx context.Context, code string) error {
	src := []byte(code)

	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("failed to parse source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	bad := firstError(root)
	if bad == nil {
		bad = root
	}

	se := &SyntaxError{
		Line:   int(bad.StartPoint().Row) + 1,
		Column: int(bad.StartPoint().Column),
	}

	if bad.IsMissing() {
		se.Missing = bad.Type()
	} else {
		se.Text = bad.Content(src)
	}

	return se
}

// firstError walks the tree in source order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}

	if !n.HasError() {
		return nil
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}

	return nil
}
