package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/mvp-joe/tagsgen/internal/sanitize"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Syntax extracts records from a tree-sitter parse of the source. Unlike
// Fallback it knows which functions are methods. When no tree can be built it
// degrades to the line pattern.
type Syntax struct {
	language *sitter.Language
	policy   *Policy
}

func NewSyntax(policy *Policy) *Syntax {
	return &Syntax{
		language: sitter.NewLanguage(python.Language()),
		policy:   policy,
	}
}

func (s *Syntax) Name() string { return "syntax" }

func (s *Syntax) Extract(ctx context.Context, unit Unit) (*Result, error) {
	if unit.Path == "" {
		return nil, fmt.Errorf("%s: %w", unit, ErrNoSource)
	}
	source, err := os.ReadFile(unit.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", unit, ErrNoSource, err)
	}
	records, ok := s.Parse(source)
	if ok {
		return &Result{Unit: unit, Records: records}, nil
	}
	records, err = ScanDeclarations(source)
	res := &Result{Unit: unit, Records: records}
	if err != nil {
		res.Partial = fmt.Errorf("%s: %w", unit, err)
	}
	return res, nil
}

// Parse returns the records of source, and false if no syntax tree could be
// built.
func (s *Syntax) Parse(source []byte) ([]tags.Record, bool) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, false
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, false
	}
	defer tree.Close()

	w := &syntaxWalker{source: source, policy: s.policy}
	w.block(tree.RootNode(), "")
	return w.records, true
}

type syntaxWalker struct {
	source  []byte
	policy  *Policy
	records []tags.Record
}

// block records the definitions directly inside node. scope is the dotted
// class path, empty at module level.
func (w *syntaxWalker) block(node *sitter.Node, scope string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "decorated_definition" {
			child = child.ChildByFieldName("definition")
			if child == nil {
				continue
			}
		}

		switch child.Kind() {
		case "class_definition":
			w.class(child, scope)
		case "function_definition":
			w.function(child, scope)
		case "expression_statement":
			if w.policy.RecordVariables() {
				w.assignment(child, scope)
			}
		}
	}
}

func (w *syntaxWalker) class(node *sitter.Node, scope string) {
	name := w.text(node.ChildByFieldName("name"))
	if tags.IsPrivate(name) || name == "" {
		return
	}

	rec := tags.Record{Name: name, Kind: tags.KindClass, Scope: scope, Origin: tags.OriginSyntax}
	if bases := node.ChildByFieldName("superclasses"); bases != nil {
		rec.Signature = tags.Sig(sanitize.ASCII(collapse(w.text(bases))))
	}
	w.records = append(w.records, rec)

	inner := name
	if scope != "" {
		inner = scope + "." + name
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.block(body, inner)
	}
}

func (w *syntaxWalker) function(node *sitter.Node, scope string) {
	name := w.text(node.ChildByFieldName("name"))
	if tags.IsPrivate(name) || name == "" {
		return
	}

	rec := tags.Record{Name: name, Kind: tags.KindFunction, Scope: scope, Origin: tags.OriginSyntax}
	if scope != "" {
		rec.Kind = tags.KindMember
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		rec.Signature = tags.Sig(sanitize.ASCII(w.parameters(params, scope != "")))
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		rec.TypeRef = &tags.TypeRef{Kind: tags.TypeRefTypename, Name: sanitize.ASCII(collapse(w.text(ret)))}
	}
	w.records = append(w.records, rec)
}

// parameters renders a parameter list. Methods lose a leading self or cls.
func (w *syntaxWalker) parameters(node *sitter.Node, method bool) string {
	var parts []string
	first := true
	for i := uint(0); i < node.NamedChildCount(); i++ {
		param := node.NamedChild(i)
		if param == nil || param.Kind() == "comment" {
			continue
		}
		text := collapse(w.text(param))
		if method && first && (text == "self" || text == "cls") {
			first = false
			continue
		}
		first = false
		parts = append(parts, text)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (w *syntaxWalker) assignment(stmt *sitter.Node, scope string) {
	node := stmt.NamedChild(0)
	if node == nil || node.Kind() != "assignment" {
		return
	}
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := w.text(left)
	if tags.IsPrivate(name) || name == "" {
		return
	}

	kind := tags.KindVariable
	switch {
	case scope != "":
		kind = tags.KindMember
	case isConstantName(name):
		kind = tags.KindConstant
	}
	w.records = append(w.records, tags.Record{Name: name, Kind: kind, Scope: scope, Origin: tags.OriginSyntax})
}

func (w *syntaxWalker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(w.source[node.StartByte():node.EndByte()])
}

// collapse folds runs of whitespace, including newlines, into single spaces.
func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
