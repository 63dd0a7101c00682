// Package parser turns preprocessed C++ header text into a cppast
// declaration tree using the tree-sitter C++ grammar.
package parser

import (
	"errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"bindgen/internal/cppast"
)

type Parser struct {
	pool *parserPool
}

func New() *Parser {
	lang := sitter.NewLanguage(tree_sitter_cpp.Language())
	return &Parser{pool: newParserPool(lang)}
}

// ParseHeader parses one preprocessed header. The returned namespace is
// the global scope of the header. A nil tree from tree-sitter is the
// only hard failure; localized syntax errors inside the tree degrade to
// partial extraction, since declarations the extractor cannot read are
// simply not bound.
func (p *Parser) ParseHeader(source []byte) (*cppast.Namespace, error) {
	sp := p.pool.get()
	defer p.pool.put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.New("tree-sitter returned no parse tree")
	}
	defer tree.Close()

	e := &extractor{source: source}
	root := &cppast.Namespace{}
	e.scopeChildren(root, tree.RootNode(), nil)
	return root, nil
}
