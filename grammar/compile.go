package grammar

import (
	"errors"

	"github.com/ava12/gramform/tree"
)

var errNilClosure = errors.New("nil closure")

func (g *Grammar[A, R, C, F]) compileNode(n *tree.Node) (Closure[A, R, C], error) {
	if n.IsLeaf() {
		return g.compileLeaf(n)
	}

	children := make([]Closure[A, R, C], len(n.Children))
	for i, child := range n.Children {
		c, e := g.compileNode(child)
		if e != nil {
			return nil, e
		}

		children[i] = c
	}

	p := g.transforms.prims[n.Op]
	params, e := p.Literals[n.Literal].params(n.Params)
	if e != nil {
		return nil, paramError(n, e)
	}

	c, e := p.Combine(children, params)
	if e == nil && c == nil {
		e = errNilClosure
	}
	if e != nil {
		return nil, combinatorError(n, e)
	}

	return c, nil
}

func (g *Grammar[A, R, C, F]) compileLeaf(n *tree.Node) (Closure[A, R, C], error) {
	if g.leaf == nil {
		return nil, unresolvedLeafError(n)
	}

	c, e := g.leaf(n.Text)
	if e == nil && c == nil {
		e = errNilClosure
	}
	if e != nil {
		return nil, leafError(n, e)
	}

	return c, nil
}
