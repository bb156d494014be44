package layers

import (
	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// Parameter is a learnable tensor owned by a layer: a named expression-graph
// leaf plus its current value.
//
// The underlying storage is shared with every expression the parameter
// appears in, so in-place value updates (as performed by optimizers) are
// immediately visible to compiled prediction functions.
type Parameter struct {
	name string
	node *expr.Param
}

func newParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{name: name, node: expr.NewParam(name, value)}
}

// Name returns the parameter name (e.g. "sigmoid.weight").
func (p *Parameter) Name() string { return p.name }

// Node returns the expression-graph leaf for this parameter.
func (p *Parameter) Node() *expr.Param { return p.node }

// Value returns the current parameter tensor.
func (p *Parameter) Value() *tensor.Tensor { return p.node.Value() }

// SetValue replaces the parameter tensor.
func (p *Parameter) SetValue(value *tensor.Tensor) { p.node.SetValue(value) }

// Shape returns the shape of the current value, or nil when unallocated.
func (p *Parameter) Shape() tensor.Shape {
	if p.node.Value() == nil {
		return nil
	}
	return p.node.Value().Shape()
}
