// Package expr builds symbolic tensor expressions and evaluates them with
// reverse-mode automatic differentiation.
//
// An expression is a DAG of Nodes: Input placeholders, shared Param leaves,
// and operation nodes. A Function binds an output node to its placeholders
// and produces a callable that is safe for concurrent use; parameter values
// are shared mutable storage, so repeated calls observe the latest values.
package expr

import (
	"fmt"

	"github.com/wgalvao/neupy/tensor"
)

// Node is a single vertex of an expression graph.
type Node interface {
	inputs() []Node
	forward(xs []*tensor.Tensor) (*tensor.Tensor, error)
	// backward returns one gradient per input given the output gradient,
	// the evaluated inputs and the evaluated output. A nil entry means no
	// gradient flows to that input.
	backward(grad *tensor.Tensor, xs []*tensor.Tensor, out *tensor.Tensor) ([]*tensor.Tensor, error)
}

// Input is a placeholder for a runtime tensor argument.
type Input struct {
	name string
}

// NewInput creates a named placeholder.
func NewInput(name string) *Input {
	return &Input{name: name}
}

// Name returns the placeholder name.
func (in *Input) Name() string { return in.name }

func (in *Input) inputs() []Node { return nil }

func (in *Input) forward([]*tensor.Tensor) (*tensor.Tensor, error) {
	return nil, fmt.Errorf("placeholder %q has no bound value", in.name)
}

func (in *Input) backward(*tensor.Tensor, []*tensor.Tensor, *tensor.Tensor) ([]*tensor.Tensor, error) {
	return nil, nil
}

// Param is a shared, mutable parameter leaf. The same Param may appear in
// any number of expressions; all of them observe value updates.
type Param struct {
	name  string
	value *tensor.Tensor
}

// NewParam creates a parameter leaf holding the given initial value.
func NewParam(name string, value *tensor.Tensor) *Param {
	return &Param{name: name, value: value}
}

// Name returns the parameter name.
func (p *Param) Name() string { return p.name }

// Value returns the current parameter tensor.
func (p *Param) Value() *tensor.Tensor { return p.value }

// SetValue replaces the parameter tensor.
func (p *Param) SetValue(value *tensor.Tensor) { p.value = value }

func (p *Param) inputs() []Node { return nil }

func (p *Param) forward([]*tensor.Tensor) (*tensor.Tensor, error) {
	if p.value == nil {
		return nil, fmt.Errorf("parameter %q has no value", p.name)
	}
	return p.value, nil
}

func (p *Param) backward(*tensor.Tensor, []*tensor.Tensor, *tensor.Tensor) ([]*tensor.Tensor, error) {
	return nil, nil
}

// Function is a compiled expression: an output node plus the placeholders it
// is evaluated against, with a precomputed topological order.
type Function struct {
	output Node
	ins    []*Input
	order  []Node
}

// NewFunction compiles an expression into a callable function of the given
// placeholders.
func NewFunction(output Node, ins ...*Input) *Function {
	return &Function{
		output: output,
		ins:    ins,
		order:  topoSort(output),
	}
}

// topoSort returns the nodes reachable from out in dependency order.
func topoSort(out Node) []Node {
	var order []Node
	seen := make(map[Node]bool)

	var visit func(n Node)
	visit = func(n Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, in := range n.inputs() {
			visit(in)
		}
		order = append(order, n)
	}
	visit(out)
	return order
}

// Call evaluates the function for the given arguments, one per placeholder.
//
// Call holds no per-invocation state on the Function and is safe for
// concurrent use.
func (f *Function) Call(args ...*tensor.Tensor) (*tensor.Tensor, error) {
	vals, err := f.eval(args)
	if err != nil {
		return nil, err
	}
	return vals[f.output], nil
}

func (f *Function) eval(args []*tensor.Tensor) (map[Node]*tensor.Tensor, error) {
	if len(args) != len(f.ins) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(f.ins), len(args))
	}

	vals := make(map[Node]*tensor.Tensor, len(f.order))
	for i, in := range f.ins {
		vals[in] = args[i]
	}

	for _, n := range f.order {
		if _, ok := vals[n]; ok {
			continue
		}
		deps := n.inputs()
		xs := make([]*tensor.Tensor, len(deps))
		for i, d := range deps {
			xs[i] = vals[d]
		}
		out, err := n.forward(xs)
		if err != nil {
			return nil, err
		}
		vals[n] = out
	}
	return vals, nil
}

// Grad evaluates the function and backpropagates from its (scalar) output,
// returning the output value and the gradient of every parameter leaf.
func (f *Function) Grad(args ...*tensor.Tensor) (*tensor.Tensor, map[*Param]*tensor.Tensor, error) {
	vals, err := f.eval(args)
	if err != nil {
		return nil, nil, err
	}

	out := vals[f.output]
	if out.Shape().NumElements() != 1 {
		return nil, nil, fmt.Errorf("gradient requires a scalar output, got shape %v", out.Shape())
	}

	grads := make(map[Node]*tensor.Tensor, len(f.order))
	grads[f.output] = tensor.Ones(out.Shape())

	// Walk the graph in reverse dependency order, applying the chain rule
	// and accumulating gradients where a node fans out.
	for i := len(f.order) - 1; i >= 0; i-- {
		n := f.order[i]
		g, ok := grads[n]
		if !ok {
			continue
		}
		deps := n.inputs()
		if len(deps) == 0 {
			continue
		}
		xs := make([]*tensor.Tensor, len(deps))
		for j, d := range deps {
			xs[j] = vals[d]
		}
		inGrads, err := n.backward(g, xs, vals[n])
		if err != nil {
			return nil, nil, err
		}
		for j, d := range deps {
			if j >= len(inGrads) || inGrads[j] == nil {
				continue
			}
			if existing, ok := grads[d]; ok {
				if err := existing.AddInPlace(inGrads[j]); err != nil {
					return nil, nil, err
				}
			} else {
				grads[d] = inGrads[j]
			}
		}
	}

	paramGrads := make(map[*Param]*tensor.Tensor)
	for _, n := range f.order {
		if p, ok := n.(*Param); ok {
			if g, ok := grads[p]; ok {
				paramGrads[p] = g
			}
		}
	}
	return out, paramGrads, nil
}
