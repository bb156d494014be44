package layers

import (
	"fmt"
	"math/rand"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// activation implements the shared mechanics of activation layers.
//
// An unsized activation (size 0) is a pure element-wise transformation:
// its output shape equals its input shape and it owns no parameters. A
// sized activation declares `size` units: it requires a vector input,
// produces a vector of `size` elements, and owns a weight of shape
// (inputSize, size) plus a bias of shape (size).
//
// A sized activation at the head of a network (initialized with a nil
// input shape) declares its own input shape and applies only the
// nonlinearity, without incoming weights.
type activation struct {
	base
	name   string
	size   int
	fn     func(expr.Node) expr.Node
	weight *Parameter
	bias   *Parameter
}

// Size returns the declared unit count, or 0 for an unsized activation.
func (a *activation) Size() int { return a.size }

// String formats the layer as "Sigmoid(10)" or "Relu()".
func (a *activation) String() string {
	if a.size == 0 {
		return fmt.Sprintf("%s()", a.name)
	}
	return fmt.Sprintf("%s(%d)", a.name, a.size)
}

// DeclaredInputShape returns (size,) for a sized activation, nil otherwise.
func (a *activation) DeclaredInputShape() tensor.Shape {
	if a.size > 0 {
		return tensor.Shape{a.size}
	}
	return nil
}

func (a *activation) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if a.size < 0 {
		return nil, configErrorf("%s: negative size %d", a, a.size)
	}
	if in == nil {
		if a.size == 0 {
			return nil, shapeErrorf("%s: input shape unresolved", a)
		}
		return tensor.Shape{a.size}, nil
	}
	if err := in.Validate(); err != nil {
		return nil, shapeErrorf("%s: %v", a, err)
	}
	if a.size == 0 {
		return in.Clone(), nil
	}
	if len(in) != 1 {
		return nil, shapeErrorf("%s: expects a vector input, got %v", a, in)
	}
	return tensor.Shape{a.size}, nil
}

func (a *activation) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := a.OutputShape(in)
	if err != nil {
		return err
	}

	if a.size > 0 && in != nil {
		a.allocate(in[0], rng)
	}
	a.resolve(in, out)
	return nil
}

// allocate creates or re-shapes the dense parameters. Existing parameter
// objects are reused; values are kept when the shape is unchanged.
func (a *activation) allocate(inSize int, rng *rand.Rand) {
	weightShape := tensor.Shape{inSize, a.size}
	if a.weight == nil {
		a.weight = newParameter(a.name+".weight", nil)
		a.bias = newParameter(a.name+".bias", nil)
	}
	if !weightShape.Equal(a.weight.Shape()) {
		a.weight.SetValue(tensor.Xavier(weightShape, inSize, a.size, rng))
		a.bias.SetValue(tensor.New(tensor.Shape{a.size}))
	}
}

// preactivation builds the dense part of the forward expression, or returns
// x unchanged for pure activations.
func (a *activation) preactivation(x expr.Node) expr.Node {
	if a.weight == nil || a.weight.Value() == nil {
		return x
	}
	return expr.Add(expr.MatMul(x, a.weight.Node()), a.bias.Node())
}

func (a *activation) Output(x expr.Node) expr.Node {
	a.mustBeReady(a)
	return a.fn(a.preactivation(x))
}

func (a *activation) Parameters() []*Parameter {
	if a.weight == nil {
		return nil
	}
	return []*Parameter{a.weight, a.bias}
}

// Sigmoid is a logistic activation layer.
type Sigmoid struct{ activation }

// NewSigmoid creates a sigmoid layer with the given unit count (0 for a
// pure element-wise layer).
func NewSigmoid(size int) *Sigmoid {
	l := &Sigmoid{}
	l.name, l.size, l.fn = "Sigmoid", size, expr.Sigmoid
	return l
}

// HardSigmoid is a piecewise-linear approximation of the sigmoid.
type HardSigmoid struct{ activation }

// NewHardSigmoid creates a hard-sigmoid layer.
func NewHardSigmoid(size int) *HardSigmoid {
	l := &HardSigmoid{}
	l.name, l.size, l.fn = "HardSigmoid", size, expr.HardSigmoid
	return l
}

// Tanh is a hyperbolic tangent activation layer.
type Tanh struct{ activation }

// NewTanh creates a tanh layer.
func NewTanh(size int) *Tanh {
	l := &Tanh{}
	l.name, l.size, l.fn = "Tanh", size, expr.Tanh
	return l
}

// Relu is a rectifier activation layer with an optional leak coefficient.
type Relu struct{ activation }

// NewRelu creates a relu layer.
func NewRelu(size int) *Relu {
	return NewLeakyRelu(size, 0)
}

// NewLeakyRelu creates a relu layer that scales negative inputs by alpha.
func NewLeakyRelu(size int, alpha float32) *Relu {
	l := &Relu{}
	l.name, l.size = "Relu", size
	l.fn = func(x expr.Node) expr.Node { return expr.Relu(x, alpha) }
	return l
}

// Softplus is a smooth rectifier activation layer.
type Softplus struct{ activation }

// NewSoftplus creates a softplus layer.
func NewSoftplus(size int) *Softplus {
	l := &Softplus{}
	l.name, l.size, l.fn = "Softplus", size, expr.Softplus
	return l
}

// Softmax is a normalized exponential activation layer.
type Softmax struct{ activation }

// NewSoftmax creates a softmax layer.
func NewSoftmax(size int) *Softmax {
	l := &Softmax{}
	l.name, l.size, l.fn = "Softmax", size, expr.Softmax
	return l
}

// Elu is an exponential linear unit activation layer.
type Elu struct{ activation }

// NewElu creates an elu layer that maps negative inputs to
// alpha*(exp(x) - 1).
func NewElu(size int, alpha float32) *Elu {
	l := &Elu{}
	l.name, l.size = "Elu", size
	l.fn = func(x expr.Node) expr.Node { return expr.Elu(x, alpha) }
	return l
}

// Step is a Heaviside step activation layer. Its gradient is zero, so it is
// only useful for inference-time thresholding.
type Step struct{ activation }

// NewStep creates a step layer.
func NewStep(size int) *Step {
	l := &Step{}
	l.name, l.size, l.fn = "Step", size, expr.Step
	return l
}

// Linear is an identity activation layer.
type Linear struct{ activation }

// NewLinear creates a linear layer.
func NewLinear(size int) *Linear {
	l := &Linear{}
	l.name, l.size = "Linear", size
	l.fn = func(x expr.Node) expr.Node { return x }
	return l
}
