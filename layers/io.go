package layers

import (
	"fmt"
	"math/rand"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// Input is a placeholder layer that declares the per-sample shape of the
// data entering a network. It performs no computation.
type Input struct {
	base
	shape tensor.Shape
}

// NewInput creates an input layer for vector data of the given size.
func NewInput(size int) *Input {
	return NewInputShape(tensor.Shape{size})
}

// NewInputShape creates an input layer with an explicit per-sample shape,
// e.g. (channels, height, width) for image data.
func NewInputShape(shape tensor.Shape) *Input {
	return &Input{shape: shape.Clone()}
}

// String formats the layer as "Input(10)" or "Input(3, 28, 28)".
func (l *Input) String() string {
	out := "Input("
	for i, dim := range l.shape {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprint(dim)
	}
	return out + ")"
}

// DeclaredInputShape returns the declared per-sample shape.
func (l *Input) DeclaredInputShape() tensor.Shape { return l.shape.Clone() }

func (l *Input) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if err := l.shape.Validate(); err != nil {
		return nil, configErrorf("%s: %v", l, err)
	}
	if in != nil && !in.Equal(l.shape) {
		return nil, shapeErrorf("%s: declared shape %v does not match incoming shape %v", l, l.shape, in)
	}
	return l.shape.Clone(), nil
}

func (l *Input) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := l.OutputShape(in)
	if err != nil {
		return err
	}
	l.resolve(out, out)
	return nil
}

// Output passes the expression through unchanged.
func (l *Input) Output(x expr.Node) expr.Node {
	l.mustBeReady(l)
	return x
}

// Parameters returns nil: an input placeholder has no parameters.
func (l *Input) Parameters() []*Parameter { return nil }

// Output is a linear readout layer. It owns a weight of shape
// (inputSize, size) and a bias of shape (size) and applies no
// nonlinearity. A network requires exactly one, in terminal position.
type Output struct {
	base
	size   int
	weight *Parameter
	bias   *Parameter
}

// NewOutput creates an output layer with the given unit count.
func NewOutput(size int) *Output {
	return &Output{size: size}
}

// Size returns the declared unit count.
func (l *Output) Size() int { return l.size }

// String formats the layer as "Output(1)".
func (l *Output) String() string {
	return fmt.Sprintf("Output(%d)", l.size)
}

// DeclaredInputShape returns nil: the readout adapts to its predecessor.
func (l *Output) DeclaredInputShape() tensor.Shape { return nil }

func (l *Output) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if l.size <= 0 {
		return nil, configErrorf("%s: size must be positive", l)
	}
	if in == nil {
		return nil, shapeErrorf("%s: cannot be the first layer of a network", l)
	}
	if len(in) != 1 {
		return nil, shapeErrorf("%s: expects a vector input, got %v", l, in)
	}
	return tensor.Shape{l.size}, nil
}

func (l *Output) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := l.OutputShape(in)
	if err != nil {
		return err
	}

	weightShape := tensor.Shape{in[0], l.size}
	if l.weight == nil {
		l.weight = newParameter("Output.weight", nil)
		l.bias = newParameter("Output.bias", nil)
	}
	if !weightShape.Equal(l.weight.Shape()) {
		l.weight.SetValue(tensor.Xavier(weightShape, in[0], l.size, rng))
		l.bias.SetValue(tensor.New(tensor.Shape{l.size}))
	}

	l.resolve(in, out)
	return nil
}

func (l *Output) Output(x expr.Node) expr.Node {
	l.mustBeReady(l)
	return expr.Add(expr.MatMul(x, l.weight.Node()), l.bias.Node())
}

func (l *Output) Parameters() []*Parameter {
	if l.weight == nil {
		return nil
	}
	return []*Parameter{l.weight, l.bias}
}
