package layers

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// PRelu is a parametric rectifier: positive inputs pass through, negative
// inputs are scaled by a learnable coefficient tensor.
//
// The coefficient varies along the configured broadcast axes and is shared
// across all other axes. Axes index the batched tensor: axis 0 is the batch
// axis and is never a valid broadcast axis, since a per-sample coefficient
// would allocate one parameter per sample.
type PRelu struct {
	base
	size      int
	alphaInit float32
	axes      []int

	weight *Parameter
	bias   *Parameter
	alpha  *Parameter

	// broadcastShape aligns the coefficient with the batched input for
	// element-wise multiplication; computed at initialization.
	broadcastShape tensor.Shape
}

// NewPRelu creates a parametric rectifier layer.
//
// size follows the sized-activation convention (0 for a pure element-wise
// layer). alpha is the initial coefficient value. axes selects the batched
// tensor axes along which the coefficient varies; when omitted, the last
// axis is used.
func NewPRelu(size int, alpha float32, axes ...int) *PRelu {
	sorted := append([]int(nil), axes...)
	sort.Ints(sorted)
	return &PRelu{size: size, alphaInit: alpha, axes: sorted}
}

// Size returns the declared unit count, or 0 for an unsized layer.
func (l *PRelu) Size() int { return l.size }

// String formats the layer as "PRelu(10)" or "PRelu()".
func (l *PRelu) String() string {
	if l.size == 0 {
		return "PRelu()"
	}
	return fmt.Sprintf("PRelu(%d)", l.size)
}

// DeclaredInputShape returns (size,) for a sized layer, nil otherwise.
func (l *PRelu) DeclaredInputShape() tensor.Shape {
	if l.size > 0 {
		return tensor.Shape{l.size}
	}
	return nil
}

// OutputShape follows the sized-activation convention: identity for an
// unsized layer, (size,) for a sized one.
func (l *PRelu) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if l.size < 0 {
		return nil, configErrorf("%s: negative size %d", l, l.size)
	}
	if in == nil {
		if l.size == 0 {
			return nil, shapeErrorf("%s: input shape unresolved", l)
		}
		return tensor.Shape{l.size}, nil
	}
	if err := in.Validate(); err != nil {
		return nil, shapeErrorf("%s: %v", l, err)
	}
	if l.size == 0 {
		return in.Clone(), nil
	}
	if len(in) != 1 {
		return nil, shapeErrorf("%s: expects a vector input, got %v", l, in)
	}
	return tensor.Shape{l.size}, nil
}

func (l *PRelu) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := l.OutputShape(in)
	if err != nil {
		return err
	}

	axes := l.axes
	if len(axes) == 0 {
		// Default: coefficients vary along the last batched axis.
		axes = []int{len(out)}
	}

	// Axes index the batched output of rank len(out)+1.
	rank := len(out) + 1
	alphaShape := make(tensor.Shape, 0, len(axes))
	for _, axis := range axes {
		if axis == 0 {
			return configErrorf("%s: axis 0 is the batch axis and cannot hold per-axis coefficients", l)
		}
		if axis < 0 || axis >= rank {
			return configErrorf("%s: broadcast axis %d out of range for rank %d", l, axis, rank)
		}
		alphaShape = append(alphaShape, out[axis-1])
	}

	broadcastShape := make(tensor.Shape, rank-1)
	for i := range broadcastShape {
		broadcastShape[i] = 1
	}
	for _, axis := range axes {
		broadcastShape[axis-1] = out[axis-1]
	}

	if l.alpha == nil {
		l.alpha = newParameter("PRelu.alpha", nil)
	}
	if !alphaShape.Equal(l.alpha.Shape()) {
		l.alpha.SetValue(tensor.Full(alphaShape, l.alphaInit))
	}
	l.broadcastShape = broadcastShape

	if l.size > 0 && in != nil {
		weightShape := tensor.Shape{in[0], l.size}
		if l.weight == nil {
			l.weight = newParameter("PRelu.weight", nil)
			l.bias = newParameter("PRelu.bias", nil)
		}
		if !weightShape.Equal(l.weight.Shape()) {
			l.weight.SetValue(tensor.Xavier(weightShape, in[0], l.size, rng))
			l.bias.SetValue(tensor.New(tensor.Shape{l.size}))
		}
	}

	l.resolve(in, out)
	return nil
}

// Alpha returns the coefficient parameter, or nil before initialization.
func (l *PRelu) Alpha() *Parameter { return l.alpha }

func (l *PRelu) Output(x expr.Node) expr.Node {
	l.mustBeReady(l)

	pre := x
	if l.weight != nil && l.weight.Value() != nil {
		pre = expr.Add(expr.MatMul(x, l.weight.Node()), l.bias.Node())
	}

	coeff := expr.ReshapeTo(l.alpha.Node(), l.broadcastShape)
	return expr.Add(expr.Maximum0(pre), expr.Mul(expr.Minimum0(pre), coeff))
}

func (l *PRelu) Parameters() []*Parameter {
	if l.alpha == nil {
		return nil
	}
	params := []*Parameter{l.alpha}
	if l.weight != nil {
		params = append(params, l.weight, l.bias)
	}
	return params
}
