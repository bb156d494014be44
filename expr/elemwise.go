package expr

import (
	"math"

	"github.com/wgalvao/neupy/tensor"
)

// elemwise is an element-wise unary operation. deriv computes the local
// derivative from the input value x and the output value y, which keeps
// backward passes cheap for activations whose derivative is a function of
// their output (sigmoid, tanh, elu).
type elemwise struct {
	x     Node
	name  string
	fn    func(x float32) float32
	deriv func(x, y float32) float32
}

func (n *elemwise) inputs() []Node { return []Node{n.x} }

func (n *elemwise) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return xs[0].Apply(n.fn), nil
}

func (n *elemwise) backward(g *tensor.Tensor, xs []*tensor.Tensor, out *tensor.Tensor) ([]*tensor.Tensor, error) {
	gx := tensor.New(xs[0].Shape())
	gd, xd, yd, od := gx.Data(), xs[0].Data(), out.Data(), g.Data()
	for i := range gd {
		gd[i] = od[i] * n.deriv(xd[i], yd[i])
	}
	return []*tensor.Tensor{gx}, nil
}

func sigmoid32(x float32) float32 {
	return 1 / (1 + float32(math.Exp(float64(-x))))
}

// Sigmoid builds the logistic function 1 / (1 + exp(-x)).
func Sigmoid(x Node) Node {
	return &elemwise{
		x:     x,
		name:  "sigmoid",
		fn:    sigmoid32,
		deriv: func(_, y float32) float32 { return y * (1 - y) },
	}
}

// Tanh builds the hyperbolic tangent.
func Tanh(x Node) Node {
	return &elemwise{
		x:     x,
		name:  "tanh",
		fn:    func(v float32) float32 { return float32(math.Tanh(float64(v))) },
		deriv: func(_, y float32) float32 { return 1 - y*y },
	}
}

// Relu builds the rectifier with an optional leak coefficient:
// x for x > 0, alpha*x otherwise.
func Relu(x Node, alpha float32) Node {
	return &elemwise{
		x:    x,
		name: "relu",
		fn: func(v float32) float32 {
			if v > 0 {
				return v
			}
			return alpha * v
		},
		deriv: func(v, _ float32) float32 {
			if v > 0 {
				return 1
			}
			return alpha
		},
	}
}

// Softplus builds log(1 + exp(x)).
func Softplus(x Node) Node {
	return &elemwise{
		x:     x,
		name:  "softplus",
		fn:    func(v float32) float32 { return float32(math.Log1p(math.Exp(float64(v)))) },
		deriv: func(v, _ float32) float32 { return sigmoid32(v) },
	}
}

// Elu builds the exponential linear unit: x for x > 0,
// alpha*(exp(x) - 1) otherwise.
func Elu(x Node, alpha float32) Node {
	return &elemwise{
		x:    x,
		name: "elu",
		fn: func(v float32) float32 {
			if v > 0 {
				return v
			}
			return alpha * float32(math.Expm1(float64(v)))
		},
		deriv: func(v, y float32) float32 {
			if v > 0 {
				return 1
			}
			return y + alpha
		},
	}
}

// HardSigmoid builds the piecewise-linear sigmoid approximation
// clamp(0.2*x + 0.5, 0, 1).
func HardSigmoid(x Node) Node {
	return &elemwise{
		x:    x,
		name: "hard_sigmoid",
		fn: func(v float32) float32 {
			y := 0.2*v + 0.5
			if y < 0 {
				return 0
			}
			if y > 1 {
				return 1
			}
			return y
		},
		deriv: func(_, y float32) float32 {
			if y <= 0 || y >= 1 {
				return 0
			}
			return 0.2
		},
	}
}

// Step builds the Heaviside step function: 1 for x > 0, 0 otherwise.
// Its gradient is zero everywhere.
func Step(x Node) Node {
	return &elemwise{
		x:    x,
		name: "step",
		fn: func(v float32) float32 {
			if v > 0 {
				return 1
			}
			return 0
		},
		deriv: func(_, _ float32) float32 { return 0 },
	}
}

// Maximum0 builds max(x, 0), the positive part of x.
func Maximum0(x Node) Node {
	return &elemwise{
		x:    x,
		name: "maximum0",
		fn: func(v float32) float32 {
			if v > 0 {
				return v
			}
			return 0
		},
		deriv: func(v, _ float32) float32 {
			if v > 0 {
				return 1
			}
			return 0
		},
	}
}

// Minimum0 builds min(x, 0), the negative part of x.
func Minimum0(x Node) Node {
	return &elemwise{
		x:    x,
		name: "minimum0",
		fn: func(v float32) float32 {
			if v < 0 {
				return v
			}
			return 0
		},
		deriv: func(v, _ float32) float32 {
			if v < 0 {
				return 1
			}
			return 0
		},
	}
}

type softmaxNode struct{ x Node }

// Softmax builds a numerically stable softmax over the last axis.
func Softmax(x Node) Node { return &softmaxNode{x: x} }

func (n *softmaxNode) inputs() []Node { return []Node{n.x} }

func (n *softmaxNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	in := xs[0]
	shape := in.Shape()
	width := shape[len(shape)-1]
	out := tensor.New(shape)
	xd, od := in.Data(), out.Data()

	for row := 0; row < len(xd); row += width {
		maxVal := xd[row]
		for i := 1; i < width; i++ {
			if xd[row+i] > maxVal {
				maxVal = xd[row+i]
			}
		}
		var sum float32
		for i := 0; i < width; i++ {
			od[row+i] = float32(math.Exp(float64(xd[row+i] - maxVal)))
			sum += od[row+i]
		}
		for i := 0; i < width; i++ {
			od[row+i] /= sum
		}
	}
	return out, nil
}

func (n *softmaxNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, out *tensor.Tensor) ([]*tensor.Tensor, error) {
	shape := out.Shape()
	width := shape[len(shape)-1]
	gx := tensor.New(shape)
	gd, yd, od := g.Data(), out.Data(), gx.Data()

	for row := 0; row < len(yd); row += width {
		var dot float32
		for i := 0; i < width; i++ {
			dot += gd[row+i] * yd[row+i]
		}
		for i := 0; i < width; i++ {
			od[row+i] = yd[row+i] * (gd[row+i] - dot)
		}
	}
	return []*tensor.Tensor{gx}, nil
}
