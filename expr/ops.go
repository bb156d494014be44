package expr

import (
	"fmt"

	"github.com/wgalvao/neupy/tensor"
)

type addNode struct{ a, b Node }

// Add builds the broadcasting element-wise sum of two expressions.
func Add(a, b Node) Node { return &addNode{a: a, b: b} }

func (n *addNode) inputs() []Node { return []Node{n.a, n.b} }

func (n *addNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Add(xs[0], xs[1])
}

func (n *addNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	ga, err := g.SumTo(xs[0].Shape())
	if err != nil {
		return nil, err
	}
	gb, err := g.SumTo(xs[1].Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{ga, gb}, nil
}

type subNode struct{ a, b Node }

// Sub builds the broadcasting element-wise difference of two expressions.
func Sub(a, b Node) Node { return &subNode{a: a, b: b} }

func (n *subNode) inputs() []Node { return []Node{n.a, n.b} }

func (n *subNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Sub(xs[0], xs[1])
}

func (n *subNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	ga, err := g.SumTo(xs[0].Shape())
	if err != nil {
		return nil, err
	}
	gb, err := g.Scale(-1).SumTo(xs[1].Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{ga, gb}, nil
}

type mulNode struct{ a, b Node }

// Mul builds the broadcasting element-wise product of two expressions.
func Mul(a, b Node) Node { return &mulNode{a: a, b: b} }

func (n *mulNode) inputs() []Node { return []Node{n.a, n.b} }

func (n *mulNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Mul(xs[0], xs[1])
}

func (n *mulNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	gxb, err := tensor.Mul(g, xs[1])
	if err != nil {
		return nil, err
	}
	ga, err := gxb.SumTo(xs[0].Shape())
	if err != nil {
		return nil, err
	}
	gxa, err := tensor.Mul(g, xs[0])
	if err != nil {
		return nil, err
	}
	gb, err := gxa.SumTo(xs[1].Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{ga, gb}, nil
}

type matMulNode struct{ a, b Node }

// MatMul builds the matrix product of two 2D expressions.
func MatMul(a, b Node) Node { return &matMulNode{a: a, b: b} }

func (n *matMulNode) inputs() []Node { return []Node{n.a, n.b} }

func (n *matMulNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.MatMul(xs[0], xs[1])
}

func (n *matMulNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	bt, err := xs[1].Transpose()
	if err != nil {
		return nil, err
	}
	ga, err := tensor.MatMul(g, bt)
	if err != nil {
		return nil, err
	}
	at, err := xs[0].Transpose()
	if err != nil {
		return nil, err
	}
	gb, err := tensor.MatMul(at, g)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{ga, gb}, nil
}

type conv2DNode struct {
	x, kernel Node
	stride    int
	padding   int
}

// Conv2D builds a 2D cross-correlation of a batched input expression
// [N, C, H, W] with a kernel expression [F, C, KH, KW].
func Conv2D(x, kernel Node, stride, padding int) Node {
	return &conv2DNode{x: x, kernel: kernel, stride: stride, padding: padding}
}

func (n *conv2DNode) inputs() []Node { return []Node{n.x, n.kernel} }

func (n *conv2DNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Conv2D(xs[0], xs[1], n.stride, n.padding)
}

func (n *conv2DNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	inGrad, kernelGrad, err := tensor.Conv2DBackward(xs[0], xs[1], g, n.stride, n.padding)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{inGrad, kernelGrad}, nil
}

type reshapeNode struct {
	x      Node
	target tensor.Shape // per-sample shape, batch axis preserved
}

// Reshape builds a batch-preserving reshape: a tensor of shape
// (batch, ...) becomes (batch, target...).
func Reshape(x Node, target tensor.Shape) Node {
	return &reshapeNode{x: x, target: target.Clone()}
}

func (n *reshapeNode) inputs() []Node { return []Node{n.x} }

func (n *reshapeNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	in := xs[0]
	if len(in.Shape()) < 1 {
		return nil, fmt.Errorf("reshape expects a batched tensor, got %v", in.Shape())
	}
	shape := append(tensor.Shape{in.Shape()[0]}, n.target...)
	return in.Reshape(shape)
}

func (n *reshapeNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	gx, err := g.Reshape(xs[0].Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gx}, nil
}

type reshapeToNode struct {
	x     Node
	shape tensor.Shape
}

// ReshapeTo builds an exact reshape of the whole tensor, batch axis
// included. It is used to align parameter tensors for broadcasting.
func ReshapeTo(x Node, shape tensor.Shape) Node {
	return &reshapeToNode{x: x, shape: shape.Clone()}
}

func (n *reshapeToNode) inputs() []Node { return []Node{n.x} }

func (n *reshapeToNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return xs[0].Reshape(n.shape)
}

func (n *reshapeToNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	gx, err := g.Reshape(xs[0].Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gx}, nil
}

type sliceChannelsNode struct {
	x          Node
	start, end int
}

// SliceChannels builds a contiguous channel-range extraction [start, end)
// along axis 1 of a batched tensor.
func SliceChannels(x Node, start, end int) Node {
	return &sliceChannelsNode{x: x, start: start, end: end}
}

func (n *sliceChannelsNode) inputs() []Node { return []Node{n.x} }

func (n *sliceChannelsNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return xs[0].SliceChannels(n.start, n.end)
}

func (n *sliceChannelsNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	gx, err := g.PadChannels(n.start, xs[0].Shape()[1])
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gx}, nil
}

type meanNode struct{ x Node }

// Mean builds the scalar mean of all elements of an expression.
func Mean(x Node) Node { return &meanNode{x: x} }

func (n *meanNode) inputs() []Node { return []Node{n.x} }

func (n *meanNode) forward(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.FromSlice([]float32{xs[0].Mean()}, tensor.Shape{1})
}

func (n *meanNode) backward(g *tensor.Tensor, xs []*tensor.Tensor, _ *tensor.Tensor) ([]*tensor.Tensor, error) {
	scale := g.Data()[0] / float32(xs[0].Shape().NumElements())
	return []*tensor.Tensor{tensor.Full(xs[0].Shape(), scale)}, nil
}
