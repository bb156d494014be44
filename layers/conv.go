package layers

import (
	"fmt"
	"math/rand"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// Convolution is a 2D cross-correlation layer without padding unless
// configured otherwise.
//
// Input shape:  (channels, height, width)
// Kernel shape: (filters, channels, kernelH, kernelW)
// Bias shape:   (filters,)
// Output shape: (filters, outH, outW) with
// out = floor((in + 2*padding - kernel) / stride) + 1 per spatial axis.
type Convolution struct {
	base
	filters int
	kernelH int
	kernelW int
	stride  int
	padding int

	kernel *Parameter
	bias   *Parameter
}

// NewConvolution creates a convolution layer with stride 1 and no padding.
func NewConvolution(filters, kernelH, kernelW int) *Convolution {
	return NewConvolutionStride(filters, kernelH, kernelW, 1, 0)
}

// NewConvolutionStride creates a convolution layer with explicit stride and
// zero padding.
func NewConvolutionStride(filters, kernelH, kernelW, stride, padding int) *Convolution {
	return &Convolution{
		filters: filters,
		kernelH: kernelH,
		kernelW: kernelW,
		stride:  stride,
		padding: padding,
	}
}

// String formats the layer as "Convolution(5, 3, 3)".
func (l *Convolution) String() string {
	return fmt.Sprintf("Convolution(%d, %d, %d)", l.filters, l.kernelH, l.kernelW)
}

// DeclaredInputShape returns nil: a convolution never declares its input.
func (l *Convolution) DeclaredInputShape() tensor.Shape { return nil }

func (l *Convolution) checkConfig() error {
	if l.filters <= 0 {
		return configErrorf("%s: filter count must be positive", l)
	}
	if l.kernelH <= 0 || l.kernelW <= 0 {
		return configErrorf("%s: kernel dimensions must be positive", l)
	}
	if l.stride <= 0 {
		return configErrorf("%s: stride must be positive", l)
	}
	if l.padding < 0 {
		return configErrorf("%s: padding must be non-negative", l)
	}
	return nil
}

func (l *Convolution) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if err := l.checkConfig(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, shapeErrorf("%s: input shape unresolved", l)
	}
	if len(in) != 3 {
		return nil, shapeErrorf("%s: expects a (channels, height, width) input, got %v", l, in)
	}

	outH := tensor.Conv2DOutputSize(in[1], l.kernelH, l.stride, l.padding)
	outW := tensor.Conv2DOutputSize(in[2], l.kernelW, l.stride, l.padding)
	if outH <= 0 || outW <= 0 {
		return nil, shapeErrorf("%s: kernel (%d, %d) larger than input (%d, %d)",
			l, l.kernelH, l.kernelW, in[1], in[2])
	}
	return tensor.Shape{l.filters, outH, outW}, nil
}

func (l *Convolution) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := l.OutputShape(in)
	if err != nil {
		return err
	}

	kernelShape := tensor.Shape{l.filters, in[0], l.kernelH, l.kernelW}
	if l.kernel == nil {
		l.kernel = newParameter("Convolution.kernel", nil)
		l.bias = newParameter("Convolution.bias", nil)
	}
	if !kernelShape.Equal(l.kernel.Shape()) {
		fanIn := in[0] * l.kernelH * l.kernelW
		fanOut := l.filters * l.kernelH * l.kernelW
		l.kernel.SetValue(tensor.Xavier(kernelShape, fanIn, fanOut, rng))
		l.bias.SetValue(tensor.New(tensor.Shape{l.filters}))
	}

	l.resolve(in, out)
	return nil
}

func (l *Convolution) Output(x expr.Node) expr.Node {
	l.mustBeReady(l)
	conv := expr.Conv2D(x, l.kernel.Node(), l.stride, l.padding)
	bias := expr.ReshapeTo(l.bias.Node(), tensor.Shape{l.filters, 1, 1})
	return expr.Add(conv, bias)
}

func (l *Convolution) Parameters() []*Parameter {
	if l.kernel == nil {
		return nil
	}
	return []*Parameter{l.kernel, l.bias}
}
