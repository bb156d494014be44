package layers

import (
	"fmt"
	"math/rand"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// SliceChannels extracts the contiguous channel range [start, end) along
// the channel axis, preserving the batch and spatial axes.
type SliceChannels struct {
	base
	start int
	end   int
}

// NewSliceChannels creates a channel-slicing layer for the range
// [start, end).
func NewSliceChannels(start, end int) *SliceChannels {
	return &SliceChannels{start: start, end: end}
}

// String formats the layer as "SliceChannels(0, 30)".
func (l *SliceChannels) String() string {
	return fmt.Sprintf("SliceChannels(%d, %d)", l.start, l.end)
}

// DeclaredInputShape returns nil: a slice never declares its input.
func (l *SliceChannels) DeclaredInputShape() tensor.Shape { return nil }

func (l *SliceChannels) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if l.start < 0 || l.end <= l.start {
		return nil, configErrorf("%s: invalid channel range", l)
	}
	if in == nil {
		return nil, shapeErrorf("%s: input shape unresolved", l)
	}
	if len(in) < 1 {
		return nil, shapeErrorf("%s: expects a channeled input, got %v", l, in)
	}
	if l.end > in[0] {
		return nil, shapeErrorf("%s: range exceeds %d input channels", l, in[0])
	}

	out := in.Clone()
	out[0] = l.end - l.start
	return out, nil
}

func (l *SliceChannels) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := l.OutputShape(in)
	if err != nil {
		return err
	}
	l.resolve(in, out)
	return nil
}

func (l *SliceChannels) Output(x expr.Node) expr.Node {
	l.mustBeReady(l)
	return expr.SliceChannels(x, l.start, l.end)
}

// Parameters returns nil: a slice has no learnable parameters.
func (l *SliceChannels) Parameters() []*Parameter { return nil }
