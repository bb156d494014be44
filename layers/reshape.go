package layers

import (
	"fmt"
	"math/rand"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// Reshape rearranges the non-batch axes of its input. With an explicit
// target shape the element count must match the input's; without one the
// layer flattens all non-batch axes into a single vector.
type Reshape struct {
	base
	target tensor.Shape // nil means flatten
}

// NewReshape creates a reshape layer. With no arguments the layer flattens
// its input.
func NewReshape(target ...int) *Reshape {
	if len(target) == 0 {
		return &Reshape{}
	}
	return &Reshape{target: tensor.Shape(target).Clone()}
}

// String formats the layer as "Reshape(4, 5)" or "Reshape()".
func (l *Reshape) String() string {
	if l.target == nil {
		return "Reshape()"
	}
	out := "Reshape("
	for i, dim := range l.target {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprint(dim)
	}
	return out + ")"
}

// DeclaredInputShape returns nil: a reshape never declares its input.
func (l *Reshape) DeclaredInputShape() tensor.Shape { return nil }

func (l *Reshape) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		return nil, shapeErrorf("%s: input shape unresolved", l)
	}
	if err := in.Validate(); err != nil {
		return nil, shapeErrorf("%s: %v", l, err)
	}
	if l.target == nil {
		return tensor.Shape{in.NumElements()}, nil
	}
	if err := l.target.Validate(); err != nil {
		return nil, configErrorf("%s: %v", l, err)
	}
	if l.target.NumElements() != in.NumElements() {
		return nil, shapeErrorf("%s: cannot reshape %v (%d elements) into %v (%d elements)",
			l, in, in.NumElements(), l.target, l.target.NumElements())
	}
	return l.target.Clone(), nil
}

func (l *Reshape) Initialize(in tensor.Shape, rng *rand.Rand) error {
	out, err := l.OutputShape(in)
	if err != nil {
		return err
	}
	l.resolve(in, out)
	return nil
}

func (l *Reshape) Output(x expr.Node) expr.Node {
	l.mustBeReady(l)
	return expr.Reshape(x, l.outShape)
}

// Parameters returns nil: a reshape has no learnable parameters.
func (l *Reshape) Parameters() []*Parameter { return nil }
