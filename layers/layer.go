// Package layers defines the layer variants a network graph is composed of.
//
// A layer has a two-phase lifecycle. Construction records pure
// configuration and allocates nothing. Initialize resolves the layer's
// input shape (propagated from its predecessor by the network initializer)
// and allocates any parameters whose shape depends on it. Only an
// initialized layer may build its forward expression with Output.
package layers

import (
	"fmt"
	"math/rand"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/tensor"
)

// Layer is the capability interface implemented by every layer variant.
//
// Shapes are per-sample: the implicit leading batch axis is never part of a
// layer shape. An input shape of nil means "unresolved"; only layers that
// declare their own input shape (Input, sized activations) accept it.
type Layer interface {
	fmt.Stringer

	// DeclaredInputShape returns the input shape the layer can declare on
	// its own, or nil when the shape must come from a predecessor. Only a
	// layer with a declared input shape may start a network.
	DeclaredInputShape() tensor.Shape

	// OutputShape computes the output shape for the given input shape.
	// It is a pure function of the layer configuration; it returns a
	// *ShapeError when the input shape is incompatible and a *ConfigError
	// when the configuration itself is invalid.
	OutputShape(in tensor.Shape) (tensor.Shape, error)

	// Initialize resolves shapes and allocates parameters. Passing nil
	// marks the layer as the network input endpoint: it falls back to its
	// declared input shape and allocates no incoming weights.
	//
	// Initialize is idempotent: repeated calls with the same shape keep
	// the existing parameter objects and values.
	Initialize(in tensor.Shape, rng *rand.Rand) error

	// Ready reports whether the layer has been initialized.
	Ready() bool

	// Output builds the layer's forward computation as an expression over
	// its (initialized) parameters. It may be called repeatedly to build
	// independent expressions sharing the same parameter leaves. Calling
	// Output on an uninitialized layer panics.
	Output(x expr.Node) expr.Node

	// Parameters returns the layer's learnable parameters.
	Parameters() []*Parameter
}

// base carries the resolved-shape state shared by all layer variants.
type base struct {
	inShape  tensor.Shape // nil for the network input endpoint
	outShape tensor.Shape
	ready    bool
}

// Ready reports whether the layer has been initialized.
func (b *base) Ready() bool { return b.ready }

// InputShape returns the resolved input shape, or nil before initialization
// and for the network input endpoint.
func (b *base) InputShape() tensor.Shape { return b.inShape }

// ResolvedOutputShape returns the output shape computed at initialization,
// or nil before initialization.
func (b *base) ResolvedOutputShape() tensor.Shape { return b.outShape }

func (b *base) resolve(in, out tensor.Shape) {
	b.inShape = in
	b.outShape = out
	b.ready = true
}

func (b *base) mustBeReady(layer fmt.Stringer) {
	if !b.ready {
		panic(fmt.Sprintf("layers: %s used before initialization", layer))
	}
}
