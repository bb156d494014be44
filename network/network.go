// Package network assembles layers into an acyclic chain, propagates shapes
// through it, allocates deferred parameters, and compiles the result into a
// callable prediction function.
package network

import (
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/layers"
	"github.com/wgalvao/neupy/tensor"
)

// PredictFunc maps a batched input tensor to a batched output tensor. The
// leading axis is the batch axis; the remaining axes must match the
// network's per-sample input shape.
type PredictFunc func(x *tensor.Tensor) (*tensor.Tensor, error)

// Network is a validated, initialized chain of layers.
type Network struct {
	chain *Chain
	rng   *rand.Rand

	inShape  tensor.Shape
	outShape tensor.Shape

	predict PredictFunc
}

// Option configures a Network at construction.
type Option func(*Network)

// WithRand sets the random source used for parameter initialization. The
// default is seeded from the wall clock.
func WithRand(rng *rand.Rand) Option {
	return func(n *Network) { n.rng = rng }
}

// New validates the chain topology, propagates shapes through it and
// allocates every layer's parameters. Topology faults return a
// *ConnectionError; shape and configuration faults return the layer errors
// wrapped with the failing layer's position.
func New(chain *Chain, opts ...Option) (*Network, error) {
	n := &Network{chain: chain}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if err := n.validate(); err != nil {
		return nil, err
	}
	if err := n.Initialize(); err != nil {
		return nil, err
	}
	return n, nil
}

// FromLayers builds a network by joining the given layers in order.
func FromLayers(seq ...layers.Layer) (*Network, error) {
	if len(seq) == 0 {
		return nil, connectionErrorf("a network needs at least two layers")
	}
	chain, err := asChain(seq)
	if err != nil {
		return nil, err
	}
	return New(chain)
}

// FromSizes builds a fully connected sigmoid network from layer sizes: the
// first size is the input width, the last becomes a linear readout, and
// every size in between becomes a sigmoid layer.
func FromSizes(sizes ...int) (*Network, error) {
	if len(sizes) < 2 {
		return nil, connectionErrorf("a network needs at least an input and an output size")
	}
	seq := make([]layers.Layer, 0, len(sizes))
	seq = append(seq, layers.NewInput(sizes[0]))
	for _, size := range sizes[1 : len(sizes)-1] {
		seq = append(seq, layers.NewSigmoid(size))
	}
	seq = append(seq, layers.NewOutput(sizes[len(sizes)-1]))
	return FromLayers(seq...)
}

func (n *Network) validate() error {
	seq := n.chain.seq
	if len(seq) < 2 {
		return connectionErrorf("a network needs at least two layers, got %d", len(seq))
	}
	if n.chain.Predecessor(seq[0]) != nil {
		return connectionErrorf("layer %s cannot both start the network and receive an input", seq[0])
	}
	for i := 1; i < len(seq); i++ {
		if p := n.chain.Predecessor(seq[i]); p != seq[i-1] {
			return connectionErrorf("layer %s is not connected to %s", seq[i], seq[i-1])
		}
	}
	for i, layer := range seq {
		if _, ok := layer.(*layers.Output); ok && i != len(seq)-1 {
			return connectionErrorf("layer %s must be the last layer of the network", layer)
		}
	}
	if _, ok := seq[len(seq)-1].(*layers.Output); !ok {
		return connectionErrorf("the network must end with an output layer, got %s", seq[len(seq)-1])
	}
	if seq[0].DeclaredInputShape() == nil {
		return connectionErrorf("layer %s cannot start a network: it does not declare an input shape", seq[0])
	}
	return nil
}

// Initialize walks the chain in forward order, propagating each layer's
// output shape into the next layer and allocating parameters along the way.
// It is idempotent: re-running it keeps existing parameter objects, and
// their values when shapes are unchanged.
func (n *Network) Initialize() error {
	var shape tensor.Shape
	for i, layer := range n.chain.seq {
		if err := layer.Initialize(shape, n.rng); err != nil {
			return errors.Wrapf(err, "layer %d (%s)", i, layer)
		}
		out, err := layer.OutputShape(shape)
		if err != nil {
			return errors.Wrapf(err, "layer %d (%s)", i, layer)
		}
		shape = out
	}
	n.inShape = n.chain.seq[0].DeclaredInputShape()
	n.outShape = shape
	n.predict = nil
	return nil
}

// Layers returns the network's layers in forward order.
func (n *Network) Layers() []layers.Layer { return n.chain.Layers() }

// InputShape returns the per-sample input shape.
func (n *Network) InputShape() tensor.Shape { return n.inShape.Clone() }

// OutputShape returns the per-sample output shape.
func (n *Network) OutputShape() tensor.Shape { return n.outShape.Clone() }

// Parameters returns every learnable parameter in forward layer order.
func (n *Network) Parameters() []*layers.Parameter {
	var params []*layers.Parameter
	for _, layer := range n.chain.seq {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// Forward threads an expression through every layer of the network.
func (n *Network) Forward(x expr.Node) expr.Node {
	for _, layer := range n.chain.seq {
		x = layer.Output(x)
	}
	return x
}

// Compile builds the network's prediction function. The result is cached;
// re-initializing the network invalidates the cache. The returned function
// is safe for concurrent use.
func (n *Network) Compile() (PredictFunc, error) {
	if n.predict != nil {
		return n.predict, nil
	}

	input := expr.NewInput("x")
	fn := expr.NewFunction(n.Forward(input), input)

	inShape := n.inShape.Clone()
	n.predict = func(x *tensor.Tensor) (*tensor.Tensor, error) {
		if err := checkBatched(x.Shape(), inShape); err != nil {
			return nil, err
		}
		return fn.Call(x)
	}
	return n.predict, nil
}

// Predict compiles the network if needed and runs the prediction function.
func (n *Network) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	predict, err := n.Compile()
	if err != nil {
		return nil, err
	}
	return predict(x)
}

// String formats the network as its layer chain.
func (n *Network) String() string {
	names := make([]string, len(n.chain.seq))
	for i, layer := range n.chain.seq {
		names[i] = layer.String()
	}
	return strings.Join(names, " > ")
}

// checkBatched verifies that a batched tensor shape consists of a leading
// batch axis followed by the expected per-sample shape.
func checkBatched(got, perSample tensor.Shape) error {
	if len(got) != len(perSample)+1 {
		return errors.Errorf("expected a batched input of per-sample shape %v, got %v", perSample, got)
	}
	for i, dim := range perSample {
		if got[i+1] != dim {
			return errors.Errorf("expected a batched input of per-sample shape %v, got %v", perSample, got)
		}
	}
	return nil
}
