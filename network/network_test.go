package network

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgalvao/neupy/layers"
	"github.com/wgalvao/neupy/tensor"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(11))
}

func TestFromSizes(t *testing.T) {
	net, err := FromSizes(4, 8, 3)
	require.NoError(t, err)

	seq := net.Layers()
	require.Len(t, seq, 3)
	assert.IsType(t, &layers.Input{}, seq[0])
	assert.IsType(t, &layers.Sigmoid{}, seq[1])
	assert.IsType(t, &layers.Output{}, seq[2])

	assert.Equal(t, tensor.Shape{4}, net.InputShape())
	assert.Equal(t, tensor.Shape{3}, net.OutputShape())
	assert.Equal(t, "Input(4) > Sigmoid(8) > Output(3)", net.String())
}

func TestFromSizesLayerCountAndOrder(t *testing.T) {
	sizes := []int{6, 5, 4, 3, 2}
	net, err := FromSizes(sizes...)
	require.NoError(t, err)

	seq := net.Layers()
	require.Len(t, seq, len(sizes))
	for i, size := range sizes[1 : len(sizes)-1] {
		assert.Equal(t, size, seq[i+1].(*layers.Sigmoid).Size())
	}
	assert.Equal(t, 2, seq[len(seq)-1].(*layers.Output).Size())
}

func TestFromSizesTooShort(t *testing.T) {
	_, err := FromSizes(4)
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}

func TestNetworkRequiresTerminalOutput(t *testing.T) {
	_, err := FromLayers(layers.NewInput(2), layers.NewSigmoid(3))
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}

func TestNetworkRejectsMidChainOutput(t *testing.T) {
	_, err := FromLayers(
		layers.NewInput(2),
		layers.NewOutput(3),
		layers.NewOutput(1),
	)
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}

func TestNetworkHeadMustDeclareShape(t *testing.T) {
	_, err := FromLayers(layers.NewTanh(0), layers.NewOutput(1))
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}

func TestNetworkShapePropagation(t *testing.T) {
	net, err := FromLayers(
		layers.NewInputShape(tensor.Shape{1, 28, 28}),
		layers.NewConvolution(5, 3, 3),
		layers.NewReshape(),
		layers.NewRelu(30),
		layers.NewOutput(10),
	)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{10}, net.OutputShape())
	assert.Equal(t, "Input(1, 28, 28) > Convolution(5, 3, 3) > Reshape() > Relu(30) > Output(10)", net.String())
}

func TestNetworkWrapsLayerErrors(t *testing.T) {
	// A 3-element input cannot be reshaped into a (4, 5) target.
	_, err := FromLayers(
		layers.NewInput(3),
		layers.NewReshape(4, 5),
		layers.NewOutput(1),
	)
	require.Error(t, err)
	var se *layers.ShapeError
	assert.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "layer 1")
}

func TestInitializeIdempotentKeepsParameters(t *testing.T) {
	net, err := FromSizes(2, 3, 1)
	require.NoError(t, err)

	before := net.Parameters()
	require.Len(t, before, 4)
	values := append([]float32(nil), before[0].Value().Data()...)

	require.NoError(t, net.Initialize())
	after := net.Parameters()
	require.Len(t, after, 4)
	for i := range before {
		assert.Same(t, before[i], after[i])
	}
	assert.Equal(t, values, after[0].Value().Data())
}

func TestCompileDeterministic(t *testing.T) {
	chain, err := Join(layers.NewInput(2), []layers.Layer{
		layers.NewSigmoid(4),
		layers.NewOutput(1),
	})
	require.NoError(t, err)
	net, err := New(chain, WithRand(testRand()))
	require.NoError(t, err)

	predict, err := net.Compile()
	require.NoError(t, err)

	x, err := tensor.FromSlice([]float32{0.5, -0.5, 1, 0}, tensor.Shape{2, 2})
	require.NoError(t, err)

	first, err := predict(x)
	require.NoError(t, err)
	second, err := predict(x)
	require.NoError(t, err)
	assert.Equal(t, first.Data(), second.Data())
	assert.Equal(t, tensor.Shape{2, 1}, first.Shape())
}

func TestCompileCached(t *testing.T) {
	net, err := FromSizes(2, 3, 1)
	require.NoError(t, err)

	first, err := net.Compile()
	require.NoError(t, err)
	second, err := net.Compile()
	require.NoError(t, err)
	assert.NotNil(t, first)
	assert.NotNil(t, second)
}

func TestPredictValidatesBatchedShape(t *testing.T) {
	net, err := FromSizes(2, 3, 1)
	require.NoError(t, err)

	bad, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3})
	require.NoError(t, err)
	_, err = net.Predict(bad)
	assert.Error(t, err)

	unbatched, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
	require.NoError(t, err)
	_, err = net.Predict(unbatched)
	assert.Error(t, err)
}

func TestConstructionFormsEquivalent(t *testing.T) {
	seed := int64(99)

	byJoin := func() *Network {
		chain, err := Join(layers.NewInput(2), layers.NewSigmoid(3))
		require.NoError(t, err)
		chain, err = Join(chain, layers.NewOutput(1))
		require.NoError(t, err)
		net, err := New(chain, WithRand(rand.New(rand.NewSource(seed))))
		require.NoError(t, err)
		return net
	}()

	bySlice, err := New(mustChain(t, []layers.Layer{
		layers.NewInput(2),
		layers.NewSigmoid(3),
		layers.NewOutput(1),
	}), WithRand(rand.New(rand.NewSource(seed))))
	require.NoError(t, err)

	x, err := tensor.FromSlice([]float32{0.25, 0.75}, tensor.Shape{1, 2})
	require.NoError(t, err)

	a, err := byJoin.Predict(x)
	require.NoError(t, err)
	b, err := bySlice.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func mustChain(t *testing.T, seq []layers.Layer) *Chain {
	t.Helper()
	chain, err := asChain(seq)
	require.NoError(t, err)
	return chain
}

func TestSharedLayerAcrossNetworksRejected(t *testing.T) {
	shared := layers.NewSigmoid(3)
	left, err := Join(layers.NewInput(2), shared)
	require.NoError(t, err)
	right, err := Join(shared, layers.NewOutput(1))
	require.NoError(t, err)

	_, err = Join(left, right)
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}
