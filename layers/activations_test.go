package layers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgalvao/neupy/tensor"
)

func TestActivationString(t *testing.T) {
	assert.Equal(t, "Sigmoid(10)", NewSigmoid(10).String())
	assert.Equal(t, "Relu()", NewRelu(0).String())
	assert.Equal(t, "Tanh(4)", NewTanh(4).String())
}

func TestUnsizedActivationIdentityShape(t *testing.T) {
	l := NewTanh(0)
	assert.Nil(t, l.DeclaredInputShape())

	out, err := l.OutputShape(tensor.Shape{4, 7})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 7}, out)

	require.NoError(t, l.Initialize(tensor.Shape{4, 7}, testRand()))
	assert.True(t, l.Ready())
	assert.Empty(t, l.Parameters())
}

func TestUnsizedActivationNeedsInputShape(t *testing.T) {
	_, err := NewSigmoid(0).OutputShape(nil)
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}

func TestSizedActivationAtHeadIsPure(t *testing.T) {
	l := NewSigmoid(3)
	assert.Equal(t, tensor.Shape{3}, l.DeclaredInputShape())

	require.NoError(t, l.Initialize(nil, testRand()))
	assert.Empty(t, l.Parameters())

	out := evalLayer(t, l, batch(t, []float32{0, 0, 0}, tensor.Shape{1, 3}))
	for _, v := range out.Data() {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestSizedActivationAllocatesDenseParameters(t *testing.T) {
	l := NewSigmoid(2)
	require.NoError(t, l.Initialize(tensor.Shape{3}, testRand()))

	params := l.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, tensor.Shape{3, 2}, params[0].Shape())
	assert.Equal(t, tensor.Shape{2}, params[1].Shape())

	out := evalLayer(t, l, batch(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}))
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
}

func TestSizedActivationRejectsMatrixInput(t *testing.T) {
	_, err := NewSigmoid(2).OutputShape(tensor.Shape{2, 2})
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}

func TestInitializeIdempotent(t *testing.T) {
	l := NewSigmoid(2)
	require.NoError(t, l.Initialize(tensor.Shape{3}, testRand()))

	weight := l.Parameters()[0]
	values := append([]float32(nil), weight.Value().Data()...)

	require.NoError(t, l.Initialize(tensor.Shape{3}, testRand()))
	assert.Same(t, weight, l.Parameters()[0])
	assert.Equal(t, values, weight.Value().Data())
}

func TestInitializeReallocatesOnShapeChange(t *testing.T) {
	l := NewSigmoid(2)
	require.NoError(t, l.Initialize(tensor.Shape{3}, testRand()))
	weight := l.Parameters()[0]

	require.NoError(t, l.Initialize(tensor.Shape{5}, testRand()))
	assert.Same(t, weight, l.Parameters()[0])
	assert.Equal(t, tensor.Shape{5, 2}, weight.Shape())
}

func TestLeakyReluValues(t *testing.T) {
	l := NewLeakyRelu(6, 0.01)
	require.NoError(t, l.Initialize(nil, testRand()))

	out := evalLayer(t, l, batch(t, []float32{10, 1, 0.1, 0, -1, -10}, tensor.Shape{1, 6}))
	want := []float32{10, 1, 0.1, 0, -0.01, -0.1}
	for i, w := range want {
		assert.InDelta(t, w, out.Data()[i], 1e-6)
	}
}

func TestEluValues(t *testing.T) {
	l := NewElu(3, 1)
	require.NoError(t, l.Initialize(nil, testRand()))

	out := evalLayer(t, l, batch(t, []float32{2, 0, -1}, tensor.Shape{1, 3}))
	assert.InDelta(t, 2, out.Data()[0], 1e-6)
	assert.InDelta(t, 0, out.Data()[1], 1e-6)
	assert.InDelta(t, math.Expm1(-1), out.Data()[2], 1e-6)
}

func TestHardSigmoidValues(t *testing.T) {
	l := NewHardSigmoid(5)
	require.NoError(t, l.Initialize(nil, testRand()))

	out := evalLayer(t, l, batch(t, []float32{-10, -1, 0, 1, 10}, tensor.Shape{1, 5}))
	want := []float32{0, 0.3, 0.5, 0.7, 1}
	for i, w := range want {
		assert.InDelta(t, w, out.Data()[i], 1e-6)
	}
}

func TestStepValues(t *testing.T) {
	l := NewStep(4)
	require.NoError(t, l.Initialize(nil, testRand()))

	out := evalLayer(t, l, batch(t, []float32{-1, 0, 0.5, 3}, tensor.Shape{1, 4}))
	assert.Equal(t, []float32{0, 0, 1, 1}, out.Data())
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	l := NewSoftmax(4)
	require.NoError(t, l.Initialize(nil, testRand()))

	out := evalLayer(t, l, batch(t, []float32{1, 2, 3, 4, -1, 0, 1, 2}, tensor.Shape{2, 4}))
	var row1, row2 float32
	for i := 0; i < 4; i++ {
		row1 += out.Data()[i]
		row2 += out.Data()[4+i]
	}
	assert.InDelta(t, 1, row1, 1e-5)
	assert.InDelta(t, 1, row2, 1e-5)
}

func TestNegativeSizeIsConfigError(t *testing.T) {
	_, err := NewSigmoid(-1).OutputShape(tensor.Shape{3})
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}
