package expr

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgalvao/neupy/tensor"
)

func fromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	out, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return out
}

func TestFunctionCall(t *testing.T) {
	x := NewInput("x")
	w := NewParam("w", fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}))
	b := NewParam("b", fromSlice(t, []float32{1, 1, 1}, tensor.Shape{3}))

	fn := NewFunction(Add(MatMul(x, w), b), x)

	out, err := fn.Call(fromSlice(t, []float32{1, 1}, tensor.Shape{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3}, out.Shape())
	assert.Equal(t, []float32{6, 8, 10}, out.Data())
}

func TestFunctionCallArgCount(t *testing.T) {
	x := NewInput("x")
	fn := NewFunction(Sigmoid(x), x)

	_, err := fn.Call()
	assert.Error(t, err)
}

func TestFunctionSharedParamObservesUpdates(t *testing.T) {
	x := NewInput("x")
	w := NewParam("w", fromSlice(t, []float32{2}, tensor.Shape{1, 1}))
	fn := NewFunction(MatMul(x, w), x)

	arg := fromSlice(t, []float32{3}, tensor.Shape{1, 1})
	out, err := fn.Call(arg)
	require.NoError(t, err)
	assert.Equal(t, float32(6), out.Data()[0])

	w.SetValue(fromSlice(t, []float32{5}, tensor.Shape{1, 1}))
	out, err = fn.Call(arg)
	require.NoError(t, err)
	assert.Equal(t, float32(15), out.Data()[0])
}

func TestFunctionCallConcurrent(t *testing.T) {
	x := NewInput("x")
	w := NewParam("w", fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}))
	fn := NewFunction(Tanh(MatMul(x, w)), x)

	arg := fromSlice(t, []float32{0.5, -0.5}, tensor.Shape{1, 2})
	want, err := fn.Call(arg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := fn.Call(arg)
			assert.NoError(t, err)
			assert.Equal(t, want.Data(), out.Data())
		}()
	}
	wg.Wait()
}

func TestGradRequiresScalarOutput(t *testing.T) {
	x := NewInput("x")
	fn := NewFunction(Sigmoid(x), x)

	_, _, err := fn.Grad(fromSlice(t, []float32{1, 2}, tensor.Shape{1, 2}))
	assert.Error(t, err)
}

// TestGradFiniteDifference checks backpropagated parameter gradients of
// mean((sigmoid(x*w + b) - y)^2) against numeric differentiation.
func TestGradFiniteDifference(t *testing.T) {
	x := NewInput("x")
	y := NewInput("y")
	w := NewParam("w", fromSlice(t, []float32{0.3, -0.2, 0.5, 0.1, 0.4, -0.6}, tensor.Shape{2, 3}))
	b := NewParam("b", fromSlice(t, []float32{0.1, -0.1, 0.2}, tensor.Shape{3}))

	diff := Sub(Sigmoid(Add(MatMul(x, w), b)), y)
	fn := NewFunction(Mean(Mul(diff, diff)), x, y)

	xv := fromSlice(t, []float32{1, -0.5, 0.25, 0.75}, tensor.Shape{2, 2})
	yv := fromSlice(t, []float32{0, 1, 0, 1, 0, 1}, tensor.Shape{2, 3})

	loss, grads, err := fn.Grad(xv, yv)
	require.NoError(t, err)
	require.Equal(t, 1, loss.Shape().NumElements())
	require.Contains(t, grads, w)
	require.Contains(t, grads, b)

	eval := func() float32 {
		out, err := fn.Call(xv, yv)
		require.NoError(t, err)
		return out.Data()[0]
	}

	const eps = 1e-3
	for _, param := range []*Param{w, b} {
		data := param.Value().Data()
		grad := grads[param].Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := eval()
			data[i] = orig - eps
			minus := eval()
			data[i] = orig

			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, grad[i], 1e-2, "%s[%d]", param.Name(), i)
		}
	}
}

// TestGradAccumulatesFanOut checks that a node feeding two consumers
// receives the sum of both gradient paths: d/dx mean(x*x) at x uses x twice.
func TestGradAccumulatesFanOut(t *testing.T) {
	p := NewParam("p", fromSlice(t, []float32{3}, tensor.Shape{1}))
	fn := NewFunction(Mean(Mul(p, p)))

	_, grads, err := fn.Grad()
	require.NoError(t, err)
	assert.InDelta(t, 6.0, grads[p].Data()[0], 1e-5)
}

func TestReshapePreservesBatch(t *testing.T) {
	x := NewInput("x")
	fn := NewFunction(Reshape(x, tensor.Shape{6}), x)

	out, err := fn.Call(fromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, tensor.Shape{2, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 6}, out.Shape())
}

func TestSliceChannelsGradScatters(t *testing.T) {
	x := NewParam("x", fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 4}))
	fn := NewFunction(Mean(SliceChannels(x, 1, 3)))

	out, err := fn.Call()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, out.Data()[0], 1e-6)

	_, grads, err := fn.Grad()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 0.5, 0}, grads[x].Data())
}

func TestSoftmaxRows(t *testing.T) {
	x := NewInput("x")
	fn := NewFunction(Softmax(x), x)

	out, err := fn.Call(fromSlice(t, []float32{1, 1, 1, 1000, 1000, 1000}, tensor.Shape{2, 3}))
	require.NoError(t, err)
	for _, v := range out.Data() {
		assert.InDelta(t, 1.0/3.0, v, 1e-5)
	}
}
