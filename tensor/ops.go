package tensor

import "fmt"

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float32) float32) *Tensor {
	out := New(t.shape)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// Scale returns the tensor multiplied by a scalar.
func (t *Tensor) Scale(s float32) *Tensor {
	return t.Apply(func(v float32) float32 { return s * v })
}

// AddInPlace adds other into the receiver element-wise. Shapes must match.
func (t *Tensor) AddInPlace(other *Tensor) error {
	if !t.shape.Equal(other.shape) {
		return fmt.Errorf("shape mismatch for in-place add: %v vs %v", t.shape, other.shape)
	}
	for i, v := range other.data {
		t.data[i] += v
	}
	return nil
}

// Add returns the element-wise sum of a and b with broadcasting.
func Add(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x + y })
}

// Sub returns the element-wise difference of a and b with broadcasting.
func Sub(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x - y })
}

// Mul returns the element-wise product of a and b with broadcasting.
func Mul(a, b *Tensor) (*Tensor, error) {
	return broadcastBinary(a, b, func(x, y float32) float32 { return x * y })
}

// broadcastBinary applies fn element-wise over the broadcast of a and b.
func broadcastBinary(a, b *Tensor, fn func(x, y float32) float32) (*Tensor, error) {
	outShape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}

	out := New(outShape)
	if a.shape.Equal(b.shape) {
		// Fast path: no broadcasting needed.
		for i := range out.data {
			out.data[i] = fn(a.data[i], b.data[i])
		}
		return out, nil
	}

	aStrides := broadcastStrides(a.shape, outShape)
	bStrides := broadcastStrides(b.shape, outShape)
	index := make([]int, len(outShape))

	for i := range out.data {
		aOff, bOff := 0, 0
		for d, idx := range index {
			aOff += idx * aStrides[d]
			bOff += idx * bStrides[d]
		}
		out.data[i] = fn(a.data[aOff], b.data[bOff])

		// Advance the multi-dimensional index (row-major order).
		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < outShape[d] {
				break
			}
			index[d] = 0
		}
	}
	return out, nil
}

// broadcastStrides returns per-axis strides of shape viewed as out, with
// zero stride on broadcast (size-1 or missing) axes.
func broadcastStrides(shape, out Shape) []int {
	strides := shape.Strides()
	result := make([]int, len(out))
	offset := len(out) - len(shape)
	for d := range out {
		src := d - offset
		if src < 0 || shape[src] == 1 {
			result[d] = 0
		} else {
			result[d] = strides[src]
		}
	}
	return result
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float32 {
	var sum float32
	for _, v := range t.data {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean of all elements.
func (t *Tensor) Mean() float32 {
	return t.Sum() / float32(len(t.data))
}

// SumTo reduces the tensor to the given shape by summing over the axes that
// were expanded by broadcasting. It is the adjoint of broadcasting a tensor
// of shape `shape` up to t's shape.
func (t *Tensor) SumTo(shape Shape) (*Tensor, error) {
	if _, err := BroadcastShapes(shape, t.shape); err != nil {
		return nil, fmt.Errorf("cannot reduce %v to %v: %w", t.shape, shape, err)
	}

	out := New(shape)
	strides := broadcastStrides(shape, t.shape)
	index := make([]int, len(t.shape))

	for i := range t.data {
		off := 0
		for d, idx := range index {
			off += idx * strides[d]
		}
		out.data[off] += t.data[i]

		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < t.shape[d] {
				break
			}
			index[d] = 0
		}
	}
	return out, nil
}

// Transpose returns the transpose of a 2D tensor.
func (t *Tensor) Transpose() (*Tensor, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("transpose expects a 2D tensor, got %v", t.shape)
	}
	rows, cols := t.shape[0], t.shape[1]
	out := New(Shape{cols, rows})
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.data[c*rows+r] = t.data[r*cols+c]
		}
	}
	return out, nil
}

// SliceChannels extracts channels [start, end) along axis 1.
//
// The input must have at least 2 axes (batch, channels, ...); batch and any
// trailing spatial axes are preserved.
func (t *Tensor) SliceChannels(start, end int) (*Tensor, error) {
	if len(t.shape) < 2 {
		return nil, fmt.Errorf("channel slice expects at least 2 axes, got %v", t.shape)
	}
	channels := t.shape[1]
	if start < 0 || end <= start || end > channels {
		return nil, fmt.Errorf("invalid channel range [%d, %d) for %d channels", start, end, channels)
	}

	outShape := t.shape.Clone()
	outShape[1] = end - start
	out := New(outShape)

	inner := 1
	for _, dim := range t.shape[2:] {
		inner *= dim
	}
	batch := t.shape[0]

	for n := 0; n < batch; n++ {
		src := t.data[n*channels*inner+start*inner : n*channels*inner+end*inner]
		dst := out.data[n*(end-start)*inner : (n+1)*(end-start)*inner]
		copy(dst, src)
	}
	return out, nil
}

// PadChannels is the adjoint of SliceChannels: it scatters the receiver back
// into a zero tensor with `channels` channels at offset start.
func (t *Tensor) PadChannels(start, channels int) (*Tensor, error) {
	if len(t.shape) < 2 {
		return nil, fmt.Errorf("channel pad expects at least 2 axes, got %v", t.shape)
	}
	width := t.shape[1]
	if start < 0 || start+width > channels {
		return nil, fmt.Errorf("invalid channel offset %d for width %d in %d channels", start, width, channels)
	}

	outShape := t.shape.Clone()
	outShape[1] = channels
	out := New(outShape)

	inner := 1
	for _, dim := range t.shape[2:] {
		inner *= dim
	}
	batch := t.shape[0]

	for n := 0; n < batch; n++ {
		src := t.data[n*width*inner : (n+1)*width*inner]
		dst := out.data[n*channels*inner+start*inner : n*channels*inner+(start+width)*inner]
		copy(dst, src)
	}
	return out, nil
}
