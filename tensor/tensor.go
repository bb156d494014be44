// Package tensor implements the dense float32 tensor engine that the layer
// graph compiles against: shapes, NumPy-style broadcasting, and the small set
// of numeric kernels (elementwise maps, matmul, conv2d, reshape, channel
// slicing) that layer forward and backward computations are built from.
package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	shape Shape
	data  []float32
}

// New creates a zero-filled tensor with the given shape.
func New(shape Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float32, shape.NumElements()),
	}
}

// FromSlice creates a tensor from a flat data slice.
//
// The data slice is used directly (not copied); the caller hands over
// ownership.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// Full creates a tensor filled with a constant value.
func Full(shape Shape, value float32) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Uniform creates a tensor with values drawn from U(-limit, limit) using the
// supplied source of randomness.
func Uniform(shape Shape, limit float32, rng *rand.Rand) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = (2*rng.Float32() - 1) * limit
	}
	return t
}

// Xavier creates a tensor with Xavier/Glorot uniform initialization for the
// given fan-in and fan-out.
func Xavier(shape Shape, fanIn, fanOut int, rng *rand.Rand) *Tensor {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	return Uniform(shape, limit, rng)
}

// Shape returns the tensor shape. Callers must not mutate it.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying flat data slice as a direct view.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(index ...int) float32 {
	return t.data[t.offset(index)]
}

// Set assigns the element at the given multi-dimensional index.
func (t *Tensor) Set(value float32, index ...int) {
	t.data[t.offset(index)] = value
}

func (t *Tensor) offset(index []int) int {
	if len(index) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match shape %v", len(index), t.shape))
	}
	strides := t.shape.Strides()
	off := 0
	for i, idx := range index {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d of %v", idx, i, t.shape))
		}
		off += idx * strides[i]
	}
	return off
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// Reshape returns a tensor with the same data and a new shape.
//
// The result shares the underlying data with the receiver. The element count
// must match.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.data) {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) into %v (%d elements)",
			t.shape, len(t.data), shape, shape.NumElements())
	}
	return &Tensor{shape: shape.Clone(), data: t.data}, nil
}

// String formats the tensor as "Tensor(2, 3)".
func (t *Tensor) String() string {
	return "Tensor" + t.shape.String()
}
