package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatMul(t *testing.T) {
	a, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)
	b, err := FromSlice([]float32{7, 8, 9, 10, 11, 12}, Shape{3, 2})
	require.NoError(t, err)

	out, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Data())
}

func TestMatMulIdentity(t *testing.T) {
	a, err := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)
	id, err := FromSlice([]float32{1, 0, 0, 1}, Shape{2, 2})
	require.NoError(t, err)

	out, err := MatMul(a, id)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), out.Data())
}

func TestMatMulShapeErrors(t *testing.T) {
	_, err := MatMul(New(Shape{2, 3}), New(Shape{4, 2}))
	assert.Error(t, err)

	_, err = MatMul(New(Shape{2, 3, 4}), New(Shape{4, 2}))
	assert.Error(t, err)
}

// TestMatMulBlockedMatchesNaive exercises the blocked loop against a naive
// triple loop on sizes that straddle block boundaries.
func TestMatMulBlockedMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := Uniform(Shape{67, 129}, 1, rng)
	b := Uniform(Shape{129, 71}, 1, rng)

	out, err := MatMul(a, b)
	require.NoError(t, err)

	for _, probe := range [][2]int{{0, 0}, {13, 57}, {66, 70}} {
		i, j := probe[0], probe[1]
		var want float32
		for k := 0; k < 129; k++ {
			want += a.At(i, k) * b.At(k, j)
		}
		assert.InDelta(t, want, out.At(i, j), 1e-3)
	}
}
