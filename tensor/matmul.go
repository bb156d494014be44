package tensor

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
)

// blockSize is the k/j blocking tile for MatMul, sized so three float32
// tiles fit in the L2 cache of the host CPU. Falls back to 64 when the
// cache topology cannot be probed.
var blockSize = matmulBlockSize()

func matmulBlockSize() int {
	l2 := cpuid.CPU.Cache.L2
	if l2 <= 0 {
		return 64
	}
	// 3 tiles of block*block float32 values should fit in L2.
	block := 32
	for block*2*block*2*4*3 <= l2 && block < 512 {
		block *= 2
	}
	return block
}

// MatMul returns the matrix product of two 2D tensors a [m, k] and b [k, n].
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		return nil, fmt.Errorf("matmul expects 2D tensors, got %v and %v", a.shape, b.shape)
	}
	m, k := a.shape[0], a.shape[1]
	kb, n := b.shape[0], b.shape[1]
	if k != kb {
		return nil, fmt.Errorf("matmul inner dimensions do not match: %v x %v", a.shape, b.shape)
	}

	out := New(Shape{m, n})

	// Blocked i-k-j loop: the j inner loop walks both b and out contiguously.
	for k0 := 0; k0 < k; k0 += blockSize {
		kEnd := min(k0+blockSize, k)
		for j0 := 0; j0 < n; j0 += blockSize {
			jEnd := min(j0+blockSize, n)
			for i := 0; i < m; i++ {
				outRow := out.data[i*n : (i+1)*n]
				for kk := k0; kk < kEnd; kk++ {
					av := a.data[i*k+kk]
					if av == 0 {
						continue
					}
					bRow := b.data[kk*n : (kk+1)*n]
					for j := j0; j < jEnd; j++ {
						outRow[j] += av * bRow[j]
					}
				}
			}
		}
	}
	return out, nil
}
