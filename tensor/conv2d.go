package tensor

import "fmt"

// Conv2DOutputSize computes the output spatial size of a valid correlation:
// floor((in + 2*padding - kernel) / stride) + 1.
func Conv2DOutputSize(in, kernel, stride, padding int) int {
	return (in+2*padding-kernel)/stride + 1
}

// Conv2D performs a 2D cross-correlation of input [N, C, H, W] with kernel
// [F, C, KH, KW], producing [N, F, HOut, WOut].
func Conv2D(input, kernel *Tensor, stride, padding int) (*Tensor, error) {
	if len(input.shape) != 4 {
		return nil, fmt.Errorf("conv2d: input must be 4D [N,C,H,W], got %v", input.shape)
	}
	if len(kernel.shape) != 4 {
		return nil, fmt.Errorf("conv2d: kernel must be 4D [F,C,KH,KW], got %v", kernel.shape)
	}

	n, c, h, w := input.shape[0], input.shape[1], input.shape[2], input.shape[3]
	f, ck, kh, kw := kernel.shape[0], kernel.shape[1], kernel.shape[2], kernel.shape[3]
	if c != ck {
		return nil, fmt.Errorf("conv2d: input channels %d != kernel channels %d", c, ck)
	}

	hOut := Conv2DOutputSize(h, kh, stride, padding)
	wOut := Conv2DOutputSize(w, kw, stride, padding)
	if hOut <= 0 || wOut <= 0 {
		return nil, fmt.Errorf("conv2d: kernel (%d, %d) too large for input (%d, %d)", kh, kw, h, w)
	}

	out := New(Shape{n, f, hOut, wOut})

	for b := 0; b < n; b++ {
		for fi := 0; fi < f; fi++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					var sum float32
					hStart := oh*stride - padding
					wStart := ow*stride - padding
					for ci := 0; ci < c; ci++ {
						for ki := 0; ki < kh; ki++ {
							ih := hStart + ki
							if ih < 0 || ih >= h {
								continue
							}
							for kj := 0; kj < kw; kj++ {
								iw := wStart + kj
								if iw < 0 || iw >= w {
									continue
								}
								sum += input.data[((b*c+ci)*h+ih)*w+iw] *
									kernel.data[((fi*c+ci)*kh+ki)*kw+kj]
							}
						}
					}
					out.data[((b*f+fi)*hOut+oh)*wOut+ow] = sum
				}
			}
		}
	}
	return out, nil
}

// Conv2DBackward computes the gradients of Conv2D with respect to its input
// and kernel given the gradient of the output.
func Conv2DBackward(input, kernel, outGrad *Tensor, stride, padding int) (inGrad, kernelGrad *Tensor, err error) {
	n, c, h, w := input.shape[0], input.shape[1], input.shape[2], input.shape[3]
	f, kh, kw := kernel.shape[0], kernel.shape[2], kernel.shape[3]
	hOut, wOut := outGrad.shape[2], outGrad.shape[3]

	if outGrad.shape[0] != n || outGrad.shape[1] != f {
		return nil, nil, fmt.Errorf("conv2d backward: output gradient shape %v does not match input %v and kernel %v",
			outGrad.shape, input.shape, kernel.shape)
	}

	inGrad = New(input.shape)
	kernelGrad = New(kernel.shape)

	for b := 0; b < n; b++ {
		for fi := 0; fi < f; fi++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					g := outGrad.data[((b*f+fi)*hOut+oh)*wOut+ow]
					if g == 0 {
						continue
					}
					hStart := oh*stride - padding
					wStart := ow*stride - padding
					for ci := 0; ci < c; ci++ {
						for ki := 0; ki < kh; ki++ {
							ih := hStart + ki
							if ih < 0 || ih >= h {
								continue
							}
							for kj := 0; kj < kw; kj++ {
								iw := wStart + kj
								if iw < 0 || iw >= w {
									continue
								}
								inIdx := ((b*c+ci)*h+ih)*w + iw
								kIdx := ((fi*c+ci)*kh+ki)*kw + kj
								inGrad.data[inIdx] += g * kernel.data[kIdx]
								kernelGrad.data[kIdx] += g * input.data[inIdx]
							}
						}
					}
				}
			}
		}
	}
	return inGrad, kernelGrad, nil
}
