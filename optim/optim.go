// Package optim implements parameter update rules for training.
//
// An optimizer holds the parameters it updates and consumes gradient maps
// produced by expr.Function.Grad:
//
//	out, grads, err := loss.Grad(x, y)
//	optimizer.Step(grads)
package optim

import (
	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/layers"
	"github.com/wgalvao/neupy/tensor"
)

// Optimizer updates parameters in-place from a gradient map. Parameters
// absent from the map are skipped.
type Optimizer interface {
	Step(grads map[*expr.Param]*tensor.Tensor) error
	LR() float32
	SetLR(lr float32)
}

// gradientFor returns the gradient computed for a parameter, or nil when
// the parameter did not participate in the differentiated expression.
func gradientFor(param *layers.Parameter, grads map[*expr.Param]*tensor.Tensor) *tensor.Tensor {
	if param == nil {
		return nil
	}
	return grads[param.Node()]
}
