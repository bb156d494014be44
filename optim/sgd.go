package optim

import (
	"github.com/pkg/errors"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/layers"
	"github.com/wgalvao/neupy/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	params     []*layers.Parameter
	lr         float32
	momentum   float32
	velocities map[*layers.Parameter]*tensor.Tensor
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // learning rate (default 0.01)
	Momentum float32 // momentum factor in [0, 1) (default 0)
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*layers.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*layers.Parameter]*tensor.Tensor),
	}
}

// Step applies one gradient update to every parameter present in the
// gradient map. Parameter values are mutated in-place, so every expression
// sharing the parameter leaves observes the update.
func (s *SGD) Step(grads map[*expr.Param]*tensor.Tensor) error {
	for _, param := range s.params {
		grad := gradientFor(param, grads)
		if grad == nil {
			continue
		}

		value := param.Value()
		if !value.Shape().Equal(grad.Shape()) {
			return errors.Errorf("sgd: gradient shape %v does not match parameter %s shape %v",
				grad.Shape(), param.Name(), value.Shape())
		}

		update := grad.Data()
		if s.momentum != 0 {
			velocity, ok := s.velocities[param]
			if !ok || !velocity.Shape().Equal(value.Shape()) {
				velocity = tensor.New(value.Shape())
				s.velocities[param] = velocity
			}
			vData := velocity.Data()
			gData := grad.Data()
			for i := range vData {
				vData[i] = s.momentum*vData[i] + gData[i]
			}
			update = vData
		}

		data := value.Data()
		for i := range data {
			data[i] -= s.lr * update[i]
		}
	}
	return nil
}

// LR returns the current learning rate.
func (s *SGD) LR() float32 { return s.lr }

// SetLR updates the learning rate, for schedules that decay it during
// training.
func (s *SGD) SetLR(lr float32) { s.lr = lr }
