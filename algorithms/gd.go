// Package algorithms implements training procedures over networks.
package algorithms

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/wgalvao/neupy/expr"
	"github.com/wgalvao/neupy/internal/progress"
	"github.com/wgalvao/neupy/network"
	"github.com/wgalvao/neupy/optim"
	"github.com/wgalvao/neupy/tensor"
)

// GradientDescentConfig configures the gradient descent trainer.
type GradientDescentConfig struct {
	LR        float32    // learning rate (default 0.01)
	Momentum  float32    // momentum factor (default 0)
	Epochs    int        // number of passes over the data (default 100)
	BatchSize int        // mini-batch size; 0 trains on the full batch
	Shuffle   bool       // reshuffle samples every epoch
	Rand      *rand.Rand // sample shuffling source; defaults to the shared source
	Progress  io.Writer  // progress output; nil disables it
}

// GradientDescent trains a network by minimizing mean squared error with
// stochastic gradient descent.
//
// The trainer builds the loss expression once. Parameter leaves are shared
// with the network, so every optimizer step is immediately visible to the
// network's compiled prediction function.
type GradientDescent struct {
	net  *network.Network
	cfg  GradientDescentConfig
	opt  *optim.SGD
	loss *expr.Function
}

// NewGradientDescent creates a trainer for the given network.
func NewGradientDescent(net *network.Network, cfg GradientDescentConfig) *GradientDescent {
	if cfg.Epochs == 0 {
		cfg.Epochs = 100
	}

	x := expr.NewInput("x")
	y := expr.NewInput("y")
	diff := expr.Sub(net.Forward(x), y)

	return &GradientDescent{
		net:  net,
		cfg:  cfg,
		opt:  optim.NewSGD(net.Parameters(), optim.SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}),
		loss: expr.NewFunction(expr.Mean(expr.Mul(diff, diff)), x, y),
	}
}

// Train runs the configured number of epochs over the batched inputs and
// targets and returns the mean loss of each epoch.
func (g *GradientDescent) Train(inputs, targets *tensor.Tensor) ([]float32, error) {
	samples := inputs.Shape()[0]
	if targets.Shape()[0] != samples {
		return nil, errors.Errorf("train: %d inputs but %d targets", samples, targets.Shape()[0])
	}

	batchSize := g.cfg.BatchSize
	if batchSize <= 0 || batchSize > samples {
		batchSize = samples
	}
	batches := (samples + batchSize - 1) / batchSize

	order := make([]int, samples)
	for i := range order {
		order[i] = i
	}
	rng := g.cfg.Rand
	if rng == nil && g.cfg.Shuffle {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	reporter := progress.NewReporter(g.cfg.Progress, g.cfg.Epochs*batches, nil)
	losses := make([]float32, 0, g.cfg.Epochs)

	for epoch := 0; epoch < g.cfg.Epochs; epoch++ {
		if g.cfg.Shuffle {
			rng.Shuffle(samples, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var epochLoss float32
		for start := 0; start < samples; start += batchSize {
			end := start + batchSize
			if end > samples {
				end = samples
			}

			x, err := gather(inputs, order[start:end])
			if err != nil {
				return nil, err
			}
			y, err := gather(targets, order[start:end])
			if err != nil {
				return nil, err
			}

			loss, grads, err := g.loss.Grad(x, y)
			if err != nil {
				return nil, errors.Wrapf(err, "epoch %d", epoch)
			}
			if err := g.opt.Step(grads); err != nil {
				return nil, errors.Wrapf(err, "epoch %d", epoch)
			}

			batchLoss := loss.Data()[0]
			epochLoss += batchLoss * float32(end-start)
			reporter.Step(1, fmt.Sprintf("loss=%.6f", batchLoss))
		}
		losses = append(losses, epochLoss/float32(samples))
	}

	if len(losses) > 0 {
		reporter.Finish(fmt.Sprintf("loss=%.6f", losses[len(losses)-1]))
	}
	return losses, nil
}

// Score returns the mean squared error of the network over the batch
// without updating any parameter.
func (g *GradientDescent) Score(inputs, targets *tensor.Tensor) (float32, error) {
	loss, err := g.loss.Call(inputs, targets)
	if err != nil {
		return 0, err
	}
	return loss.Data()[0], nil
}

// gather copies the selected rows of a batched tensor into a new tensor.
func gather(t *tensor.Tensor, rows []int) (*tensor.Tensor, error) {
	shape := t.Shape()
	rowSize := shape.NumElements() / shape[0]
	data := t.Data()

	out := make([]float32, 0, len(rows)*rowSize)
	for _, row := range rows {
		if row < 0 || row >= shape[0] {
			return nil, errors.Errorf("train: sample index %d out of range", row)
		}
		out = append(out, data[row*rowSize:(row+1)*rowSize]...)
	}

	outShape := shape.Clone()
	outShape[0] = len(rows)
	return tensor.FromSlice(out, outShape)
}
