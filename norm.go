package vidode

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// InstanceNormEpsilon Default variance epsilon. Matches torch.nn.InstanceNorm2d
const InstanceNormEpsilon = 1e-5

// InstanceNorm2d Normalizes each (batch, channel) feature map of a 4D input to zero mean
// and unit variance over its spatial axes. Non-affine: there are no learnable scale/shift.
//
// x - Input node of shape (batch, channels, height, width)
// eps - Value added to the variance before taking the square root
//
func InstanceNorm2d(x *gorgonia.Node, eps float64) (*gorgonia.Node, error) {
	if x.Dims() != 4 {
		return nil, fmt.Errorf("Instance normalization needs 4 dimensions, but got %d", x.Dims())
	}
	batchSize := x.Shape()[0]
	channels := x.Shape()[1]
	height := x.Shape()[2]
	width := x.Shape()[3]

	// Reductions run over one axis at a time: fold the spatial axes together first.
	flat, err := gorgonia.Reshape(x, tensor.Shape{batchSize, channels, height * width})
	if err != nil {
		return nil, errors.Wrap(err, "Can't fold spatial axes for reduction")
	}
	mean, err := gorgonia.Mean(flat, 2)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do mean(x) over spatial axes")
	}
	mean, err = gorgonia.Reshape(mean, tensor.Shape{batchSize, channels, 1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape mean(x) for broadcasting")
	}
	centered, err := gorgonia.BroadcastSub(x, mean, nil, []byte{2, 3})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x - mean)")
	}
	squared, err := gorgonia.Square(centered)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x - mean)^2")
	}
	squared, err = gorgonia.Reshape(squared, tensor.Shape{batchSize, channels, height * width})
	if err != nil {
		return nil, errors.Wrap(err, "Can't fold spatial axes of (x - mean)^2 for reduction")
	}
	variance, err := gorgonia.Mean(squared, 2)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do mean((x - mean)^2) over spatial axes")
	}
	variance, err = gorgonia.Reshape(variance, tensor.Shape{batchSize, channels, 1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape variance for broadcasting")
	}
	epsScalar := gorgonia.NewScalar(x.Graph(), x.Dtype(), gorgonia.WithValue(eps))
	shifted, err := gorgonia.Add(variance, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (variance + eps)")
	}
	stddev, err := gorgonia.Sqrt(shifted)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do sqrt(variance + eps)")
	}
	normalized, err := gorgonia.BroadcastHadamardDiv(centered, stddev, nil, []byte{2, 3})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x - mean) / stddev")
	}
	return normalized, nil
}
