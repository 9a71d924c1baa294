package vidode

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// VideoSet Training triple fed into the adversarial losses: conditioning clip, ground
// truth continuation and the generator's prediction for it.
type VideoSet struct {
	InputReal *tensor.Dense
	Real      *tensor.Dense
	Fake      *tensor.Dense
}

// NormRandVideoDense Return reference to tensor.Dense shaped as a video clip
// (batch, time, channels, height, width) filled with normally distributed float64 values.
func NormRandVideoDense(batchSize, timeSteps, channels, height, width int) *tensor.Dense {
	data := make([]float64, batchSize*timeSteps*channels*height*width)
	for i := range data {
		data[i] = rand.NormFloat64()
	}
	return tensor.New(tensor.WithShape(batchSize, timeSteps, channels, height, width), tensor.WithBacking(data))
}

// UniformRandVideoDense Return reference to tensor.Dense shaped as a video clip
// (batch, time, channels, height, width) filled with pseudo-random float64 values in [0.0,1.0).
func UniformRandVideoDense(batchSize, timeSteps, channels, height, width int) *tensor.Dense {
	data := make([]float64, batchSize*timeSteps*channels*height*width)
	for i := range data {
		data[i] = rand.Float64()
	}
	return tensor.New(tensor.WithShape(batchSize, timeSteps, channels, height, width), tensor.WithBacking(data))
}

// RandVideoSet Synthetic training triple: uniform "real" clips and a normally distributed
// stand-in for the generator's prediction.
func RandVideoSet(batchSize, timeSteps, channels, height, width int) *VideoSet {
	return &VideoSet{
		InputReal: UniformRandVideoDense(batchSize, timeSteps, channels, height, width),
		Real:      UniformRandVideoDense(batchSize, timeSteps, channels, height, width),
		Fake:      NormRandVideoDense(batchSize, timeSteps, channels, height, width),
	}
}
