package vidode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestInstanceNorm2dMoments(t *testing.T) {
	batchSize, channels, height, width := 2, 3, 5, 5

	g := gorgonia.NewGraph()
	input := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, channels, height, width), gorgonia.WithName("features"))
	normalized, err := InstanceNorm2d(input, InstanceNormEpsilon)
	require.NoError(t, err)
	require.Equal(t, []int{batchSize, channels, height, width}, []int(normalized.Shape()))

	var out gorgonia.Value
	gorgonia.Read(normalized, &out)

	tm := gorgonia.NewTapeMachine(g)
	defer tm.Close()

	data := make([]float64, batchSize*channels*height*width)
	for i := range data {
		data[i] = float64(i%17)*0.35 - 2.0
	}
	err = gorgonia.Let(input, tensor.New(tensor.WithShape(batchSize, channels, height, width), tensor.WithBacking(data)))
	require.NoError(t, err)
	require.NoError(t, tm.RunAll())

	dense := out.(*tensor.Dense)
	area := height * width
	for b := 0; b < batchSize; b++ {
		for c := 0; c < channels; c++ {
			sum, sumSq := 0.0, 0.0
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					v, err := dense.At(b, c, y, x)
					require.NoError(t, err)
					sum += v.(float64)
					sumSq += v.(float64) * v.(float64)
				}
			}
			mean := sum / float64(area)
			std := math.Sqrt(sumSq/float64(area) - mean*mean)
			require.InDelta(t, 0.0, mean, 1e-9)
			require.InDelta(t, 1.0, std, 1e-3)
		}
	}
}

func TestInstanceNorm2dRejectsNon4D(t *testing.T) {
	g := gorgonia.NewGraph()
	vec := gorgonia.NewTensor(g, gorgonia.Float64, 2, gorgonia.WithShape(3, 3), gorgonia.WithName("matrix"))
	_, err := InstanceNorm2d(vec, InstanceNormEpsilon)
	require.Error(t, err)
}
