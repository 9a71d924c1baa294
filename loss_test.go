package vidode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestMSELossValues(t *testing.T) {
	g := gorgonia.NewGraph()
	a := gorgonia.NewVector(g, gorgonia.Float64, gorgonia.WithShape(3), gorgonia.WithName("a"))
	zeros := gorgonia.NewVector(g, gorgonia.Float64, gorgonia.WithShape(3), gorgonia.WithName("b"))

	meanLoss, err := MSELoss(a, zeros)
	require.NoError(t, err)
	sumLoss, err := MSELoss(a, zeros, LossReductionSum)
	require.NoError(t, err)

	var meanOut, sumOut gorgonia.Value
	gorgonia.Read(meanLoss, &meanOut)
	gorgonia.Read(sumLoss, &sumOut)

	tm := gorgonia.NewTapeMachine(g)
	defer tm.Close()

	require.NoError(t, gorgonia.Let(a, tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{1, 2, 3}))))
	require.NoError(t, gorgonia.Let(zeros, tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{0, 0, 0}))))
	require.NoError(t, tm.RunAll())

	require.InDelta(t, 14.0/3.0, meanOut.Data().(float64), 1e-12)
	require.InDelta(t, 14.0, sumOut.Data().(float64), 1e-12)
}

func TestNetDAdvLossMatchesClosedForm(t *testing.T) {
	b, timeSteps, c, h, w := 1, 2, 3, 8, 8

	g := gorgonia.NewGraph()
	net, err := NewDiscriminator(g, "d", c, false, true)
	require.NoError(t, err)

	clipShape := []int{b, timeSteps, c, h, w}
	real := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("real"))
	fake := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("fake"))
	inputReal := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("input_real"))

	lossD, err := net.NetDAdvLoss(real, fake, inputReal)
	require.NoError(t, err)
	require.True(t, lossD.IsScalar())

	// Rebuild the two scoring branches explicitly to recover the raw score maps.
	realFlat, err := FlattenTime(real)
	require.NoError(t, err)
	fakeFlat, err := FlattenTime(fake)
	require.NoError(t, err)
	predReal, err := net.Fwd(realFlat)
	require.NoError(t, err)
	predFake, err := net.Fwd(fakeFlat)
	require.NoError(t, err)

	var lossOut, predRealOut, predFakeOut gorgonia.Value
	gorgonia.Read(lossD, &lossOut)
	gorgonia.Read(predReal, &predRealOut)
	gorgonia.Read(predFake, &predFakeOut)

	tm := gorgonia.NewTapeMachine(g)
	defer tm.Close()

	clips := RandVideoSet(b, timeSteps, c, h, w)
	require.NoError(t, gorgonia.Let(real, clips.Real))
	require.NoError(t, gorgonia.Let(fake, clips.Fake))
	require.NoError(t, gorgonia.Let(inputReal, clips.InputReal))
	require.NoError(t, tm.RunAll())

	realScores := predRealOut.(*tensor.Dense).Data().([]float64)
	fakeScores := predFakeOut.(*tensor.Dense).Data().([]float64)
	require.NotEmpty(t, realScores)
	require.Equal(t, len(realScores), len(fakeScores))

	sumReal, sumFake := 0.0, 0.0
	for i := range realScores {
		sumReal += (realScores[i] - 1.0) * (realScores[i] - 1.0)
		sumFake += fakeScores[i] * fakeScores[i]
	}
	expected := 0.5 * (sumReal/float64(len(realScores)) + sumFake/float64(len(fakeScores)))
	require.InDelta(t, expected, lossOut.Data().(float64), 1e-10)
}

func TestNetDAdvLossSequenceModes(t *testing.T) {
	b, timeSteps, c, h, w := 1, 2, 3, 8, 8
	clipShape := []int{b, timeSteps, c, h, w}

	cases := []struct {
		name   string
		extrap bool
		inCh   int
	}{
		{"extrapolation", true, c * (timeSteps + 1)},
		{"interpolation", false, c * timeSteps},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := gorgonia.NewGraph()
			net, err := NewDiscriminator(g, "d", tc.inCh, true, tc.extrap)
			require.NoError(t, err)

			real := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("real"))
			fake := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("fake"))
			inputReal := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("input_real"))

			lossD, err := net.NetDAdvLoss(real, fake, inputReal)
			require.NoError(t, err)
			require.True(t, lossD.IsScalar())

			var lossOut gorgonia.Value
			gorgonia.Read(lossD, &lossOut)

			tm := gorgonia.NewTapeMachine(g)
			defer tm.Close()

			clips := RandVideoSet(b, timeSteps, c, h, w)
			require.NoError(t, gorgonia.Let(real, clips.Real))
			require.NoError(t, gorgonia.Let(fake, clips.Fake))
			require.NoError(t, gorgonia.Let(inputReal, clips.InputReal))
			require.NoError(t, tm.RunAll())

			loss := lossOut.Data().(float64)
			require.False(t, math.IsNaN(loss))
			require.GreaterOrEqual(t, loss, 0.0)
		})
	}
}

func TestNetGAdvLossGradientFlowsIntoFake(t *testing.T) {
	b, timeSteps, c, h, w := 1, 2, 3, 8, 8

	g := gorgonia.NewGraph()
	net, err := NewDiscriminator(g, "d", c, false, true)
	require.NoError(t, err)

	clipShape := []int{b, timeSteps, c, h, w}
	fake := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("fake"))
	inputReal := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("input_real"))

	lossG, err := net.NetGAdvLoss(fake, inputReal)
	require.NoError(t, err)
	require.True(t, lossG.IsScalar())

	_, err = gorgonia.Grad(lossG, fake)
	require.NoError(t, err)

	tm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(fake))
	defer tm.Close()

	clips := RandVideoSet(b, timeSteps, c, h, w)
	require.NoError(t, gorgonia.Let(fake, clips.Fake))
	require.NoError(t, gorgonia.Let(inputReal, clips.InputReal))
	require.NoError(t, tm.RunAll())

	grad, err := fake.Grad()
	require.NoError(t, err)
	require.Equal(t, []int(fake.Shape()), []int(grad.Shape()))

	maxAbs := 0.0
	for _, v := range grad.Data().([]float64) {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	require.Greater(t, maxAbs, 0.0, "generator loss must propagate a non-zero gradient into the fake clip")
}

func TestNetGAdvLossGradientFlowsInSequenceModes(t *testing.T) {
	b, timeSteps, c, h, w := 1, 2, 3, 8, 8
	clipShape := []int{b, timeSteps, c, h, w}

	cases := []struct {
		name   string
		extrap bool
		inCh   int
	}{
		{"extrapolation", true, c * (timeSteps + 1)},
		{"interpolation", false, c * timeSteps},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := gorgonia.NewGraph()
			net, err := NewDiscriminator(g, "d", tc.inCh, true, tc.extrap)
			require.NoError(t, err)

			fake := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("fake"))
			inputReal := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("input_real"))

			lossG, err := net.NetGAdvLoss(fake, inputReal)
			require.NoError(t, err)
			require.True(t, lossG.IsScalar())

			_, err = gorgonia.Grad(lossG, fake)
			require.NoError(t, err)

			tm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(fake))
			defer tm.Close()

			clips := RandVideoSet(b, timeSteps, c, h, w)
			require.NoError(t, gorgonia.Let(fake, clips.Fake))
			require.NoError(t, gorgonia.Let(inputReal, clips.InputReal))
			require.NoError(t, tm.RunAll())

			grad, err := fake.Grad()
			require.NoError(t, err)
			require.Equal(t, []int(fake.Shape()), []int(grad.Shape()))

			maxAbs := 0.0
			for _, v := range grad.Data().([]float64) {
				if a := math.Abs(v); a > maxAbs {
					maxAbs = a
				}
			}
			require.Greater(t, maxAbs, 0.0, "sequence rearrangement must stay differentiable back to the fake clip")
		})
	}
}
