package main

import (
	"flag"
	"fmt"
	"math/rand"

	vidode "github.com/ArunMaramraj/Vid-ODE"
	"gorgonia.org/gorgonia"
)

var (
	learningRate = flag.Float64("lr", 0.0001, "learning rate of the shared discriminator solver")
	sampleSize   = flag.Int("sample-size", 4, "number of frames sampled from each clip")
	extrap       = flag.Bool("extrap", true, "extrapolation task instead of interpolation")
	irregular    = flag.Bool("irregular", false, "irregular time grid sampling")
	numSteps     = flag.Int("steps", 200, "training steps to run")
	plotFile     = flag.String("plot", "netd_loss.png", "where to save the loss curve")

	batchSize   = 2
	imgChannels = 3
	imgHeight   = 64
	imgWidth    = 64
)

func main() {
	flag.Parse()
	rand.Seed(1337)

	opt := vidode.Options{
		SampleSize: *sampleSize,
		Irregular:  *irregular,
		Extrap:     *extrap,
		LR:         *learningRate,
	}
	// Predicted frames per clip, derived so that one rearranged window fills the
	// sequence discriminator's input channels exactly: extrapolation windows carry
	// timeSteps+1 frames, interpolation variants carry timeSteps.
	timeSteps := vidode.DerivedSeqLen(opt)
	if opt.Extrap {
		timeSteps--
	}

	/* Define Gorgonia's graph and both discriminators with the shared solver */
	g := gorgonia.NewGraph()
	netD, err := vidode.CreateNetD(g, opt)
	if err != nil {
		panic(err)
	}

	/* Prepare input nodes for the conditioning clip, the ground truth and the generator
	   output. Feeding the generator output by value keeps the discriminator update
	   detached from the generator. */
	clipShape := []int{batchSize, timeSteps, imgChannels, imgHeight, imgWidth}
	inputReal := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("netd_train_input_real"))
	real := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("netd_train_real"))
	fake := gorgonia.NewTensor(g, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("netd_train_fake"))

	/* Prepare cost node: per-frame and per-sequence adversarial losses summed */
	lossImg, err := netD.Img.NetDAdvLoss(real, fake, inputReal)
	if err != nil {
		panic(err)
	}
	gorgonia.WithName("netd_img_loss")(lossImg)
	lossSeq, err := netD.Seq.NetDAdvLoss(real, fake, inputReal)
	if err != nil {
		panic(err)
	}
	gorgonia.WithName("netd_seq_loss")(lossSeq)
	lossD, err := gorgonia.Add(lossImg, lossSeq)
	if err != nil {
		panic(err)
	}
	gorgonia.WithName("netd_loss")(lossD)

	/* Define gradients w.r.t. discriminator kernels only */
	_, err = gorgonia.Grad(lossD, netD.Learnables()...)
	if err != nil {
		panic(err)
	}

	/* Prepare variable for storing the loss value */
	var lossOut gorgonia.Value
	gorgonia.Read(lossD, &lossOut)

	/* Define tape machine */
	tm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(netD.Learnables()...))
	defer tm.Close()

	lossHistory := make([]float64, 0, *numSteps)
	for step := 0; step < *numSteps; step++ {
		clips := vidode.RandVideoSet(batchSize, timeSteps, imgChannels, imgHeight, imgWidth)
		if err = gorgonia.Let(inputReal, clips.InputReal); err != nil {
			panic(err)
		}
		if err = gorgonia.Let(real, clips.Real); err != nil {
			panic(err)
		}
		if err = gorgonia.Let(fake, clips.Fake); err != nil {
			panic(err)
		}

		/* Run training step */
		if err = tm.RunAll(); err != nil {
			panic(err)
		}
		if err = netD.Step(); err != nil {
			panic(err)
		}
		tm.Reset()

		lossHistory = append(lossHistory, lossOut.Data().(float64))
		if (step+1)%50 == 0 {
			fmt.Printf("step %d: netD loss = %f\n", step+1, lossHistory[len(lossHistory)-1])
		}
	}

	stats, err := vidode.SummarizeLosses(lossHistory)
	if err != nil {
		panic(err)
	}
	fmt.Printf("netD loss: mean = %f, stddev = %f, last = %f\n", stats.Mean, stats.StdDev, stats.Last)
	if err := vidode.PlotLossCurve(lossHistory, *plotFile); err != nil {
		panic(err)
	}
	fmt.Println("saved loss curve to", *plotFile)

	/* Generator side of the objective: gradients flow into the fake node, which stands in
	   for the generator's output here */
	gG := gorgonia.NewGraph()
	netG, err := vidode.CreateNetD(gG, opt)
	if err != nil {
		panic(err)
	}
	inputRealG := gorgonia.NewTensor(gG, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("netg_train_input_real"))
	fakeG := gorgonia.NewTensor(gG, gorgonia.Float64, 5, gorgonia.WithShape(clipShape...), gorgonia.WithName("netg_train_fake"))
	lossG, err := netG.Seq.NetGAdvLoss(fakeG, inputRealG)
	if err != nil {
		panic(err)
	}
	gorgonia.WithName("netg_loss")(lossG)
	var lossGOut gorgonia.Value
	gorgonia.Read(lossG, &lossGOut)
	if _, err = gorgonia.Grad(lossG, fakeG); err != nil {
		panic(err)
	}
	tmG := gorgonia.NewTapeMachine(gG, gorgonia.BindDualValues(fakeG))
	defer tmG.Close()

	clips := vidode.RandVideoSet(batchSize, timeSteps, imgChannels, imgHeight, imgWidth)
	if err = gorgonia.Let(inputRealG, clips.InputReal); err != nil {
		panic(err)
	}
	if err = gorgonia.Let(fakeG, clips.Fake); err != nil {
		panic(err)
	}
	if err = tmG.RunAll(); err != nil {
		panic(err)
	}
	fakeGrad, err := fakeG.Grad()
	if err != nil {
		panic(err)
	}
	fmt.Printf("netG loss = %v, fake gradient shape = %v\n", lossGOut, fakeGrad.Shape())
}
