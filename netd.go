package vidode

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// Options Configuration for the discriminator pair, mirroring the training-loop options
// that matter to this component.
//
// SampleSize - Number of frames sampled from a clip
// Irregular - Clips are sampled on an irregular time grid
// Extrap - Extrapolation task (predict future frames) instead of interpolation
// LR - Learning rate of the shared solver
//
type Options struct {
	SampleSize int
	Irregular  bool
	Extrap     bool
	LR         float64
}

// DerivedSeqLen Window length the sequence discriminator is sized for: half the sample
// size, the full sample size for irregular interpolation, plus one extra conditioning
// frame for extrapolation.
func DerivedSeqLen(opt Options) int {
	seqLen := opt.SampleSize / 2
	if opt.Irregular && !opt.Extrap {
		seqLen = opt.SampleSize
	}
	if opt.Extrap {
		seqLen++
	}
	return seqLen
}

// NetD Discriminator pair with the shared solver stepping the union of their kernels.
//
// Img - Per-frame discriminator scoring individual frames (time folded into batch)
// Seq - Per-sequence discriminator scoring temporal windows
//
type NetD struct {
	Img        *Discriminator
	Seq        *Discriminator
	Solver     gorgonia.Solver
	learnables gorgonia.Nodes
}

// Learnables Returns the union of both discriminators' learnable nodes
func (netD *NetD) Learnables() gorgonia.Nodes {
	return netD.learnables
}

// Step Applies one solver update to the union of both discriminators' kernels.
// Moment buffers live inside the solver and mutate only here.
func (netD *NetD) Step() error {
	if err := netD.Solver.Step(gorgonia.NodesToValueGrads(netD.learnables)); err != nil {
		return errors.Wrap(err, "Can't step discriminator solver")
	}
	return nil
}

// CreateNetD Builds the image-level and sequence-level discriminators on the provided
// graph together with one Adam solver over the union of their parameters (the original
// recipe asks for Adamax, which Gorgonia does not ship; Adam is its closest sibling).
func CreateNetD(g *gorgonia.ExprGraph, opt Options) (*NetD, error) {
	if opt.SampleSize < 1 {
		return nil, fmt.Errorf("Sample size must be positive, but got %d", opt.SampleSize)
	}
	if opt.LR <= 0 {
		return nil, fmt.Errorf("Learning rate must be positive, but got %f", opt.LR)
	}
	seqLen := DerivedSeqLen(opt)

	netDImg, err := NewDiscriminator(g, "netd_img", 3, false, opt.Extrap)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build image discriminator")
	}
	netDSeq, err := NewDiscriminator(g, "netd_seq", 3*seqLen, true, opt.Extrap)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build sequence discriminator")
	}

	learnables := append(gorgonia.Nodes{}, netDImg.Learnables()...)
	learnables = append(learnables, netDSeq.Learnables()...)

	solver := gorgonia.NewAdamSolver(gorgonia.WithLearnRate(opt.LR))
	return &NetD{
		Img:        netDImg,
		Seq:        netDSeq,
		Solver:     solver,
		learnables: learnables,
	}, nil
}
