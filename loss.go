package vidode

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// MSELoss See ref. https://en.wikipedia.org/wiki/Mean_squared_error
// Default reduction is 'mean'
func MSELoss(a, b *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	sub, err := gorgonia.Sub(a, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (A-B)")
	}
	sqr, err := gorgonia.Square(sub)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x^2)")
	}
	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(sqr)
	case LossReductionMean:
		return gorgonia.Mean(sqr)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}

// onesLike Constant tensor of ones shaped after the provided node. Used as the "real" label
// of the least-squares GAN objective.
func onesLike(a *gorgonia.Node) *gorgonia.Node {
	return gorgonia.NewTensor(a.Graph(), a.Dtype(), a.Dims(), gorgonia.WithShape(a.Shape()...), gorgonia.WithInit(gorgonia.Ones()))
}

// rearrangeForScoring Applies the discriminator's rearrangement policy to real/fake clips.
// Sequence mode picks extrapolation windows or interpolation masking; per-frame mode folds
// the time axis into the batch axis.
func (net *Discriminator) rearrangeForScoring(real, fake, inputReal *gorgonia.Node, onlyFake bool) (*gorgonia.Node, *gorgonia.Node, error) {
	if net.seq {
		if net.extrap {
			return net.RearrangeSeq(real, fake, inputReal, onlyFake)
		}
		return net.RearrangeSeqInterp(real, fake, inputReal, onlyFake)
	}
	fakeFlat, err := FlattenTime(fake)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't flatten fake clip")
	}
	if onlyFake {
		return nil, fakeFlat, nil
	}
	realFlat, err := FlattenTime(real)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't flatten real clip")
	}
	return realFlat, fakeFlat, nil
}

// NetDAdvLoss Builds the discriminator side of the least-squares GAN objective:
// 0.5 * (mean((D(real) - 1)^2) + mean(D(fake)^2)).
//
// The fake branch must stay detached from the generator during a discriminator update.
// Gorgonia has no stop-gradient op, so the boundary is structural: request gradients with
// gorgonia.Grad(loss, net.Learnables()...) only, and when the generator lives on another
// graph feed its output value into a plain input node (see cmd/examples).
//
// real, fake, inputReal - Video nodes of shape (batch, time, channels, height, width)
//
func (net *Discriminator) NetDAdvLoss(real, fake, inputReal *gorgonia.Node) (*gorgonia.Node, error) {
	realSeqs, fakeSeqs, err := net.rearrangeForScoring(real, fake, inputReal, false)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't rearrange clips")
	}
	predFake, err := net.Fwd(fakeSeqs)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't score fake clip")
	}
	predReal, err := net.Fwd(realSeqs)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't score real clip")
	}
	lossReal, err := MSELoss(predReal, onesLike(predReal))
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't compute real-branch loss")
	}
	sqrFake, err := gorgonia.Square(predFake)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't do D(fake)^2")
	}
	lossFake, err := gorgonia.Mean(sqrFake)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't do mean(D(fake)^2)")
	}
	lossSum, err := gorgonia.Add(lossReal, lossFake)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't sum branch losses")
	}
	half := gorgonia.NewScalar(lossSum.Graph(), lossSum.Dtype(), gorgonia.WithValue(0.5))
	lossD, err := gorgonia.Mul(half, lossSum)
	if err != nil {
		return nil, errors.Wrap(err, "[NetDAdvLoss] Can't halve summed loss")
	}
	return lossD, nil
}

// NetGAdvLoss Builds the generator side of the least-squares GAN objective:
// mean((D(fake) - 1)^2). No detaching here: the gradient must flow back into the fake node
// so the generator can learn from the discriminator's verdict.
//
// fake, inputReal - Video nodes of shape (batch, time, channels, height, width)
//
func (net *Discriminator) NetGAdvLoss(fake, inputReal *gorgonia.Node) (*gorgonia.Node, error) {
	_, fakeSeqs, err := net.rearrangeForScoring(nil, fake, inputReal, true)
	if err != nil {
		return nil, errors.Wrap(err, "[NetGAdvLoss] Can't rearrange fake clip")
	}
	predFake, err := net.Fwd(fakeSeqs)
	if err != nil {
		return nil, errors.Wrap(err, "[NetGAdvLoss] Can't score fake clip")
	}
	lossG, err := MSELoss(predFake, onesLike(predFake))
	if err != nil {
		return nil, errors.Wrap(err, "[NetGAdvLoss] Can't compute fake-branch loss")
	}
	return lossG, nil
}
