package vidode

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// LeakySlope Negative slope shared by every leaky ReLU in the discriminator stack
const LeakySlope = 0.2

// Discriminator Patch-level real/fake classifier for video prediction.
//
// It is a stack of five convolutional blocks producing an unnormalized score map:
// the first and the last blocks are bare convolutions, the middle three are
// ConvNormAct blocks. Sequence/extrapolation flags select how 5D video tensors are
// rearranged before scoring and are fixed at construction.
//
type Discriminator struct {
	graph  *gorgonia.ExprGraph
	blocks []*ConvNormAct

	inChannels int
	seq        bool
	extrap     bool
}

// NewDiscriminator Constructor for Discriminator.
//
// g - Reference to computational graph holding the learnable kernels
// inChannels - Number of input channels (3 for per-frame mode, 3*seq_len for sequence mode)
// seq - Sequence mode: inputs are rearranged into temporal windows before scoring
// extrap - Chooses extrapolation windowing over interpolation masking in sequence mode
//
func NewDiscriminator(g *gorgonia.ExprGraph, name string, inChannels int, seq, extrap bool) (*Discriminator, error) {
	if inChannels < 1 {
		return nil, fmt.Errorf("Discriminator must have positive number of input channels, but got %d", inChannels)
	}
	lrelu := LeakyRectify(LeakySlope)
	blocks := []*ConvNormAct{
		NewConvNormAct(g, fmt.Sprintf("%s_w0", name), inChannels, 64, 4, 2, 1, false, lrelu),
		NewConvNormAct(g, fmt.Sprintf("%s_w1", name), 64, 128, 4, 2, 1, true, lrelu),
		NewConvNormAct(g, fmt.Sprintf("%s_w2", name), 128, 256, 4, 2, 1, true, lrelu),
		NewConvNormAct(g, fmt.Sprintf("%s_w3", name), 256, 512, 4, 1, 2, true, lrelu),
		NewConvNormAct(g, fmt.Sprintf("%s_w4", name), 512, 64, 4, 1, 2, false, NoActivation),
	}
	return &Discriminator{
		graph:      g,
		blocks:     blocks,
		inChannels: inChannels,
		seq:        seq,
		extrap:     extrap,
	}, nil
}

// Graph Returns reference to the underlying computational graph
func (net *Discriminator) Graph() *gorgonia.ExprGraph {
	return net.graph
}

// InChannels Returns configured number of input channels
func (net *Discriminator) InChannels() int {
	return net.inChannels
}

// Seq Reports whether the discriminator scores temporal windows instead of single frames
func (net *Discriminator) Seq() bool {
	return net.seq
}

// Extrap Reports whether sequence mode uses extrapolation windowing
func (net *Discriminator) Extrap() bool {
	return net.extrap
}

// Learnables Returns learnables nodes
func (net *Discriminator) Learnables() gorgonia.Nodes {
	learnables := make(gorgonia.Nodes, 0, len(net.blocks))
	for _, block := range net.blocks {
		if block != nil && block.WeightNode != nil {
			learnables = append(learnables, block.WeightNode)
		}
	}
	return learnables
}

// Fwd Feedforwards provided input through the whole stack and returns the score map node.
// Pure function of the kernel weights and the input.
//
// input - Node of shape (batch, in_channels, height, width)
//
func (net *Discriminator) Fwd(input *gorgonia.Node) (*gorgonia.Node, error) {
	if input.Dims() != 4 {
		return nil, fmt.Errorf("Discriminator input must have 4 dimensions, but got %d", input.Dims())
	}
	if input.Shape()[1] != net.inChannels {
		return nil, fmt.Errorf("Discriminator is configured for %d input channels, but got %d", net.inChannels, input.Shape()[1])
	}
	out := input
	for i, block := range net.blocks {
		if block == nil {
			return nil, fmt.Errorf("Discriminator's block #%d is nil", i)
		}
		activated, err := block.Fwd(out)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("[Discriminator, Block #%d] Can't feedforward input", i))
		}
		out = activated
	}
	return out, nil
}
