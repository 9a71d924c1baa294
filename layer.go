package vidode

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ConvNormAct Single discriminator building block: 2D convolution, optional instance
// normalization, then activation.
//
// WeightNode - Convolution kernel of shape (out_channels, in_channels, kernel_height, kernel_width)
// Norm - Whether instance normalization is applied after the convolution
// Activation - Activation applied to the (normalized) convolution output
//
type ConvNormAct struct {
	WeightNode *gorgonia.Node
	Activation ActivationFunc
	Norm       bool

	KernelHeight int
	KernelWidth  int
	Padding      []int
	Stride       []int
	Dilation     []int
}

// NewConvNormAct Constructor for ConvNormAct. Kernel weights are Glorot-initialized on the provided graph.
//
// g - Reference to computational graph
// name - Name for the kernel node
// inChannels/outChannels - Filter dimensions
// kernelSize/stride/padding - Standard convolution arithmetic parameters
//
func NewConvNormAct(g *gorgonia.ExprGraph, name string, inChannels, outChannels, kernelSize, stride, padding int, norm bool, activation ActivationFunc) *ConvNormAct {
	kernelShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}
	weight := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(kernelShape...), gorgonia.WithName(name), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	return &ConvNormAct{
		WeightNode:   weight,
		Activation:   activation,
		Norm:         norm,
		KernelHeight: kernelSize,
		KernelWidth:  kernelSize,
		Padding:      []int{padding, padding},
		Stride:       []int{stride, stride},
		Dilation:     []int{1, 1},
	}
}

// Fwd Feedforwards provided input through the block.
//
// input - Node of shape (batch, in_channels, height, width)
//
func (block *ConvNormAct) Fwd(input *gorgonia.Node) (*gorgonia.Node, error) {
	if block.WeightNode == nil {
		return nil, fmt.Errorf("ConvNormAct block has nil weight node")
	}
	convolved, err := gorgonia.Conv2d(input, block.WeightNode, tensor.Shape{block.KernelHeight, block.KernelWidth}, block.Padding, block.Stride, block.Dilation)
	if err != nil {
		return nil, errors.Wrap(err, "Can't convolve[2D] input by kernel of ConvNormAct block")
	}
	out := convolved
	if block.Norm {
		out, err = InstanceNorm2d(out, InstanceNormEpsilon)
		if err != nil {
			return nil, errors.Wrap(err, "Can't normalize convolved output of ConvNormAct block")
		}
	}
	if block.Activation == nil {
		return out, nil
	}
	activated, err := block.Activation(out)
	if err != nil {
		return nil, errors.Wrap(err, "Can't apply activation function to output of ConvNormAct block")
	}
	return activated, nil
}
