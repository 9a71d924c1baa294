package vidode

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// FlattenTime Folds the time axis of a 5D video node into the batch axis:
// (batch, time, channels, height, width) -> (batch*time, channels, height, width)
func FlattenTime(x *gorgonia.Node) (*gorgonia.Node, error) {
	if x.Dims() != 5 {
		return nil, fmt.Errorf("Video node must have 5 dimensions, but got %d", x.Dims())
	}
	b, t, c, h, w := x.Shape()[0], x.Shape()[1], x.Shape()[2], x.Shape()[3], x.Shape()[4]
	flat, err := gorgonia.Reshape(x, tensor.Shape{b * t, c, h, w})
	if err != nil {
		return nil, errors.Wrap(err, "Can't fold time axis into batch axis")
	}
	return flat, nil
}

// RearrangeSeq Extrapolation windowing over a predicted clip.
//
// For every time step i a window is built by concatenating the trailing (t-i) frames of
// the conditioning input with the leading (i+1) frames of the target sequence, so each
// window always holds t+1 frames. All t windows are stacked along the batch axis and the
// frames are folded into channels:
// (batch, time, channels, height, width) -> (batch*time, (time+1)*channels, height, width).
//
// real, fake, inputReal - Video nodes of identical shape (batch, time, channels, height, width)
// onlyFake - Skip the real sequence entirely (real may be nil then); first returned node is nil
//
func (net *Discriminator) RearrangeSeq(real, fake, inputReal *gorgonia.Node, onlyFake bool) (*gorgonia.Node, *gorgonia.Node, error) {
	fakeSeqs, err := windowSeq(fake, inputReal, "fake")
	if err != nil {
		return nil, nil, err
	}
	if onlyFake {
		return nil, fakeSeqs, nil
	}
	realSeqs, err := windowSeq(real, inputReal, "real")
	if err != nil {
		return nil, nil, err
	}
	return realSeqs, fakeSeqs, nil
}

func windowSeq(target, inputReal *gorgonia.Node, kind string) (*gorgonia.Node, error) {
	if target == nil {
		return nil, fmt.Errorf("Can't build %s windows: target node is nil", kind)
	}
	if target.Dims() != 5 {
		return nil, fmt.Errorf("Can't build %s windows: target must have 5 dimensions, but got %d", kind, target.Dims())
	}
	if inputReal == nil {
		return nil, fmt.Errorf("Can't build %s windows: conditioning input node is nil", kind)
	}
	b, t, c, h, w := target.Shape()[0], target.Shape()[1], target.Shape()[2], target.Shape()[3], target.Shape()[4]
	// Window i is [inputReal[:, i:], target[:, :i+1]], which equals the sliding
	// (t+1)-frame view at offset i of the two clips concatenated along time. Slicing
	// the concatenation keeps every slice at width t+1, so no axis ever collapses and
	// the whole construction stays symbolically differentiable.
	allFrames, err := gorgonia.Concat(1, inputReal, target)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't concatenate conditioning input and %s clip along time axis", kind))
	}
	windows := make([]*gorgonia.Node, 0, t)
	for i := 0; i < t; i++ {
		window, err := gorgonia.Slice(allFrames, nil, gorgonia.S(i, i+t+1))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't slice %s window frames [%d:%d]", kind, i, i+t+1))
		}
		windows = append(windows, window)
	}
	stacked, err := gorgonia.Concat(0, windows...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stack windows along batch axis")
	}
	folded, err := gorgonia.Reshape(stacked, tensor.Shape{b * t, (t + 1) * c, h, w})
	if err != nil {
		return nil, errors.Wrap(err, "Can't fold window frames into channels")
	}
	return folded, nil
}

// RearrangeSeqInterp Interpolation masking over a predicted clip.
//
// For every time step i the conditioning input and the target are blended with a one-hot
// selection mask (row i of the identity matrix broadcast to the video shape), producing a
// variant that equals the conditioning input everywhere except frame i, which is taken
// from the target. All t variants are stacked along the batch axis and folded:
// (batch, time, channels, height, width) -> (batch*time, time*channels, height, width).
//
// real, fake, inputReal - Video nodes of identical shape (batch, time, channels, height, width)
// onlyFake - Skip the real sequence entirely (real may be nil then); first returned node is nil
//
func (net *Discriminator) RearrangeSeqInterp(real, fake, inputReal *gorgonia.Node, onlyFake bool) (*gorgonia.Node, *gorgonia.Node, error) {
	fakeSeqs, err := maskSeq(fake, inputReal, "fake")
	if err != nil {
		return nil, nil, err
	}
	if onlyFake {
		return nil, fakeSeqs, nil
	}
	realSeqs, err := maskSeq(real, inputReal, "real")
	if err != nil {
		return nil, nil, err
	}
	return realSeqs, fakeSeqs, nil
}

func maskSeq(target, inputReal *gorgonia.Node, kind string) (*gorgonia.Node, error) {
	if target == nil {
		return nil, fmt.Errorf("Can't build %s masked variants: target node is nil", kind)
	}
	if target.Dims() != 5 {
		return nil, fmt.Errorf("Can't build %s masked variants: target must have 5 dimensions, but got %d", kind, target.Dims())
	}
	if inputReal == nil {
		return nil, fmt.Errorf("Can't build %s masked variants: conditioning input node is nil", kind)
	}
	g := target.Graph()
	b, t, c, h, w := target.Shape()[0], target.Shape()[1], target.Shape()[2], target.Shape()[3], target.Shape()[4]
	// Broadcasting is limited to axes 0..3, so the blend runs on a 4D view with the
	// spatial axes folded together.
	targetFlat, err := gorgonia.Reshape(target, tensor.Shape{b, t, c, h * w})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't fold spatial axes of %s clip for masking", kind))
	}
	inputFlat, err := gorgonia.Reshape(inputReal, tensor.Shape{b, t, c, h * w})
	if err != nil {
		return nil, errors.Wrap(err, "Can't fold spatial axes of conditioning input for masking")
	}
	variants := make([]*gorgonia.Node, 0, t)
	for i := 0; i < t; i++ {
		mask, invMask := oneHotMaskPair(g, t, i, kind)
		keptInput, err := gorgonia.BroadcastHadamardProd(inputFlat, invMask, nil, []byte{0, 2, 3})
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't do ((1-mask) .* input) for time step %d", i))
		}
		selectedTarget, err := gorgonia.BroadcastHadamardProd(targetFlat, mask, nil, []byte{0, 2, 3})
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't do (mask .* %s) for time step %d", kind, i))
		}
		variant, err := gorgonia.Add(keptInput, selectedTarget)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't blend masked %s variant for time step %d", kind, i))
		}
		variants = append(variants, variant)
	}
	stacked, err := gorgonia.Concat(0, variants...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stack masked variants along batch axis")
	}
	folded, err := gorgonia.Reshape(stacked, tensor.Shape{b * t, t * c, h, w})
	if err != nil {
		return nil, errors.Wrap(err, "Can't fold masked variant frames into channels")
	}
	return folded, nil
}

// oneHotMaskPair Builds constant (1,t,1,1)-shaped one-hot mask and its inverse (row i of eye(t))
func oneHotMaskPair(g *gorgonia.ExprGraph, t, i int, kind string) (*gorgonia.Node, *gorgonia.Node) {
	maskData := make([]float64, t)
	invData := make([]float64, t)
	for j := 0; j < t; j++ {
		if j == i {
			maskData[j] = 1.0
		} else {
			invData[j] = 1.0
		}
	}
	maskShape := tensor.Shape{1, t, 1, 1}
	maskValue := tensor.New(tensor.WithShape(maskShape...), tensor.WithBacking(maskData))
	invValue := tensor.New(tensor.WithShape(maskShape...), tensor.WithBacking(invData))
	mask := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(maskShape...), gorgonia.WithName(fmt.Sprintf("%s_interp_mask_%d_%d", kind, t, i)), gorgonia.WithValue(maskValue))
	invMask := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(maskShape...), gorgonia.WithName(fmt.Sprintf("%s_interp_inv_mask_%d_%d", kind, t, i)), gorgonia.WithValue(invValue))
	return mask, invMask
}
