package vidode

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// ActivationFunc Just an alias to Gorgonia's api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node) (*gorgonia.Node, error) { return a, nil }
func Rectify(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Rectify(a) }
func Sigmoid(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }
func Tanh(a *gorgonia.Node) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }

// LeakyRectify Returns leaky ReLU activation with provided negative slope.
// Gorgonia does not ship a dedicated op for it, so it is composed as relu(x) - alpha*relu(-x).
func LeakyRectify(alpha float64) ActivationFunc {
	return func(a *gorgonia.Node) (*gorgonia.Node, error) {
		pos, err := gorgonia.Rectify(a)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do relu(x)")
		}
		neg, err := gorgonia.Neg(a)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do -1*x")
		}
		negPart, err := gorgonia.Rectify(neg)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do relu(-x)")
		}
		alphaScalar := gorgonia.NewScalar(a.Graph(), a.Dtype(), gorgonia.WithValue(alpha))
		scaled, err := gorgonia.Mul(alphaScalar, negPart)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do alpha*relu(-x)")
		}
		return gorgonia.Sub(pos, scaled)
	}
}
