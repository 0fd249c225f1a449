// Package loss provides the pointwise loss functions models train against:
// a small strategy interface with one stateless, independent implementation
// per variant, selected by Kind through New.
package loss

import (
	"fmt"
	"math"
)

// Kind identifies one of the built-in loss functions.
type Kind int

const (
	Square Kind = iota
	Logistic
	Log
	Hinge
	SquaredHinge
	CrossEntropy
)

// String returns the canonical variant name for k.
func (k Kind) String() string {
	switch k {
	case Square:
		return "Square"
	case Logistic:
		return "Logistic"
	case Log:
		return "Log"
	case Hinge:
		return "Hinge"
	case SquaredHinge:
		return "SquaredHinge"
	case CrossEntropy:
		return "CrossEntropy"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a canonical variant name back to its Kind. Unlike New,
// which tolerates unknown tags, an unknown name is an error so that
// misspelled configuration fails loudly.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "Square":
		return Square, nil
	case "Logistic":
		return Logistic, nil
	case "Log":
		return Log, nil
	case "Hinge":
		return Hinge, nil
	case "SquaredHinge":
		return SquaredHinge, nil
	case "CrossEntropy":
		return CrossEntropy, nil
	}
	return 0, fmt.Errorf("loss: unknown kind %q", name)
}

// Function is a loss on a single (prediction, truth) pair. Evaluate returns
// the loss value and Gradient its first derivative with respect to the
// prediction, positive when the loss increases with the prediction. Predict
// maps a raw model score into the space Evaluate and Gradient expect:
// the identity for losses defined directly on scores, a sigmoid squashing
// into (0,1) for CrossEntropyLoss.
//
// Implementations are stateless values. A single instance may be shared and
// called concurrently from any number of goroutines without synchronization.
type Function interface {
	Name() string
	Evaluate(pred, truth float64) float64
	Gradient(pred, truth float64) float64
	Predict(x float64) float64
}

// New returns the loss function for k. An unrecognized kind deliberately
// falls back to SquareLoss rather than failing.
func New(k Kind) Function {
	switch k {
	case Square:
		return SquareLoss{}
	case Logistic:
		return LogisticLoss{}
	case CrossEntropy:
		return CrossEntropyLoss{}
	case Log:
		return LogLoss{}
	case Hinge:
		return HingeLoss{}
	case SquaredHinge:
		return SquaredHingeLoss{}
	default:
		return SquareLoss{}
	}
}

// DomainError reports an input outside the domain a variant is defined on.
// Evaluate and Gradient panic with a DomainError instead of returning a
// number computed from inputs they are not defined for.
type DomainError struct {
	Loss  string // variant name
	Arg   string // offending argument
	Value float64
}

func (e DomainError) Error() string {
	return fmt.Sprintf("loss: %s: %s=%g outside domain", e.Loss, e.Arg, e.Value)
}

// SquareLoss is the squared error l(p, y) = (y - p)^2.
type SquareLoss struct{}

func (s SquareLoss) Name() string { return "Square" }

func (s SquareLoss) Evaluate(pred, truth float64) float64 {
	diff := truth - pred
	return diff * diff
}

func (s SquareLoss) Gradient(pred, truth float64) float64 {
	return -2 * (truth - pred)
}

func (s SquareLoss) Predict(x float64) float64 { return x }

// LogisticLoss is the negative log likelihood -y*ln(p) - (1-y)*ln(1-p) for
// predictions already squashed into [0,1] against {0,1} truths. For raw
// scores use CrossEntropyLoss instead, which folds the sigmoid in.
type LogisticLoss struct{}

func (l LogisticLoss) Name() string { return "Logistic" }

// Evaluate requires pred in [0,1] and truth in {0,1}; anything else panics
// with a DomainError. The log argument is floored at 1e-4 so a boundary
// pred stays finite.
func (l LogisticLoss) Evaluate(pred, truth float64) float64 {
	if !(pred >= 0 && pred <= 1) {
		panic(DomainError{Loss: "Logistic", Arg: "pred", Value: pred})
	}
	if truth != 0 && truth != 1 {
		panic(DomainError{Loss: "Logistic", Arg: "truth", Value: truth})
	}
	if truth == 0 {
		return -math.Log(math.Max(1e-4, 1-pred))
	}
	return -math.Log(math.Max(1e-4, pred))
}

// Gradient requires pred strictly inside (0,1): it is not floored the way
// Evaluate is, and diverges at the boundary.
func (l LogisticLoss) Gradient(pred, truth float64) float64 {
	if !(pred > 0 && pred < 1) {
		panic(DomainError{Loss: "Logistic", Arg: "pred", Value: pred})
	}
	if truth != 0 && truth != 1 {
		panic(DomainError{Loss: "Logistic", Arg: "truth", Value: truth})
	}
	return (pred - truth) / (pred * (1 - pred))
}

func (l LogisticLoss) Predict(x float64) float64 { return x }

// CrossEntropyLoss is logistic loss on a raw score a through the sigmoid
// link, rewritten so no large exponential is ever formed:
// l(a, y) = (1-y)*a + ln(1+exp(-a)).
type CrossEntropyLoss struct{}

func (c CrossEntropyLoss) Name() string { return "CrossEntropy" }

// Evaluate assumes truth in [0,1]. Past |a| = 18 the softplus term is
// replaced by its asymptote.
func (c CrossEntropyLoss) Evaluate(pred, truth float64) float64 {
	ret := (1 - truth) * pred
	if pred > 18 {
		return ret + math.Exp(-pred)
	}
	if pred < -18 {
		return ret - pred
	}
	return ret + math.Log1p(math.Exp(-pred))
}

func (c CrossEntropyLoss) Gradient(pred, truth float64) float64 {
	if pred < -18 {
		return math.Exp(pred) - truth
	}
	if pred > 18 {
		return 1 - truth
	}
	return 1/(1+math.Exp(-pred)) - truth
}

// Predict squashes a raw score into (0,1).
func (c CrossEntropyLoss) Predict(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// LogLoss is the binomial deviance on a signed margin,
// l(a, y) = ln(1+exp(-a*y)), for truths conventionally coded -1/+1.
type LogLoss struct{}

func (l LogLoss) Name() string { return "Log" }

// Evaluate switches to the softplus asymptotes past |a*y| = 18, same
// cutoff as CrossEntropyLoss.
func (l LogLoss) Evaluate(pred, truth float64) float64 {
	z := pred * truth
	if z > 18 {
		return math.Exp(-z)
	}
	if z < -18 {
		return -z
	}
	return math.Log1p(math.Exp(-z))
}

func (l LogLoss) Gradient(pred, truth float64) float64 {
	z := pred * truth
	if z > 18 {
		return -truth * math.Exp(-z)
	}
	if z < -18 {
		return -truth
	}
	return -truth / (1 + math.Exp(z))
}

func (l LogLoss) Predict(x float64) float64 { return x }

// HingeLoss is the SVM hinge max(0, 1 - a*y): zero loss and zero gradient
// once the margin a*y clears 1.
type HingeLoss struct{}

func (h HingeLoss) Name() string { return "Hinge" }

func (h HingeLoss) Evaluate(pred, truth float64) float64 {
	z := pred * truth
	if z > 1 {
		return 0
	}
	return 1 - z
}

func (h HingeLoss) Gradient(pred, truth float64) float64 {
	if pred*truth > 1 {
		return 0
	}
	return -truth
}

func (h HingeLoss) Predict(x float64) float64 { return x }

// SquaredHingeLoss is 0.5*max(0, 1 - a*y)^2: hinge with a smooth decay
// inside the margin instead of a constant slope.
type SquaredHingeLoss struct{}

func (s SquaredHingeLoss) Name() string { return "SquaredHinge" }

func (s SquaredHingeLoss) Evaluate(pred, truth float64) float64 {
	z := pred * truth
	if z > 1 {
		return 0
	}
	d := 1 - z
	return 0.5 * d * d
}

func (s SquaredHingeLoss) Gradient(pred, truth float64) float64 {
	z := pred * truth
	if z > 1 {
		return 0
	}
	return -truth * (1 - z)
}

func (s SquaredHingeLoss) Predict(x float64) float64 { return x }
