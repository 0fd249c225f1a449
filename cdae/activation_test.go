package cdae

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestActivationValues(t *testing.T) {
	tests := []struct {
		description    string
		activation     ActivationFunction
		x              float64
		wantValue      float64
		wantDerivative float64
	}{
		{"sigmoid at zero", Sigmoid{}, 0, 0.5, 0.25},
		{"tanh at zero", Tanh{}, 0, 0, 1},
		{"relu negative", ReLU{}, -1, 0, 0},
		{"relu positive", ReLU{}, 2, 2, 1},
		{"linear", Linear{}, 3, 3, 1},
		{"linear negative", Linear{}, -0.5, -0.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := tt.activation.Activate(tt.x); got != tt.wantValue {
				t.Errorf("Activate(%v) = %v, want %v", tt.x, got, tt.wantValue)
			}
			if got := tt.activation.Derivative(tt.x); got != tt.wantDerivative {
				t.Errorf("Derivative(%v) = %v, want %v", tt.x, got, tt.wantDerivative)
			}
		})
	}
}

func TestActivationDerivativeMatchesFiniteDifference(t *testing.T) {
	settings := &fd.Settings{Formula: fd.Central}
	smooth := []ActivationFunction{Sigmoid{}, Tanh{}, Linear{}}
	for _, act := range smooth {
		for _, x := range []float64{-4, -1.5, -0.1, 0, 0.1, 1.5, 4} {
			want := fd.Derivative(act.Activate, x, settings)
			got := act.Derivative(x)
			if !scalar.EqualWithinAbsOrRel(got, want, 1e-6, 1e-6) {
				t.Errorf("%T: Derivative(%v) = %v, finite difference = %v", act, x, got, want)
			}
		}
	}
}

func TestSigmoidRange(t *testing.T) {
	s := Sigmoid{}
	for _, x := range []float64{-50, -5, 0, 5, 50} {
		got := s.Activate(x)
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Errorf("Activate(%v) = %v, want a value in [0, 1]", x, got)
		}
	}
}
