package cdae

import "math"

type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (s Sigmoid) Derivative(x float64) float64 {
	sigmoid := s.Activate(x)
	return sigmoid * (1 - sigmoid)
}

type Tanh struct{}

func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

func (t Tanh) Derivative(x float64) float64 {
	tanh := t.Activate(x)
	return 1 - tanh*tanh
}

type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	return math.Max(x, 0)
}

func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

type Linear struct{}

func (l Linear) Activate(x float64) float64 {
	return x
}

func (l Linear) Derivative(x float64) float64 {
	return 1
}
