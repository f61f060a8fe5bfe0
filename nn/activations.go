package nn

import (
	"fmt"
	"math"
)

// ActivationType defines the type for activation functions applied elementwise to hidden layers.
type ActivationType func(x float64) float64

// Activations maps function names to the actual activation functions.
// This allows configuration to specify the hidden-layer activation by name.
var Activations = map[string]ActivationType{
	"relu":     ReLU,
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"identity": Identity,
	"clamped":  Clamped,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := Activations[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Sigmoid is the plain logistic function 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Tanh activation function.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped activation function (clamps output between -1 and 1).
func Clamped(x float64) float64 {
	return math.Max(-1.0, math.Min(x, 1.0))
}
