// Package nn implements the fixed-topology feed-forward networks evolved by the trainer.
package nn

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch is returned when Evaluate receives an input of the wrong length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidTopology is returned when a topology or snapshot cannot describe a network.
	ErrInvalidTopology = errors.New("invalid topology")
)

// DefaultActivation is used when a Topology leaves Activation empty.
const DefaultActivation = "relu"

// Topology describes the shape of a network: input width, hidden layer widths
// (possibly none), output width and the activation applied to every hidden layer.
type Topology struct {
	Inputs     int
	Hidden     []int
	Outputs    int
	Activation string
}

// Validate checks that every layer has a positive width and the activation is known.
func (t Topology) Validate() error {
	if t.Inputs <= 0 {
		return fmt.Errorf("%w: inputs must be positive, got %d", ErrInvalidTopology, t.Inputs)
	}
	if t.Outputs <= 0 {
		return fmt.Errorf("%w: outputs must be positive, got %d", ErrInvalidTopology, t.Outputs)
	}
	for i, h := range t.Hidden {
		if h <= 0 {
			return fmt.Errorf("%w: hidden layer %d must be positive, got %d", ErrInvalidTopology, i, h)
		}
	}
	if _, err := GetActivation(t.activationName()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}
	return nil
}

// Widths returns the layer widths in order: inputs, hidden..., outputs.
func (t Topology) Widths() []int {
	widths := make([]int, 0, len(t.Hidden)+2)
	widths = append(widths, t.Inputs)
	widths = append(widths, t.Hidden...)
	return append(widths, t.Outputs)
}

// String renders the topology as e.g. "5-4-2/sigmoid".
func (t Topology) String() string {
	parts := make([]string, 0, len(t.Hidden)+2)
	for _, w := range t.Widths() {
		parts = append(parts, fmt.Sprint(w))
	}
	return strings.Join(parts, "-") + "/" + t.activationName()
}

// Equal reports whether both topologies describe the same layer widths and activation.
func (t Topology) Equal(other Topology) bool {
	if t.Inputs != other.Inputs || t.Outputs != other.Outputs || len(t.Hidden) != len(other.Hidden) {
		return false
	}
	for i := range t.Hidden {
		if t.Hidden[i] != other.Hidden[i] {
			return false
		}
	}
	return t.activationName() == other.activationName()
}

func (t Topology) activationName() string {
	if t.Activation == "" {
		return DefaultActivation
	}
	return t.Activation
}

func (t Topology) clone() Topology {
	c := t
	c.Hidden = append([]int(nil), t.Hidden...)
	c.Activation = t.activationName()
	return c
}

// Layer is one fully-connected layer. Weights has one row per input and one
// column per output; Biases has one entry per output.
type Layer struct {
	Weights *mat.Dense
	Biases  *mat.VecDense
}

// In returns the input width of the layer.
func (l *Layer) In() int {
	r, _ := l.Weights.Dims()
	return r
}

// Out returns the output width of the layer.
func (l *Layer) Out() int {
	_, c := l.Weights.Dims()
	return c
}

// Network is a feed-forward network with a fixed topology. Evaluate never
// modifies it; weights only change on copies made by the genetic operators.
type Network struct {
	Topology   Topology
	Layers     []*Layer
	activation ActivationType
}

// New allocates a network for the topology with every weight and bias drawn
// uniformly from [-1, 1] using rng.
func New(topology Topology, rng *rand.Rand) (*Network, error) {
	if err := topology.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	topology = topology.clone()
	act, _ := GetActivation(topology.Activation)

	widths := topology.Widths()
	layers := make([]*Layer, 0, len(widths)-1)
	for i := 1; i < len(widths); i++ {
		in, out := widths[i-1], widths[i]
		weights := make([]float64, in*out)
		for j := range weights {
			weights[j] = Uniform(rng)
		}
		biases := make([]float64, out)
		for j := range biases {
			biases[j] = Uniform(rng)
		}
		layers = append(layers, &Layer{
			Weights: mat.NewDense(in, out, weights),
			Biases:  mat.NewVecDense(out, biases),
		})
	}
	return &Network{Topology: topology, Layers: layers, activation: act}, nil
}

// Uniform draws from the initialisation distribution U[-1, 1].
func Uniform(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}

// Evaluate runs input through every layer (input·W + b), applying the
// activation to all layers but the last. The output layer is returned raw.
func (n *Network) Evaluate(input []float64) ([]float64, error) {
	if len(input) != n.Topology.Inputs {
		return nil, fmt.Errorf("%w: got %d inputs, network expects %d", ErrDimensionMismatch, len(input), n.Topology.Inputs)
	}

	// Copy the input so the caller's slice is never aliased by gonum.
	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	last := len(n.Layers) - 1
	for i, l := range n.Layers {
		out := mat.NewVecDense(l.Out(), nil)
		out.MulVec(l.Weights.T(), x)
		out.AddVec(out, l.Biases)
		if i != last {
			for j := 0; j < out.Len(); j++ {
				out.SetVec(j, n.activation(out.AtVec(j)))
			}
		}
		x = out
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// Clone returns a deep copy that shares no storage with n.
func (n *Network) Clone() *Network {
	layers := make([]*Layer, len(n.Layers))
	for i, l := range n.Layers {
		layers[i] = &Layer{
			Weights: mat.DenseCopyOf(l.Weights),
			Biases:  mat.VecDenseCopyOf(l.Biases),
		}
	}
	return &Network{Topology: n.Topology.clone(), Layers: layers, activation: n.activation}
}

// SameTopology reports whether both networks have identical layer shapes and activation.
func (n *Network) SameTopology(other *Network) bool {
	if other == nil || len(n.Layers) != len(other.Layers) {
		return false
	}
	if n.Topology.activationName() != other.Topology.activationName() {
		return false
	}
	for i, l := range n.Layers {
		if l.In() != other.Layers[i].In() || l.Out() != other.Layers[i].Out() {
			return false
		}
	}
	return true
}

// Equal reports whether other has the same topology and bit-identical parameters.
func (n *Network) Equal(other *Network) bool {
	if !n.SameTopology(other) {
		return false
	}
	for i, l := range n.Layers {
		if !mat.Equal(l.Weights, other.Layers[i].Weights) || !mat.Equal(l.Biases, other.Layers[i].Biases) {
			return false
		}
	}
	return true
}

// Genes returns the parameter vectors of the network in a fixed order: for each
// layer its row-major weights followed by its biases. The slices alias the
// network's storage, so only the owner of a freshly cloned network may write to them.
func (n *Network) Genes() [][]float64 {
	genes := make([][]float64, 0, 2*len(n.Layers))
	for _, l := range n.Layers {
		genes = append(genes, l.Weights.RawMatrix().Data, l.Biases.RawVector().Data)
	}
	return genes
}

// ParamCount returns the total number of weights and biases.
func (n *Network) ParamCount() int {
	count := 0
	for _, l := range n.Layers {
		count += l.In()*l.Out() + l.Out()
	}
	return count
}
