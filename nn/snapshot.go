package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Snapshot is a plain-data copy of a network suitable for encoding.
// Weights holds one row-major array per layer, Biases one array per layer.
type Snapshot struct {
	Topology Topology
	Weights  [][]float64
	Biases   [][]float64
}

// Snapshot copies the network's topology and parameters.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{
		Topology: n.Topology.clone(),
		Weights:  make([][]float64, len(n.Layers)),
		Biases:   make([][]float64, len(n.Layers)),
	}
	for i, l := range n.Layers {
		s.Weights[i] = append([]float64(nil), l.Weights.RawMatrix().Data...)
		s.Biases[i] = append([]float64(nil), l.Biases.RawVector().Data...)
	}
	return s
}

// FromSnapshot rebuilds a network, checking that every array matches the topology.
func FromSnapshot(s Snapshot) (*Network, error) {
	if err := s.Topology.Validate(); err != nil {
		return nil, err
	}
	topology := s.Topology.clone()
	widths := topology.Widths()
	if len(s.Weights) != len(widths)-1 || len(s.Biases) != len(widths)-1 {
		return nil, fmt.Errorf("%w: snapshot has %d weight and %d bias arrays, topology %s needs %d",
			ErrInvalidTopology, len(s.Weights), len(s.Biases), topology, len(widths)-1)
	}

	act, _ := GetActivation(topology.Activation)
	layers := make([]*Layer, len(widths)-1)
	for i := range layers {
		in, out := widths[i], widths[i+1]
		if len(s.Weights[i]) != in*out {
			return nil, fmt.Errorf("%w: layer %d weights have %d entries, want %d", ErrInvalidTopology, i, len(s.Weights[i]), in*out)
		}
		if len(s.Biases[i]) != out {
			return nil, fmt.Errorf("%w: layer %d biases have %d entries, want %d", ErrInvalidTopology, i, len(s.Biases[i]), out)
		}
		layers[i] = &Layer{
			Weights: mat.NewDense(in, out, append([]float64(nil), s.Weights[i]...)),
			Biases:  mat.NewVecDense(out, append([]float64(nil), s.Biases[i]...)),
		}
	}
	return &Network{Topology: topology, Layers: layers, activation: act}, nil
}
