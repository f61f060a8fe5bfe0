package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// ErrTopologyMismatch is returned when crossing networks of different shapes.
// It indicates a configuration bug, so the trainer aborts on it.
var ErrTopologyMismatch = errors.New("topology mismatch")

// Mutate returns a mutated copy of net; net itself is never modified.
// Each weight and bias mutates independently with probability MutationRate.
// A mutating gene is replaced by a fresh U[-1, 1] draw with probability
// ReplacementRate, otherwise it is perturbed by N(0, Std).
func Mutate(rng *rand.Rand, net *nn.Network, config MutationConfig) *nn.Network {
	child := net.Clone()
	for _, genes := range child.Genes() {
		for i := range genes {
			genes[i] = mutateValue(rng, genes[i], config)
		}
	}
	return child
}

// mutateValue applies the per-gene mutation rule to a single value.
func mutateValue(rng *rand.Rand, value float64, config MutationConfig) float64 {
	if rng.Float64() >= config.MutationRate {
		return value
	}
	if rng.Float64() < config.ReplacementRate {
		return nn.Uniform(rng)
	}
	return value + rng.NormFloat64()*config.Std
}

// Crossover builds a child by uniform crossover: every weight and bias is taken
// from a or b with equal probability. Both parents must share a topology.
func Crossover(rng *rand.Rand, a, b *nn.Network) (*nn.Network, error) {
	if !a.SameTopology(b) {
		return nil, fmt.Errorf("%w: cannot cross %s with %s", ErrTopologyMismatch, a.Topology, b.Topology)
	}

	child := a.Clone()
	donor := b.Genes()
	for i, genes := range child.Genes() {
		for j := range genes {
			if rng.Float64() < 0.5 {
				genes[j] = donor[i][j]
			}
		}
	}
	return child, nil
}
