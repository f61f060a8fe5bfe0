package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// stubEnv is a scripted environment: every agent lives for steps ticks and
// earns reward per tick. With shaped set, the reward also depends on the
// network output and on noise drawn from the trial rng.
type stubEnv struct {
	steps      int // 0 = never terminates
	reward     float64
	inputs     int
	shaped     bool
	resetErr   error
	degenerate func() bool

	noise  []float64
	output []float64
	ticks  []int
}

func (s *stubEnv) Reset(rng *rand.Rand, agents int) error {
	if s.resetErr != nil {
		return s.resetErr
	}
	s.noise = make([]float64, agents)
	for i := range s.noise {
		s.noise[i] = rng.Float64()
	}
	s.output = make([]float64, agents)
	s.ticks = make([]int, agents)
	return nil
}

func (s *stubEnv) Observe(agent int) []float64 {
	obs := make([]float64, s.inputs)
	for i := range obs {
		obs[i] = s.noise[agent] + float64(s.ticks[agent])
	}
	return obs
}

func (s *stubEnv) ApplyAction(agent int, output []float64) {
	s.output[agent] = output[0]
}

func (s *stubEnv) Advance() error {
	if s.degenerate != nil && s.degenerate() {
		return fmt.Errorf("%w: stalled", ErrDegeneratePhysics)
	}
	return nil
}

func (s *stubEnv) Step(agent int) (bool, float64) {
	s.ticks[agent]++
	reward := s.reward
	if s.shaped {
		reward += math.Tanh(s.output[agent]) * s.noise[agent]
	}
	return s.steps > 0 && s.ticks[agent] >= s.steps, reward
}

var _ Environment = (*stubEnv)(nil)

// stubFactory returns a factory handing out independent copies of proto.
func stubFactory(proto stubEnv) EnvironmentFactory {
	return func() Environment {
		env := proto
		return &env
	}
}

// failFirst returns a degenerate hook that fails the first n Advance calls
// across every instance sharing it.
func failFirst(n int32) func() bool {
	var calls atomic.Int32
	return func() bool {
		return calls.Add(1) <= n
	}
}

func testConfig() *Config {
	return &Config{
		Trainer: TrainerConfig{
			PopulationSize:      4,
			Generations:         2,
			TrialsPerGeneration: 1,
			SelectNum:           1,
			Sharing:             SharingShared,
			Seed:                7,
		},
		Network:  NetworkConfig{NumInputs: 1, NumOutputs: 1},
		Mutation: MutationConfig{MutationRate: 0.2, ReplacementRate: 0.1, Std: 0.5},
	}
}

func testNetworks(t *testing.T, n int, topology nn.Topology, seed int64) []*nn.Network {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	nets := make([]*nn.Network, n)
	for i := range nets {
		net, err := nn.New(topology, rng)
		require.NoError(t, err)
		nets[i] = net
	}
	return nets
}
