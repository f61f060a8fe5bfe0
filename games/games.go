// Package games provides the simulated worlds agents are trained against.
// Each game implements evo.Environment with a fixed time step and draws all of
// its randomness from the rng handed to Reset.
package games

import (
	"context"
	"fmt"
	"strings"

	"github.com/baldhumanity/arcade-neuroevo/evo"
	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// Game names accepted by New.
const (
	NamePong   = "pong"
	NameFlappy = "flappy"
)

// New returns a factory for the environment named in cfg. Reward shaping
// parameters are copied into every instance the factory creates.
func New(cfg evo.EnvironmentConfig) (evo.EnvironmentFactory, error) {
	switch normalizeName(cfg.Name) {
	case NamePong:
		return func() evo.Environment { return NewPong(cfg) }, nil
	case NameFlappy:
		return func() evo.Environment { return NewFlappy(cfg) }, nil
	default:
		return nil, fmt.Errorf("unknown environment '%s', must be '%s' or '%s'", cfg.Name, NamePong, NameFlappy)
	}
}

// Dimensions returns the observation and action widths of a game, which the
// network topology must match.
func Dimensions(name string) (inputs, outputs int, err error) {
	switch normalizeName(name) {
	case NamePong:
		return PongInputs, PongOutputs, nil
	case NameFlappy:
		return FlappyInputs, FlappyOutputs, nil
	default:
		return 0, 0, fmt.Errorf("unknown environment '%s'", name)
	}
}

// CheckTopology reports an error when the configured network cannot play the game.
func CheckTopology(cfg *evo.Config) error {
	inputs, outputs, err := Dimensions(cfg.Environment.Name)
	if err != nil {
		return err
	}
	if cfg.Network.NumInputs != inputs || cfg.Network.NumOutputs != outputs {
		return fmt.Errorf("%s needs a network with %d inputs and %d outputs, config has %d and %d",
			normalizeName(cfg.Environment.Name), inputs, outputs, cfg.Network.NumInputs, cfg.Network.NumOutputs)
	}
	return nil
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "flappy_bird" || name == "flappybird" {
		return NameFlappy
	}
	return name
}

// Replay plays trials of a single trained network, one per seed, and returns
// the result of each. Trials are capped at maxTicks (0 = unlimited).
func Replay(ctx context.Context, cfg evo.EnvironmentConfig, net *nn.Network, seeds []int64, maxTicks int) ([]evo.TrialResult, error) {
	factory, err := New(cfg)
	if err != nil {
		return nil, err
	}
	opts := evo.TrialOptions{Sharing: evo.SharingIndependent, MaxTicks: maxTicks, Retries: 3}
	results := make([]evo.TrialResult, 0, len(seeds))
	for _, seed := range seeds {
		res, err := evo.RunTrial(ctx, factory, []*nn.Network{net}, seed, opts)
		if err != nil {
			return nil, fmt.Errorf("replay with seed %d: %w", seed, err)
		}
		results = append(results, res)
	}
	return results, nil
}
