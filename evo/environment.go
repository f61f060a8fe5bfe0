package evo

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrDegeneratePhysics is returned by an Environment whose simulation reached a
// state it cannot advance from, e.g. a ball with no horizontal velocity. The
// trial is redone with fresh initial conditions.
var ErrDegeneratePhysics = errors.New("degenerate physics")

// Environment is one trial's world. Agents are addressed by index in [0, agents).
//
// Every tick the trial runner calls Observe and ApplyAction for each agent that
// is still alive, then Advance once, then Step for each agent that is still alive.
// Implementations use a fixed time step and draw all randomness from the rng
// handed to Reset, so a trial is reproducible from its seed.
type Environment interface {
	// Reset starts a new trial for the given number of agents.
	Reset(rng *rand.Rand, agents int) error
	// Observe returns the agent's feature vector; its length must equal the
	// network input size.
	Observe(agent int) []float64
	// ApplyAction maps raw network outputs to the agent's discrete action.
	ApplyAction(agent int, output []float64)
	// Advance moves world-level state (ball, pipes) forward one tick.
	Advance() error
	// Step advances the agent by one tick and reports whether it is finished
	// along with the reward earned this tick.
	Step(agent int) (terminated bool, reward float64)
}

// EnvironmentFactory creates a fresh Environment. Every trial, and in
// independent mode every agent within a trial, gets its own instance.
type EnvironmentFactory func() Environment

// Sharing selects how agents are placed into Environment instances.
type Sharing string

const (
	// SharingShared steps all agents in lockstep against one instance (one ball, N paddles).
	SharingShared Sharing = "shared"
	// SharingIndependent gives every agent its own instance per trial.
	SharingIndependent Sharing = "independent"
)

// Validate requires an explicit choice; there is no default sharing mode.
func (s Sharing) Validate() error {
	switch s {
	case SharingShared, SharingIndependent:
		return nil
	case "":
		return fmt.Errorf("config error: sharing must be set to 'shared' or 'independent'")
	default:
		return fmt.Errorf("config error: invalid sharing '%s', must be 'shared' or 'independent'", s)
	}
}
