package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedAgents(t *testing.T, fitnesses ...float64) []*Agent {
	t.Helper()
	nets := testNetworks(t, len(fitnesses), oneToOne, 21)
	agents := make([]*Agent, len(fitnesses))
	for i, f := range fitnesses {
		agents[i] = &Agent{Key: i + 1, Network: nets[i], Fitness: f}
	}
	return RankAgents(agents)
}

func TestRankAgentsIsStable(t *testing.T) {
	agents := []*Agent{{Key: 1, Fitness: 2}, {Key: 2, Fitness: 5}, {Key: 3, Fitness: 2}, {Key: 4, Fitness: 5}}
	ranked := RankAgents(agents)

	keys := make([]int, len(ranked))
	for i, a := range ranked {
		keys[i] = a.Key
	}
	assert.Equal(t, []int{2, 4, 1, 3}, keys)
	assert.Equal(t, 1, agents[0].Key, "input order is untouched")
}

func TestTournamentOfWholePopulationPicksBest(t *testing.T) {
	ranked := rankedAgents(t, 4, 3, 2, 1)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		assert.Equal(t, 0, TournamentSelect(rng, ranked, len(ranked)))
	}

	tied := rankedAgents(t, 1, 1, 1)
	assert.Equal(t, 0, TournamentSelect(rng, tied, len(tied)))
}

func TestTournamentOfOneIsUniform(t *testing.T) {
	ranked := rankedAgents(t, 4, 3, 2, 1)
	rng := rand.New(rand.NewSource(2))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[TournamentSelect(rng, ranked, 1)] = true
	}
	assert.Len(t, seen, len(ranked))
}

func TestRouletteFavoursFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	dominant := rankedAgents(t, 10, 0, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, 0, RouletteSelect(rng, dominant))
	}

	flat := rankedAgents(t, 2, 2, 2)
	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		idx := RouletteSelect(rng, flat)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(flat))
		seen[idx] = true
	}
	assert.Len(t, seen, len(flat))
}

func TestReproduceLayout(t *testing.T) {
	cfg := testConfig()
	cfg.Trainer.PopulationSize = 6
	cfg.Trainer.SelectNum = 2
	cfg.Trainer.RandomPerGen = 1
	require.NoError(t, cfg.Validate())

	ranked := rankedAgents(t, 6, 5, 4, 3, 2, 1)
	r := NewReproduction(cfg, rand.New(rand.NewSource(4)))
	r.NextGenomeKey = 100

	next, err := r.Reproduce(ranked)
	require.NoError(t, err)
	require.Len(t, next, 6)

	for i := 0; i < 2; i++ {
		assert.Equal(t, ranked[i].Key, next[i].Key)
		assert.Same(t, ranked[i].Network, next[i].Network, "elites are carried unmodified")
	}
	for _, child := range next[2:5] {
		assert.GreaterOrEqual(t, child.Key, 100)
		assert.Len(t, r.Ancestors[child.Key], 2)
	}
	assert.Empty(t, r.Ancestors[next[5].Key], "random newcomers have no parents")
	assert.Equal(t, 104, r.NextGenomeKey)
}

func TestReproduceWithWholePopulationTournament(t *testing.T) {
	cfg := testConfig()
	cfg.Trainer.TournamentSize = cfg.Trainer.PopulationSize
	cfg.Mutation.MutateOffspring = boolPtr(false)
	require.NoError(t, cfg.Validate())

	ranked := rankedAgents(t, 4, 3, 2, 1)
	r := NewReproduction(cfg, rand.New(rand.NewSource(5)))
	next, err := r.Reproduce(ranked)
	require.NoError(t, err)
	require.Len(t, next, 4)

	// Both parents are always the best agent, so every child is a copy of it.
	for _, child := range next[1:] {
		assert.True(t, child.Network.Equal(ranked[0].Network))
		assert.NotSame(t, ranked[0].Network, child.Network)
	}
}

func TestReproduceWithRoulette(t *testing.T) {
	cfg := testConfig()
	cfg.Trainer.Selection = SelectionRoulette
	require.NoError(t, cfg.Validate())

	ranked := rankedAgents(t, 3, 2, 1, 0)
	next, err := NewReproduction(cfg, rand.New(rand.NewSource(6))).Reproduce(ranked)
	require.NoError(t, err)
	assert.Len(t, next, 4)
}

func TestCreateNewPopulation(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	r := NewReproduction(cfg, rand.New(rand.NewSource(7)))

	agents, err := r.CreateNewPopulation(5)
	require.NoError(t, err)
	require.Len(t, agents, 5)
	for i, a := range agents {
		assert.Equal(t, i+1, a.Key)
		assert.True(t, a.Network.Topology.Equal(cfg.Network.Topology()))
	}
}
