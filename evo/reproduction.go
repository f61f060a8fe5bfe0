package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// Parent selection schemes.
const (
	SelectionTournament = "tournament"
	SelectionRoulette   = "roulette"
)

// maxParentResamples bounds how often a pair with identical parents is redrawn.
// When every draw must yield the same agent (tournament_size equal to the
// population size) the pair is accepted and the child is a copy of that agent.
const maxParentResamples = 32

// Agent is one population member: a network and its fitness for the current generation.
type Agent struct {
	Key     int
	Network *nn.Network
	Fitness float64
}

// Reproduction creates new networks, either from scratch or by breeding ranked agents.
type Reproduction struct {
	Config        *Config
	NextGenomeKey int           // State for the next agent key
	Ancestors     map[int][]int // Map agent key -> parent keys (for tracking lineage)

	rng *rand.Rand
}

// NewReproduction creates a new reproduction manager drawing from rng.
func NewReproduction(config *Config, rng *rand.Rand) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1, // Start agent keys at 1
		Ancestors:     make(map[int][]int),
		rng:           rng,
	}
}

// getNextKey gets the next available agent key and increments the internal counter.
func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// newRandomAgent creates an agent with a freshly initialised network.
func (r *Reproduction) newRandomAgent() (*Agent, error) {
	net, err := nn.New(r.Config.Network.Topology(), r.rng)
	if err != nil {
		return nil, err
	}
	return &Agent{Key: r.getNextKey(), Network: net}, nil
}

// CreateNewPopulation creates an initial population of untrained networks.
func (r *Reproduction) CreateNewPopulation(popSize int) ([]*Agent, error) {
	agents := make([]*Agent, 0, popSize)
	for i := 0; i < popSize; i++ {
		a, err := r.newRandomAgent()
		if err != nil {
			return nil, fmt.Errorf("failed to create network %d: %w", i, err)
		}
		r.Ancestors[a.Key] = []int{} // No parents for initial population
		agents = append(agents, a)
	}
	return agents, nil
}

// RankAgents returns the agents sorted by fitness, best first. Ties keep
// population order so ranking is deterministic.
func RankAgents(agents []*Agent) []*Agent {
	ranked := append([]*Agent(nil), agents...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return ranked
}

// Reproduce builds the next generation from agents ranked best first:
// the top select_num are carried over unmodified, the middle is bred from
// selected parents, and random_per_gen fresh networks fill the tail.
func (r *Reproduction) Reproduce(ranked []*Agent) ([]*Agent, error) {
	tc := r.Config.Trainer
	popSize := tc.PopulationSize
	if len(ranked) == 0 {
		return nil, fmt.Errorf("cannot reproduce from an empty population")
	}

	next := make([]*Agent, 0, popSize)
	newAncestors := make(map[int][]int, popSize)

	// Transfer elites. Networks are never modified in place, so sharing them is safe.
	for i := 0; i < tc.SelectNum && i < len(ranked); i++ {
		elite := ranked[i]
		next = append(next, &Agent{Key: elite.Key, Network: elite.Network})
		newAncestors[elite.Key] = []int{elite.Key} // Mark as its own ancestor for tracking
	}

	breedUntil := popSize - tc.RandomPerGen
	for len(next) < breedUntil {
		p1, p2 := r.pickParents(ranked)
		parent1, parent2 := ranked[p1], ranked[p2]

		child, err := Crossover(r.rng, parent1.Network, parent2.Network)
		if err != nil {
			return nil, fmt.Errorf("failed to breed agents %d and %d: %w", parent1.Key, parent2.Key, err)
		}
		if r.Config.Mutation.MutateOffspringEnabled() {
			child = Mutate(r.rng, child, r.Config.Mutation)
		}

		key := r.getNextKey()
		next = append(next, &Agent{Key: key, Network: child})
		newAncestors[key] = []int{parent1.Key, parent2.Key}
	}

	// Diversity injection against stagnation.
	for len(next) < popSize {
		a, err := r.newRandomAgent()
		if err != nil {
			return nil, err
		}
		next = append(next, a)
		newAncestors[a.Key] = []int{}
	}

	r.Ancestors = newAncestors // Update ancestor tracking for the new generation
	return next, nil
}

// pickParents selects two parents, redrawing while both resolve to the same agent.
func (r *Reproduction) pickParents(ranked []*Agent) (int, int) {
	var p1, p2 int
	for attempt := 0; attempt <= maxParentResamples; attempt++ {
		p1, p2 = r.selectParent(ranked), r.selectParent(ranked)
		if p1 != p2 {
			break
		}
	}
	return p1, p2
}

func (r *Reproduction) selectParent(ranked []*Agent) int {
	if r.Config.Trainer.Selection == SelectionRoulette {
		return RouletteSelect(r.rng, ranked)
	}
	return TournamentSelect(r.rng, ranked, r.Config.Trainer.TournamentSize)
}

// TournamentSelect samples size distinct agents uniformly and returns the index
// of the fittest. ranked must be sorted best first; ties go to the better rank.
func TournamentSelect(rng *rand.Rand, ranked []*Agent, size int) int {
	if size > len(ranked) {
		size = len(ranked)
	}
	if size < 1 {
		size = 1
	}
	best := -1
	for _, idx := range rng.Perm(len(ranked))[:size] {
		if best == -1 || ranked[idx].Fitness > ranked[best].Fitness ||
			(ranked[idx].Fitness == ranked[best].Fitness && idx < best) {
			best = idx
		}
	}
	return best
}

// RouletteSelect picks an index with probability proportional to fitness
// shifted so the worst agent has weight zero. With no spread it picks uniformly.
func RouletteSelect(rng *rand.Rand, ranked []*Agent) int {
	fitnesses := make([]float64, len(ranked))
	for i, a := range ranked {
		fitnesses[i] = a.Fitness
	}
	low := MinFloat(fitnesses)
	total := 0.0
	for i := range fitnesses {
		fitnesses[i] -= low
		total += fitnesses[i]
	}
	if total <= 0 {
		return rng.Intn(len(ranked))
	}

	spin := rng.Float64() * total
	for i, w := range fitnesses {
		spin -= w
		if spin < 0 {
			return i
		}
	}
	return len(ranked) - 1
}
