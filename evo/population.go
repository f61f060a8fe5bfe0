package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/baldhumanity/arcade-neuroevo/nn"
	"github.com/baldhumanity/arcade-neuroevo/storage"
)

// Trainer holds the state of an evolutionary run: the current population, the
// champion found so far and the machinery used to breed the next generation.
// All of its state is owned by the goroutine calling RunGeneration.
type Trainer struct {
	Config       *Config
	Population   []*Agent // Current generation, insertion order = agent index
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Reporters    *ReporterSet
	Store        storage.Store // Optional champion store, nil disables persistence
	Generation   int
	Champion     *Agent // Best agent found so far, deep copied
	History      []GenerationRecord

	factory   EnvironmentFactory
	rng       *rand.Rand
	aggregate func([]float64) float64
}

// NewTrainer creates a Trainer and initialises the first generation of
// untrained networks. A zero seed draws one from the clock.
func NewTrainer(config *Config, factory EnvironmentFactory) (*Trainer, error) {
	if factory == nil {
		return nil, errors.New("environment factory is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.Trainer.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	reproduction := NewReproduction(config, rng)
	initialPopulation, err := reproduction.CreateNewPopulation(config.Trainer.PopulationSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}

	return &Trainer{
		Config:       config,
		Population:   initialPopulation,
		Reproduction: reproduction,
		Stagnation:   NewStagnation(config.Trainer.MaxStagnation),
		Reporters:    &ReporterSet{},
		factory:      factory,
		rng:          rng,
		aggregate:    StatFunctions[config.Trainer.FitnessAggregation],
	}, nil
}

// RunGeneration executes a single generation: evaluate every agent, select
// elites, breed the replacement population and checkpoint the champion.
func (t *Trainer) RunGeneration(ctx context.Context) (*GenerationRecord, error) {
	t.Generation++
	genStartTime := time.Now()
	t.Reporters.StartGeneration(t.Generation)

	// 1. Evaluate fitness
	if err := t.evaluate(ctx); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", t.Generation, err)
	}

	// 2. Rank and track the champion
	ranked := RankAgents(t.Population)
	record := t.summarize(ranked)
	if t.Champion == nil || ranked[0].Fitness > t.Champion.Fitness {
		best := ranked[0]
		t.Champion = &Agent{Key: best.Key, Network: best.Network.Clone(), Fitness: best.Fitness}
		record.NewChampion = true
	}
	t.Stagnation.Update(t.Champion.Fitness)
	record.Stagnant = t.Stagnation.GenerationsSinceImprovement()
	t.Reporters.PostEvaluate(record)
	if record.NewChampion {
		t.Reporters.NewChampion(t.Generation, t.Champion)
	}

	// 3. Select and breed
	next, err := t.Reproduction.Reproduce(ranked)
	if err != nil {
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", t.Generation, err)
	}

	t.Population = next
	record.Duration = time.Since(genStartTime)
	t.History = append(t.History, record)

	// 4. Checkpoint; failures are reported and never abort the generation
	t.checkpoint(ctx, record, ranked[0])
	t.Reporters.EndGeneration(record)
	return &record, nil
}

// Run executes generations until the configured count is reached or an early
// stop condition fires, and returns the champion network.
func (t *Trainer) Run(ctx context.Context) (*nn.Network, error) {
	for t.Generation < t.Config.Trainer.Generations {
		if _, err := t.RunGeneration(ctx); err != nil {
			return nil, err
		}
		if t.thresholdReached() {
			break
		}
		if t.Stagnation.Stagnant() {
			t.Reporters.Warning(fmt.Sprintf("stopping: no improvement for %d generations", t.Stagnation.GenerationsSinceImprovement()))
			break
		}
	}
	if t.Champion == nil {
		return nil, errors.New("no generation was evaluated")
	}
	return t.Champion.Network.Clone(), nil
}

func (t *Trainer) thresholdReached() bool {
	tc := t.Config.Trainer
	if tc.NoFitnessTermination == nil || *tc.NoFitnessTermination || t.Champion == nil {
		return false
	}
	return t.Champion.Fitness >= tc.FitnessThreshold
}

// evaluate resets every agent's fitness, runs all trials of the generation and
// reduces the per-trial rewards into each agent's fitness after the barrier.
func (t *Trainer) evaluate(ctx context.Context) error {
	nets := make([]*nn.Network, len(t.Population))
	for i, a := range t.Population {
		a.Fitness = 0
		nets[i] = a.Network
	}

	// Seeds are drawn up front so results do not depend on worker scheduling.
	seeds := make([]int64, t.Config.Trainer.TrialsPerGeneration)
	for i := range seeds {
		seeds[i] = t.rng.Int63()
	}

	opts := TrialOptions{
		Sharing:  t.Config.Trainer.Sharing,
		MaxTicks: t.Config.Trainer.MaxTicks,
		Retries:  t.Config.Trainer.TrialRetries,
	}
	trials, err := runTrials(ctx, t.factory, nets, seeds, opts, t.Config.Trainer.Workers)
	if err != nil {
		return err
	}

	perAgent := make([][]float64, len(t.Population))
	for i, trial := range trials {
		for _, w := range trial.Warnings {
			t.Reporters.Warning(fmt.Sprintf("trial %d: %s", i, w))
		}
		if trial.Skipped {
			continue
		}
		for agent, reward := range trial.Rewards {
			perAgent[agent] = append(perAgent[agent], reward)
		}
	}
	for i, a := range t.Population {
		if len(perAgent[i]) == 0 {
			continue
		}
		a.Fitness = t.aggregate(perAgent[i])
	}
	return nil
}

func (t *Trainer) summarize(ranked []*Agent) GenerationRecord {
	fitnesses := make([]float64, len(t.Population))
	for i, a := range t.Population {
		fitnesses[i] = a.Fitness
	}
	return GenerationRecord{
		Generation: t.Generation,
		Fitnesses:  fitnesses,
		Best:       ranked[0].Fitness,
		BestKey:    ranked[0].Key,
		Mean:       Mean(fitnesses),
		Stdev:      Stdev(fitnesses),
		Worst:      ranked[len(ranked)-1].Fitness,
	}
}

// checkpoint persists the champion when it improved, the generation best when
// configured, and the bred population when a checkpoint path is set.
func (t *Trainer) checkpoint(ctx context.Context, record GenerationRecord, generationBest *Agent) {
	if record.NewChampion {
		t.saveNetwork(ctx, storage.KindChampion, t.Champion)
	}
	if t.Config.Checkpoint.SaveLastGeneration {
		t.saveNetwork(ctx, storage.KindLast, generationBest)
	}
	if path := t.Config.Checkpoint.PopulationPath; path != "" {
		if err := t.SaveCheckpoint(path); err != nil {
			t.Reporters.Warning(fmt.Sprintf("failed to save population checkpoint: %v", err))
		}
	}
}

func (t *Trainer) saveNetwork(ctx context.Context, kind string, agent *Agent) {
	if t.Store == nil {
		return
	}
	record := storage.Record{
		RunID:      t.Config.Checkpoint.RunID,
		Kind:       kind,
		Generation: t.Generation,
		Fitness:    agent.Fitness,
		Network:    agent.Network.Snapshot(),
		SavedAt:    time.Now(),
	}
	if err := t.Store.SaveNetwork(ctx, record); err != nil {
		t.Reporters.Warning(fmt.Sprintf("failed to save %s network for generation %d: %v", kind, t.Generation, err))
		return
	}
	t.Reporters.CheckpointSaved(kind, t.Generation, agent.Fitness)
}
