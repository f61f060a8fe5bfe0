package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// TrialOptions controls how a single trial is played.
type TrialOptions struct {
	Sharing  Sharing
	MaxTicks int // 0 = run until every agent terminates
	Retries  int // redo attempts after ErrDegeneratePhysics
}

// TrialResult holds the outcome of one trial. Rewards is indexed by agent.
type TrialResult struct {
	Rewards  []float64
	Ticks    int
	Attempts int
	Skipped  bool     // every attempt hit degenerate physics; Rewards are all zero
	Warnings []string // agent-level problems that did not stop the trial
}

// agentSlot locates an agent inside the environment instance that simulates it.
type agentSlot struct {
	world int
	local int
}

// RunTrial plays one trial of every network from the given seed. A trial that
// fails with ErrDegeneratePhysics is redone with fresh initial conditions up to
// opts.Retries times and then skipped. Any other error is returned.
func RunTrial(ctx context.Context, factory EnvironmentFactory, nets []*nn.Network, seed int64, opts TrialOptions) (TrialResult, error) {
	seeds := rand.New(rand.NewSource(seed))
	var lastErr error
	for attempt := 1; attempt <= opts.Retries+1; attempt++ {
		res, err := playTrial(ctx, factory, nets, rand.New(rand.NewSource(seeds.Int63())), opts)
		res.Attempts = attempt
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrDegeneratePhysics) {
			return res, err
		}
		lastErr = err
	}

	return TrialResult{
		Rewards:  make([]float64, len(nets)),
		Attempts: opts.Retries + 1,
		Skipped:  true,
		Warnings: []string{fmt.Sprintf("trial skipped after %d attempts: %v", opts.Retries+1, lastErr)},
	}, nil
}

// playTrial runs one attempt: agents are stepped in lockstep until all of them
// terminate or the tick limit is reached.
func playTrial(ctx context.Context, factory EnvironmentFactory, nets []*nn.Network, rng *rand.Rand, opts TrialOptions) (TrialResult, error) {
	n := len(nets)
	res := TrialResult{Rewards: make([]float64, n)}
	if n == 0 {
		return res, nil
	}

	var worlds []Environment
	slots := make([]agentSlot, n)
	switch opts.Sharing {
	case SharingShared:
		env := factory()
		if err := env.Reset(rng, n); err != nil {
			return res, fmt.Errorf("failed to reset environment: %w", err)
		}
		worlds = append(worlds, env)
		for i := range slots {
			slots[i] = agentSlot{world: 0, local: i}
		}
	case SharingIndependent:
		for i := range slots {
			env := factory()
			if err := env.Reset(rand.New(rand.NewSource(rng.Int63())), 1); err != nil {
				return res, fmt.Errorf("failed to reset environment for agent %d: %w", i, err)
			}
			worlds = append(worlds, env)
			slots[i] = agentSlot{world: i, local: 0}
		}
	default:
		return res, opts.Sharing.Validate()
	}

	alive := make([]bool, n)
	worldAlive := make([]int, len(worlds))
	for i, s := range slots {
		alive[i] = true
		worldAlive[s.world]++
	}
	remaining := n
	kill := func(i int) {
		alive[i] = false
		worldAlive[slots[i].world]--
		remaining--
	}

	for remaining > 0 {
		if opts.MaxTicks > 0 && res.Ticks >= opts.MaxTicks {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		for i, s := range slots {
			if !alive[i] {
				continue
			}
			env := worlds[s.world]
			out, err := nets[i].Evaluate(env.Observe(s.local))
			if err != nil {
				// A bad observation only removes this agent from the trial.
				res.Warnings = append(res.Warnings, fmt.Sprintf("agent %d removed at tick %d: %v", i, res.Ticks, err))
				kill(i)
				continue
			}
			env.ApplyAction(s.local, out)
		}

		for w, env := range worlds {
			if worldAlive[w] == 0 {
				continue
			}
			if err := env.Advance(); err != nil {
				return res, err
			}
		}

		for i, s := range slots {
			if !alive[i] {
				continue
			}
			done, reward := worlds[s.world].Step(s.local)
			res.Rewards[i] += reward
			if done {
				kill(i)
			}
		}
		res.Ticks++
	}
	return res, nil
}

// runTrials plays every seeded trial on a pool of workers. Results come back in
// seed order regardless of which worker finished first.
func runTrials(ctx context.Context, factory EnvironmentFactory, nets []*nn.Network, seeds []int64, opts TrialOptions, workers int) ([]TrialResult, error) {
	type job struct {
		idx  int
		seed int64
	}
	type result struct {
		idx int
		res TrialResult
		err error
	}

	jobs := make(chan job)
	results := make(chan result, len(seeds))

	workerCount := workers
	if workerCount > len(seeds) {
		workerCount = len(seeds)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				res, err := RunTrial(ctx, factory, nets, j.seed, opts)
				results <- result{idx: j.idx, res: res, err: err}
			}
		}()
	}

	for i, seed := range seeds {
		jobs <- job{idx: i, seed: seed}
	}
	close(jobs)

	wg.Wait()
	close(results)

	trials := make([]TrialResult, len(seeds))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("trial %d: %w", r.idx, r.err)
			}
			continue
		}
		trials[r.idx] = r.res
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return trials, nil
}
