package games

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/arcade-neuroevo/evo"
	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// playPong runs a single-agent rally with a fixed action until it ends.
func playPong(t *testing.T, p *Pong, seed int64, action []float64) (rewards []float64) {
	t.Helper()
	require.NoError(t, p.Reset(rand.New(rand.NewSource(seed)), 1))
	for tick := 0; tick < 5000; tick++ {
		obs := p.Observe(0)
		require.Len(t, obs, PongInputs)
		p.ApplyAction(0, action)
		require.NoError(t, p.Advance())
		done, reward := p.Step(0)
		rewards = append(rewards, reward)
		if done {
			return rewards
		}
	}
	t.Fatal("rally never ended")
	return nil
}

func TestPongServeIsReturnable(t *testing.T) {
	p := NewPong(evo.EnvironmentConfig{})
	for seed := int64(0); seed < 50; seed++ {
		require.NoError(t, p.Reset(rand.New(rand.NewSource(seed)), 3))
		require.Len(t, p.paddles, 3)
		for _, y := range p.paddles {
			assert.GreaterOrEqual(t, y, 0.0)
			assert.LessOrEqual(t, y+PaddleHeight, PongHeight)
		}
		assert.Positive(t, p.velX)
	}
}

func TestPongRallyEndsWithProximityReward(t *testing.T) {
	p := NewPong(evo.EnvironmentConfig{})
	for seed := int64(0); seed < 20; seed++ {
		rewards := playPong(t, p, seed, []float64{0, 0})
		final := rewards[len(rewards)-1]
		assert.Greater(t, final, 0.0)
		assert.LessOrEqual(t, final, 1.0)
		for _, r := range rewards[:len(rewards)-1] {
			assert.Zero(t, r)
		}
	}
}

func TestPongIsDeterministic(t *testing.T) {
	p := NewPong(evo.EnvironmentConfig{DistancePenalty: 0.1})
	a := playPong(t, p, 42, []float64{1, 0})
	b := playPong(t, p, 42, []float64{1, 0})
	assert.Equal(t, a, b)
}

func TestPongStillnessPenalty(t *testing.T) {
	free := playPong(t, NewPong(evo.EnvironmentConfig{}), 3, []float64{0, 0})
	penalised := playPong(t, NewPong(evo.EnvironmentConfig{StillnessPenalty: 0.01}), 3, []float64{0, 0})
	require.Len(t, penalised, len(free))

	total := 0.0
	for _, r := range penalised {
		total += r
	}
	assert.InDelta(t, free[len(free)-1]-0.01*float64(len(free)), total, 1e-9)
}

func TestPongPaddleActions(t *testing.T) {
	p := NewPong(evo.EnvironmentConfig{})
	require.NoError(t, p.Reset(rand.New(rand.NewSource(1)), 1))
	p.paddles[0] = 100

	p.ApplyAction(0, []float64{1, 0})
	assert.Equal(t, 100-PaddleSpeed, p.paddles[0])
	p.ApplyAction(0, []float64{0, 1})
	assert.Equal(t, 100.0, p.paddles[0])
	p.ApplyAction(0, []float64{1, 1})
	assert.Equal(t, 100.0, p.paddles[0])
	assert.False(t, p.moved[0])

	p.paddles[0] = 1
	p.ApplyAction(0, []float64{1, -1})
	assert.Zero(t, p.paddles[0])
	p.paddles[0] = PongHeight - PaddleHeight
	p.ApplyAction(0, []float64{-1, 1})
	assert.Equal(t, PongHeight-PaddleHeight, p.paddles[0])
}

func TestPongDegenerateBall(t *testing.T) {
	p := NewPong(evo.EnvironmentConfig{})
	require.NoError(t, p.Reset(rand.New(rand.NewSource(1)), 1))
	p.velX = 0
	require.ErrorIs(t, p.Advance(), evo.ErrDegeneratePhysics)
}

func TestFlappyBirdFallsToTheGround(t *testing.T) {
	f := NewFlappy(evo.EnvironmentConfig{SurvivalReward: 0.5})
	require.NoError(t, f.Reset(rand.New(rand.NewSource(1)), 1))
	require.Len(t, f.pipes, 3)

	total, ticks := 0.0, 0
	for done := false; !done; ticks++ {
		require.Less(t, ticks, 200)
		require.Len(t, f.Observe(0), FlappyInputs)
		f.ApplyAction(0, []float64{-1})
		require.NoError(t, f.Advance())
		var r float64
		done, r = f.Step(0)
		total += r
	}
	assert.Equal(t, 0.5*float64(ticks), total, "no pipe reached before hitting the ground")
	assert.GreaterOrEqual(t, f.birds[0].y, FlappyHeight-BirdRadius)
}

func TestFlappyClearingAPipe(t *testing.T) {
	f := NewFlappy(evo.EnvironmentConfig{})
	require.NoError(t, f.Reset(rand.New(rand.NewSource(2)), 2))
	f.pipes[0].x = BirdX - PipeWidth - 1

	require.NoError(t, f.Advance())
	assert.Equal(t, 1, f.next)
	for agent := 0; agent < 2; agent++ {
		done, reward := f.Step(agent)
		assert.False(t, done)
		assert.Equal(t, 1.0, reward)
	}
	_, reward := f.Step(0)
	assert.Zero(t, reward, "a pipe is only rewarded once")
}

func TestFlappyPipeCollision(t *testing.T) {
	f := NewFlappy(evo.EnvironmentConfig{})
	require.NoError(t, f.Reset(rand.New(rand.NewSource(3)), 2))
	f.pipes[0] = pipe{x: BirdX - 10, gap: 300}
	f.birds[0].y = 100
	f.birds[1].y = 390

	done, _ := f.Step(0)
	assert.True(t, done, "bird inside the upper pipe")
	done, _ = f.Step(1)
	assert.False(t, done, "bird inside the gap")
}

func TestFlappyRecyclesPipes(t *testing.T) {
	f := NewFlappy(evo.EnvironmentConfig{})
	require.NoError(t, f.Reset(rand.New(rand.NewSource(4)), 1))

	for tick := 0; tick < 2000; tick++ {
		require.NoError(t, f.Advance())
		require.Len(t, f.pipes, 3)
		require.GreaterOrEqual(t, f.next, 0)
		require.Less(t, f.next, len(f.pipes))
		for _, p := range f.pipes {
			require.GreaterOrEqual(t, p.gap, float64(PipeBuffer))
			require.LessOrEqual(t, p.gap+GapSize, FlappyHeight-PipeBuffer)
		}
	}
	assert.Positive(t, f.cleared)
}

func TestRegistry(t *testing.T) {
	factory, err := New(evo.EnvironmentConfig{Name: "Pong", StillnessPenalty: 0.2})
	require.NoError(t, err)
	pong, ok := factory().(*Pong)
	require.True(t, ok)
	assert.Equal(t, 0.2, pong.StillnessPenalty)

	factory, err = New(evo.EnvironmentConfig{Name: "flappy_bird"})
	require.NoError(t, err)
	assert.IsType(t, &Flappy{}, factory())

	_, err = New(evo.EnvironmentConfig{Name: "tetris"})
	require.Error(t, err)

	in, out, err := Dimensions("pong")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2}, []int{in, out})
}

func TestCheckTopology(t *testing.T) {
	cfg := &evo.Config{
		Network:     evo.NetworkConfig{NumInputs: 1, NumOutputs: 1},
		Environment: evo.EnvironmentConfig{Name: "flappy"},
	}
	require.NoError(t, CheckTopology(cfg))

	cfg.Environment.Name = "pong"
	require.Error(t, CheckTopology(cfg))
}

func TestTrainingAgainstGames(t *testing.T) {
	for _, name := range []string{NamePong, NameFlappy} {
		t.Run(name, func(t *testing.T) {
			inputs, outputs, err := Dimensions(name)
			require.NoError(t, err)
			cfg := &evo.Config{
				Trainer: evo.TrainerConfig{
					PopulationSize:      6,
					Generations:         2,
					TrialsPerGeneration: 2,
					SelectNum:           2,
					RandomPerGen:        1,
					Sharing:             evo.SharingShared,
					Workers:             2,
					Seed:                11,
					MaxTicks:            3000,
				},
				Network:     evo.NetworkConfig{NumInputs: inputs, HiddenSizes: []int{3}, NumOutputs: outputs},
				Mutation:    evo.MutationConfig{MutationRate: 0.2, ReplacementRate: 0.1, Std: 0.5},
				Environment: evo.EnvironmentConfig{Name: name, SurvivalReward: 0.001},
			}
			factory, err := New(cfg.Environment)
			require.NoError(t, err)
			trainer, err := evo.NewTrainer(cfg, factory)
			require.NoError(t, err)

			champion, err := trainer.Run(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, champion)
			assert.Len(t, trainer.History, 2)
		})
	}
}

func TestReplay(t *testing.T) {
	net, err := nn.New(nn.Topology{Inputs: PongInputs, Outputs: PongOutputs}, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	cfg := evo.EnvironmentConfig{Name: NamePong}
	first, err := Replay(context.Background(), cfg, net, []int64{1, 2, 3}, 0)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for _, res := range first {
		require.Len(t, res.Rewards, 1)
		assert.Positive(t, res.Ticks)
	}

	again, err := Replay(context.Background(), cfg, net, []int64{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = Replay(context.Background(), evo.EnvironmentConfig{Name: "tetris"}, net, []int64{1}, 0)
	require.Error(t, err)
}
