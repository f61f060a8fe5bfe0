package evo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "population.gob.gz")
	cfg := testConfig()
	cfg.Checkpoint.PopulationPath = path
	env := stubEnv{steps: 4, inputs: 1, shaped: true}
	trainer, _ := newTestTrainer(t, cfg, env)

	_, err := trainer.Run(context.Background())
	require.NoError(t, err)
	require.FileExists(t, path)

	loadCfg := testConfig()
	loadCfg.Trainer.Generations = 4
	resumed, err := LoadCheckpoint(path, loadCfg, stubFactory(env))
	require.NoError(t, err)

	assert.Equal(t, trainer.Generation, resumed.Generation)
	assert.Equal(t, trainer.Reproduction.NextGenomeKey, resumed.Reproduction.NextGenomeKey)
	assert.Len(t, resumed.History, len(trainer.History))
	require.Len(t, resumed.Population, len(trainer.Population))
	for i, a := range trainer.Population {
		assert.Equal(t, a.Key, resumed.Population[i].Key)
		assert.True(t, a.Network.Equal(resumed.Population[i].Network))
	}
	require.NotNil(t, resumed.Champion)
	assert.Equal(t, trainer.Champion.Fitness, resumed.Champion.Fitness)
	assert.True(t, trainer.Champion.Network.Equal(resumed.Champion.Network))

	_, err = resumed.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, resumed.Generation)
	assert.GreaterOrEqual(t, resumed.Champion.Fitness, trainer.Champion.Fitness)
}

func TestLoadCheckpointRejectsMismatchedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "population.gob.gz")
	trainer, _ := newTestTrainer(t, testConfig(), stubEnv{steps: 2, reward: 1, inputs: 1})
	_, err := trainer.RunGeneration(context.Background())
	require.NoError(t, err)
	require.NoError(t, trainer.SaveCheckpoint(path))

	wider := testConfig()
	wider.Network.NumInputs = 2
	_, err = LoadCheckpoint(path, wider, stubFactory(stubEnv{inputs: 2}))
	require.ErrorIs(t, err, ErrTopologyMismatch)

	bigger := testConfig()
	bigger.Trainer.PopulationSize = 5
	_, err = LoadCheckpoint(path, bigger, stubFactory(stubEnv{inputs: 1}))
	require.Error(t, err)

	_, err = LoadCheckpoint(filepath.Join(t.TempDir(), "missing"), testConfig(), stubFactory(stubEnv{inputs: 1}))
	require.Error(t, err)
}
