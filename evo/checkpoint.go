package evo

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// AgentSaveData is the serialisable form of an Agent.
type AgentSaveData struct {
	Key     int
	Fitness float64
	Network nn.Snapshot
}

// PopulationSaveData holds only the parts of a Trainer needed to resume it.
// The Config is not saved; it is supplied again when loading.
// The random stream is not saved either: a resumed trainer reseeds from the
// configured seed and the generation number.
type PopulationSaveData struct {
	Population      []AgentSaveData
	Generation      int
	Champion        *AgentSaveData
	NextGenomeKey   int
	Ancestors       map[int][]int
	History         []GenerationRecord
	StagnationBest  float64
	StagnationSince int
}

// SaveCheckpoint writes the current population, generation counter and
// champion to filePath using gzip-compressed gob.
func (t *Trainer) SaveCheckpoint(filePath string) error {
	saveData := PopulationSaveData{
		Population:      make([]AgentSaveData, len(t.Population)),
		Generation:      t.Generation,
		NextGenomeKey:   t.Reproduction.NextGenomeKey,
		Ancestors:       t.Reproduction.Ancestors,
		History:         t.History,
		StagnationBest:  t.Stagnation.best,
		StagnationSince: t.Stagnation.since,
	}
	for i, a := range t.Population {
		saveData.Population[i] = AgentSaveData{Key: a.Key, Fitness: a.Fitness, Network: a.Network.Snapshot()}
	}
	if t.Champion != nil {
		saveData.Champion = &AgentSaveData{Key: t.Champion.Key, Fitness: t.Champion.Fitness, Network: t.Champion.Network.Snapshot()}
	}

	// Write beside the target and rename so an interrupted save keeps the previous checkpoint.
	tmpPath := filePath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", tmpPath, err)
	}
	gzWriter := gzip.NewWriter(file)
	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		gzWriter.Close()
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move checkpoint into place: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a Trainer from a checkpoint file. The configuration
// must describe the same network topology the checkpoint was written with.
func LoadCheckpoint(checkpointPath string, config *Config, factory EnvironmentFactory) (*Trainer, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	saveData := PopulationSaveData{}
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}
	if len(saveData.Population) != config.Trainer.PopulationSize {
		return nil, fmt.Errorf("checkpoint holds %d agents, config expects %d", len(saveData.Population), config.Trainer.PopulationSize)
	}

	t, err := NewTrainer(config, factory)
	if err != nil {
		return nil, err
	}

	want := config.Network.Topology()
	restore := func(data AgentSaveData) (*Agent, error) {
		net, err := nn.FromSnapshot(data.Network)
		if err != nil {
			return nil, fmt.Errorf("failed to restore agent %d: %w", data.Key, err)
		}
		if !net.Topology.Equal(want) {
			return nil, fmt.Errorf("%w: checkpoint agent %d is %s, config is %s", ErrTopologyMismatch, data.Key, net.Topology, want)
		}
		return &Agent{Key: data.Key, Fitness: data.Fitness, Network: net}, nil
	}

	t.Population = make([]*Agent, len(saveData.Population))
	for i, data := range saveData.Population {
		if t.Population[i], err = restore(data); err != nil {
			return nil, err
		}
	}
	if saveData.Champion != nil {
		if t.Champion, err = restore(*saveData.Champion); err != nil {
			return nil, err
		}
	}

	t.Generation = saveData.Generation
	t.History = saveData.History
	t.Reproduction.NextGenomeKey = saveData.NextGenomeKey
	t.Reproduction.Ancestors = saveData.Ancestors
	if t.Reproduction.Ancestors == nil {
		t.Reproduction.Ancestors = make(map[int][]int)
	}
	if saveData.Champion != nil {
		t.Stagnation.best = saveData.StagnationBest
	}
	t.Stagnation.since = saveData.StagnationSince

	seed := config.Trainer.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	t.reseed(seed + int64(t.Generation))
	return t, nil
}

// reseed replaces the trainer's random stream, keeping breeding on the same stream.
func (t *Trainer) reseed(seed int64) {
	t.rng = rand.New(rand.NewSource(seed))
	t.Reproduction.rng = t.rng
}
