package evo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

// Config stores every parameter of a training run. It is read once before the
// run starts and never changed while a Trainer is using it.
type Config struct {
	Trainer     TrainerConfig     `yaml:"trainer" toml:"trainer"`
	Network     NetworkConfig     `yaml:"network" toml:"network"`
	Mutation    MutationConfig    `yaml:"mutation" toml:"mutation"`
	Environment EnvironmentConfig `yaml:"environment" toml:"environment"`
	Checkpoint  CheckpointConfig  `yaml:"checkpoint" toml:"checkpoint"`
}

// TrainerConfig holds the population and generation loop parameters.
type TrainerConfig struct {
	PopulationSize      int     `ini:"population_size" yaml:"population_size" toml:"population_size"`
	Generations         int     `ini:"generations" yaml:"generations" toml:"generations"`
	TrialsPerGeneration int     `ini:"trials_per_generation" yaml:"trials_per_generation" toml:"trials_per_generation"`
	SelectNum           int     `ini:"select_num" yaml:"select_num" toml:"select_num"`         // elites carried unmodified
	RandomPerGen        int     `ini:"random_per_gen" yaml:"random_per_gen" toml:"random_per_gen"` // fresh networks per generation
	TournamentSize      int     `ini:"tournament_size" yaml:"tournament_size" toml:"tournament_size"`
	Selection           string  `ini:"selection" yaml:"selection" toml:"selection"` // "tournament" or "roulette"
	Sharing             Sharing `ini:"sharing" yaml:"sharing" toml:"sharing"`       // "shared" or "independent", required
	FitnessAggregation  string  `ini:"fitness_aggregation" yaml:"fitness_aggregation" toml:"fitness_aggregation"`
	Workers             int     `ini:"workers" yaml:"workers" toml:"workers"`
	Seed                int64   `ini:"seed" yaml:"seed" toml:"seed"`
	MaxTicks            int     `ini:"max_ticks" yaml:"max_ticks" toml:"max_ticks"` // 0 = unlimited
	TrialRetries        int     `ini:"trial_retries" yaml:"trial_retries" toml:"trial_retries"`

	FitnessThreshold     float64 `ini:"fitness_threshold" yaml:"fitness_threshold" toml:"fitness_threshold"`
	NoFitnessTermination *bool   `ini:"-" yaml:"no_fitness_termination" toml:"no_fitness_termination"` // nil means true
	MaxStagnation        int     `ini:"max_stagnation" yaml:"max_stagnation" toml:"max_stagnation"`                      // 0 disables
}

// NetworkConfig describes the topology shared by the whole population.
type NetworkConfig struct {
	NumInputs   int    `ini:"num_inputs" yaml:"num_inputs" toml:"num_inputs"`
	HiddenSizes []int  `ini:"hidden_sizes" delim:" " yaml:"hidden_sizes" toml:"hidden_sizes"` // Space-separated list, may be empty
	NumOutputs  int    `ini:"num_outputs" yaml:"num_outputs" toml:"num_outputs"`
	Activation  string `ini:"activation" yaml:"activation" toml:"activation"`
}

// Topology converts the section into an nn.Topology.
func (nc NetworkConfig) Topology() nn.Topology {
	return nn.Topology{
		Inputs:     nc.NumInputs,
		Hidden:     append([]int(nil), nc.HiddenSizes...),
		Outputs:    nc.NumOutputs,
		Activation: nc.Activation,
	}
}

// MutationConfig holds the per-gene mutation parameters.
type MutationConfig struct {
	MutationRate    float64 `ini:"mutation_rate" yaml:"mutation_rate" toml:"mutation_rate"`
	ReplacementRate float64 `ini:"replacement_rate" yaml:"replacement_rate" toml:"replacement_rate"` // conditional on a mutation happening
	Std             float64 `ini:"mutation_std" yaml:"mutation_std" toml:"mutation_std"`
	MutateOffspring *bool   `ini:"-" yaml:"mutate_offspring" toml:"mutate_offspring"` // nil means true
}

// EnvironmentConfig selects a game and its reward shaping.
type EnvironmentConfig struct {
	Name             string  `ini:"name" yaml:"name" toml:"name"`
	StillnessPenalty float64 `ini:"stillness_penalty" yaml:"stillness_penalty" toml:"stillness_penalty"`
	DistancePenalty  float64 `ini:"distance_penalty" yaml:"distance_penalty" toml:"distance_penalty"`
	SurvivalReward   float64 `ini:"survival_reward" yaml:"survival_reward" toml:"survival_reward"`
}

// CheckpointConfig controls where champions and population checkpoints go.
type CheckpointConfig struct {
	RunID              string `ini:"run_id" yaml:"run_id" toml:"run_id"`
	Store              string `ini:"store" yaml:"store" toml:"store"` // "memory", "file" or "sqlite"
	Path               string `ini:"path" yaml:"path" toml:"path"`
	SaveLastGeneration bool   `ini:"save_last_generation" yaml:"save_last_generation" toml:"save_last_generation"`
	PopulationPath     string `ini:"population_path" yaml:"population_path" toml:"population_path"`
}

// LoadConfig loads configuration parameters from a file. The format is chosen
// by extension: .yaml/.yml and .toml are supported, anything else is read as INI.
func LoadConfig(filePath string) (*Config, error) {
	var (
		config *Config
		err    error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		config, err = loadYAML(filePath)
	case ".toml":
		config, err = loadTOML(filePath)
	default:
		config, err = loadINI(filePath)
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadINI(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true, // Allow # comments starting with # or ;
		UnescapeValueCommentSymbols: true, // If # or ; appear in value, treat as value
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := &Config{}
	if err := cfg.Section("Trainer").MapTo(&config.Trainer); err != nil {
		return nil, fmt.Errorf("failed to map [Trainer] section: %w", err)
	}
	if err := cfg.Section("Network").MapTo(&config.Network); err != nil {
		return nil, fmt.Errorf("failed to map [Network] section: %w", err)
	}
	if err := cfg.Section("Mutation").MapTo(&config.Mutation); err != nil {
		return nil, fmt.Errorf("failed to map [Mutation] section: %w", err)
	}
	if err := cfg.Section("Environment").MapTo(&config.Environment); err != nil {
		return nil, fmt.Errorf("failed to map [Environment] section: %w", err)
	}
	if err := cfg.Section("Checkpoint").MapTo(&config.Checkpoint); err != nil {
		return nil, fmt.Errorf("failed to map [Checkpoint] section: %w", err)
	}

	// MapTo leaves optional bools nil; read them explicitly so absence keeps the default.
	if key, err := cfg.Section("Trainer").GetKey("no_fitness_termination"); err == nil {
		v, err := key.Bool()
		if err != nil {
			return nil, fmt.Errorf("config error: no_fitness_termination: %w", err)
		}
		config.Trainer.NoFitnessTermination = &v
	}
	if key, err := cfg.Section("Mutation").GetKey("mutate_offspring"); err == nil {
		v, err := key.Bool()
		if err != nil {
			return nil, fmt.Errorf("config error: mutate_offspring: %w", err)
		}
		config.Mutation.MutateOffspring = &v
	}

	config.Trainer.Selection = cleanIniString(config.Trainer.Selection)
	config.Trainer.Sharing = Sharing(cleanIniString(string(config.Trainer.Sharing)))
	config.Trainer.FitnessAggregation = cleanIniString(config.Trainer.FitnessAggregation)
	config.Network.Activation = cleanIniString(config.Network.Activation)
	config.Environment.Name = cleanIniString(config.Environment.Name)
	config.Checkpoint.Store = cleanIniString(config.Checkpoint.Store)
	return config, nil
}

func loadYAML(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config '%s': %w", filePath, err)
	}
	return config, nil
}

func loadTOML(filePath string) (*Config, error) {
	config := &Config{}
	if _, err := toml.DecodeFile(filePath, config); err != nil {
		return nil, fmt.Errorf("failed to parse toml config '%s': %w", filePath, err)
	}
	return config, nil
}

// Validate fills in defaults and checks every parameter. LoadConfig and
// NewTrainer both call it.
func (c *Config) Validate() error {
	t := &c.Trainer
	if t.TrialsPerGeneration == 0 {
		t.TrialsPerGeneration = 1
	}
	if t.Selection == "" {
		t.Selection = SelectionTournament
	}
	if t.FitnessAggregation == "" {
		t.FitnessAggregation = "sum"
	}
	if t.Workers <= 0 {
		t.Workers = 1
	}
	if t.TrialRetries == 0 {
		t.TrialRetries = 3
	}
	if t.NoFitnessTermination == nil {
		t.NoFitnessTermination = boolPtr(true)
	}
	if c.Mutation.MutateOffspring == nil {
		c.Mutation.MutateOffspring = boolPtr(true)
	}
	if c.Network.Activation == "" {
		c.Network.Activation = nn.DefaultActivation
	}
	if c.Checkpoint.RunID == "" {
		c.Checkpoint.RunID = "default"
	}
	if c.Checkpoint.Store == "" {
		c.Checkpoint.Store = "memory"
	}

	if t.PopulationSize <= 0 {
		return fmt.Errorf("config error: population_size must be positive")
	}
	if t.TournamentSize == 0 {
		t.TournamentSize = min(2, t.PopulationSize)
	}
	if t.Generations <= 0 {
		return fmt.Errorf("config error: generations must be positive")
	}
	if t.TrialsPerGeneration < 0 {
		return fmt.Errorf("config error: trials_per_generation must be positive")
	}
	if t.SelectNum < 0 || t.RandomPerGen < 0 {
		return fmt.Errorf("config error: select_num and random_per_gen cannot be negative")
	}
	if t.SelectNum+t.RandomPerGen > t.PopulationSize {
		return fmt.Errorf("config error: select_num (%d) + random_per_gen (%d) exceeds population_size (%d)",
			t.SelectNum, t.RandomPerGen, t.PopulationSize)
	}
	if t.SelectNum+t.RandomPerGen < t.PopulationSize && t.PopulationSize < 2 {
		return fmt.Errorf("config error: breeding needs a population of at least 2")
	}
	if t.TournamentSize < 1 || t.TournamentSize > t.PopulationSize {
		return fmt.Errorf("config error: tournament_size must be between 1 and population_size")
	}
	if t.Selection != SelectionTournament && t.Selection != SelectionRoulette {
		return fmt.Errorf("config error: invalid selection '%s', must be 'tournament' or 'roulette'", t.Selection)
	}
	if err := t.Sharing.Validate(); err != nil {
		return err
	}
	if _, ok := StatFunctions[strings.ToLower(t.FitnessAggregation)]; !ok {
		return fmt.Errorf("config error: invalid fitness_aggregation '%s'", t.FitnessAggregation)
	}
	t.FitnessAggregation = strings.ToLower(t.FitnessAggregation)
	if t.MaxTicks < 0 || t.TrialRetries < 0 || t.MaxStagnation < 0 {
		return fmt.Errorf("config error: max_ticks, trial_retries and max_stagnation cannot be negative")
	}

	m := c.Mutation
	if m.MutationRate < 0 || m.MutationRate > 1 {
		return fmt.Errorf("config error: mutation_rate must be between 0 and 1")
	}
	if m.ReplacementRate < 0 || m.ReplacementRate > 1 {
		return fmt.Errorf("config error: replacement_rate must be between 0 and 1")
	}
	if m.Std < 0 {
		return fmt.Errorf("config error: mutation_std cannot be negative")
	}

	if err := c.Network.Topology().Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MutateOffspringEnabled reports whether children are mutated after crossover.
func (m MutationConfig) MutateOffspringEnabled() bool {
	return m.MutateOffspring == nil || *m.MutateOffspring
}

func boolPtr(v bool) *bool {
	return &v
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
