// Package neuroevo trains small fixed-topology neural networks to play arcade
// games with a genetic algorithm.
//
// A population of feed-forward networks (package nn) is evaluated against a
// simulated game (package games). Every generation the best networks are kept
// unmodified, the rest of the population is bred from them by uniform
// crossover and Gaussian mutation, and the best network found so far is stored
// (package storage) so it can be replayed later. The generational loop, the
// genetic operators and the Environment contract live in package evo.
//
// Basic usage:
//
//	// Load configuration (INI, YAML or TOML)
//	config, err := evo.LoadConfig("examples/configs/pong.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Pick the game named in the [Environment] section
//	factory, err := games.New(config.Environment)
//	if err != nil {
//		log.Fatalf("Error creating environment: %v", err)
//	}
//
//	// Create a trainer and print progress
//	trainer, err := evo.NewTrainer(config, factory)
//	if err != nil {
//		log.Fatalf("Error creating trainer: %v", err)
//	}
//	trainer.Reporters.Add(evo.NewStdOutReporter(os.Stdout))
//
//	// Run for the configured number of generations
//	champion, err := trainer.Run(context.Background())
//	if err != nil {
//		log.Fatalf("Error during training: %v", err)
//	}
//
//	// Use the champion
//	output, err := champion.Evaluate([]float64{300, 200, -4, 1, 175})
//
// Custom games implement evo.Environment: Reset, Observe, ApplyAction,
// Advance and Step. Agents either share one world per trial (one ball, many
// paddles) or get a world each; the choice is the required "sharing" setting.
package neuroevo
