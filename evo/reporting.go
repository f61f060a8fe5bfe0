package evo

import (
	"fmt"
	"io"
	"os"
	"time"
)

// GenerationRecord summarises one generation after evaluation.
type GenerationRecord struct {
	Generation  int
	Fitnesses   []float64 // indexed by agent, in population order
	Best        float64
	BestKey     int
	Mean        float64
	Stdev       float64
	Worst       float64
	NewChampion bool
	Stagnant    int // generations since the champion last improved
	Duration    time.Duration
}

// Reporter receives progress events from a Trainer. Events are delivered from
// the trainer's goroutine only, after each generation barrier.
type Reporter interface {
	StartGeneration(generation int)
	PostEvaluate(record GenerationRecord)
	NewChampion(generation int, champion *Agent)
	CheckpointSaved(kind string, generation int, fitness float64)
	Warning(msg string)
	EndGeneration(record GenerationRecord)
}

// BaseReporter implements every Reporter method as a no-op so custom
// reporters only need to override the events they care about.
type BaseReporter struct{}

func (BaseReporter) StartGeneration(int) {}
func (BaseReporter) PostEvaluate(GenerationRecord) {}
func (BaseReporter) NewChampion(int, *Agent) {}
func (BaseReporter) CheckpointSaved(string, int, float64) {}
func (BaseReporter) Warning(string) {}
func (BaseReporter) EndGeneration(GenerationRecord) {}

// ReporterSet fans events out to every registered reporter.
type ReporterSet struct {
	reporters []Reporter
}

// Add registers a reporter.
func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

func (rs *ReporterSet) StartGeneration(generation int) {
	for _, r := range rs.reporters {
		r.StartGeneration(generation)
	}
}

func (rs *ReporterSet) PostEvaluate(record GenerationRecord) {
	for _, r := range rs.reporters {
		r.PostEvaluate(record)
	}
}

func (rs *ReporterSet) NewChampion(generation int, champion *Agent) {
	for _, r := range rs.reporters {
		r.NewChampion(generation, champion)
	}
}

func (rs *ReporterSet) CheckpointSaved(kind string, generation int, fitness float64) {
	for _, r := range rs.reporters {
		r.CheckpointSaved(kind, generation, fitness)
	}
}

func (rs *ReporterSet) Warning(msg string) {
	for _, r := range rs.reporters {
		r.Warning(msg)
	}
}

func (rs *ReporterSet) EndGeneration(record GenerationRecord) {
	for _, r := range rs.reporters {
		r.EndGeneration(record)
	}
}

// StdOutReporter prints human-readable progress, one block per generation.
type StdOutReporter struct {
	BaseReporter
	w io.Writer
}

// NewStdOutReporter writes to w, or to os.Stdout when w is nil.
func NewStdOutReporter(w io.Writer) *StdOutReporter {
	if w == nil {
		w = os.Stdout
	}
	return &StdOutReporter{w: w}
}

func (r *StdOutReporter) StartGeneration(generation int) {
	fmt.Fprintf(r.w, "****** Generation %d ******\n", generation)
}

func (r *StdOutReporter) PostEvaluate(record GenerationRecord) {
	fmt.Fprintf(r.w, " Population fitness: best %.4f (key %d), mean %.4f, stdev %.4f, worst %.4f\n",
		record.Best, record.BestKey, record.Mean, record.Stdev, record.Worst)
}

func (r *StdOutReporter) NewChampion(generation int, champion *Agent) {
	fmt.Fprintf(r.w, " New champion found! Key: %d, Fitness: %.4f\n", champion.Key, champion.Fitness)
}

func (r *StdOutReporter) CheckpointSaved(kind string, generation int, fitness float64) {
	fmt.Fprintf(r.w, " Saved %s network (generation %d, fitness %.4f)\n", kind, generation, fitness)
}

func (r *StdOutReporter) Warning(msg string) {
	fmt.Fprintf(r.w, " Warning: %s\n", msg)
}

func (r *StdOutReporter) EndGeneration(record GenerationRecord) {
	if record.Stagnant > 0 {
		fmt.Fprintf(r.w, " No improvement for %d generation(s).\n", record.Stagnant)
	}
	fmt.Fprintf(r.w, "Generation %d finished in %s\n\n", record.Generation, record.Duration)
}
