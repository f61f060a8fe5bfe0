package games

import (
	"math"
	"math/rand"

	"github.com/baldhumanity/arcade-neuroevo/evo"
)

// Flappy Bird physics, in pixels and pixels per tick. Y grows downwards;
// bird velocity is positive upwards.
const (
	Gravity          = 0.8
	GapSize          = 180.0
	PipeScrollSpeed  = 2.0
	FlapStrength     = 13.0
	BirdRadius       = 25.0
	TerminalVelocity = -10.0
	PipeDistance     = 250.0
	PipeWidth        = 85.0
	PipeBuffer       = 20 // minimum distance from a gap to the top or bottom edge
	FlappyWidth      = 480.0
	FlappyHeight     = 640.0

	BirdX = FlappyWidth/2 - 50

	FlappyInputs  = 1 // bird y - top of the next pipe's lower half
	FlappyOutputs = 1 // flap when positive
)

const pipeSpacing = PipeDistance + PipeWidth

type pipe struct {
	x   float64
	gap float64 // top of the gap; the lower pipe starts at gap + GapSize
}

type bird struct {
	y        float64
	velocity float64
	credited int // pipes already rewarded
}

// Flappy runs every agent's bird through one shared stream of pipes. A trial
// ends for an agent when its bird touches the ground or a pipe.
//
// Reward policy: +1 for every pipe the bird clears, plus SurvivalReward for
// every tick it stays alive.
type Flappy struct {
	SurvivalReward float64

	rng     *rand.Rand
	pipes   []pipe
	next    int // index of the first pipe the birds have not cleared
	cleared int
	birds   []bird
}

var _ evo.Environment = (*Flappy)(nil)

// NewFlappy creates a Flappy Bird world with the reward shaping from cfg.
func NewFlappy(cfg evo.EnvironmentConfig) *Flappy {
	return &Flappy{SurvivalReward: cfg.SurvivalReward}
}

// Reset places the birds mid-screen at rest and spawns enough pipes to the
// right of the window to keep the screen filled.
func (f *Flappy) Reset(rng *rand.Rand, agents int) error {
	f.rng = rng
	f.next = 0
	f.cleared = 0

	count := int(math.Ceil(FlappyWidth/pipeSpacing)) + 1
	f.pipes = f.pipes[:0]
	for i := 0; i < count; i++ {
		f.pipes = append(f.pipes, f.newPipe(FlappyWidth+float64(i)*pipeSpacing))
	}

	f.birds = make([]bird, agents)
	for i := range f.birds {
		f.birds[i] = bird{y: FlappyHeight / 2}
	}
	return nil
}

func (f *Flappy) newPipe(x float64) pipe {
	gap := PipeBuffer + f.rng.Intn(int(FlappyHeight-GapSize)-2*PipeBuffer)
	return pipe{x: x, gap: float64(gap)}
}

// Observe returns the bird's height relative to the top of the next lower pipe.
func (f *Flappy) Observe(agent int) []float64 {
	return []float64{f.birds[agent].y - (f.pipes[f.next].gap + GapSize)}
}

// ApplyAction flaps when the single output is positive.
func (f *Flappy) ApplyAction(agent int, output []float64) {
	if len(output) > 0 && output[0] > 0 {
		f.birds[agent].velocity = FlapStrength
	}
}

// Advance scrolls the pipes one tick, counting the next pipe as cleared once
// the birds are past it and recycling pipes that left the screen.
func (f *Flappy) Advance() error {
	if BirdX > f.pipes[f.next].x+PipeWidth {
		f.next++
		f.cleared++
	}
	for i := range f.pipes {
		f.pipes[i].x -= PipeScrollSpeed
	}
	if f.pipes[0].x < -PipeWidth {
		last := f.pipes[len(f.pipes)-1]
		f.pipes = append(f.pipes[1:], f.newPipe(last.x+pipeSpacing))
		f.next--
	}
	return nil
}

// Step applies gravity to the agent's bird and checks it against the ground
// and the next pipe.
func (f *Flappy) Step(agent int) (bool, float64) {
	b := &f.birds[agent]
	reward := float64(f.cleared-b.credited) + f.SurvivalReward
	b.credited = f.cleared

	b.velocity = math.Max(b.velocity-Gravity, TerminalVelocity)
	b.y = math.Max(b.y-b.velocity, BirdRadius)
	if b.y >= FlappyHeight-BirdRadius || f.collides(b.y, f.pipes[f.next]) {
		return true, reward
	}
	return false, reward
}

// collides tests the bird's bounding square against both halves of p.
func (f *Flappy) collides(y float64, p pipe) bool {
	left, right := BirdX-BirdRadius, BirdX+BirdRadius
	if right <= p.x || left >= p.x+PipeWidth {
		return false
	}
	return y-BirdRadius < p.gap || y+BirdRadius > p.gap+GapSize
}
