package games

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/baldhumanity/arcade-neuroevo/evo"
)

// Pong geometry, in pixels and pixels per tick.
const (
	PongWidth          = 600.0
	PongHeight         = 400.0
	BallRadius         = 10.0
	PaddleWidth        = 10.0
	PaddleHeight       = 50.0
	PaddleEdgeDistance = 5.0
	BallSpeed          = 5.0
	BallMaxAngle       = 75 // degrees
	PaddleSpeed        = 3.0

	PongInputs  = 5 // ball x, ball y, ball vx, ball vy, paddle centre
	PongOutputs = 2 // up, down
)

const (
	leftPaddleFace  = PaddleEdgeDistance + PaddleWidth
	rightPaddleFace = PongWidth - leftPaddleFace

	// maxServeAttempts bounds the search for a serve the paddle can legally return.
	maxServeAttempts = 1000
	minHorizontalVel = 1e-9
)

// Pong is a single-rally game: the ball leaves the agents' paddle on the left,
// bounces off a wall on the right at a random angle and the trial ends when it
// comes back to the paddle line. All agents share the ball; each has its own
// paddle.
//
// Reward policy: at the end of the rally every agent earns
// 1 - |paddle centre - ball y at the paddle line| / screen height, so a paddle
// centred on the ball scores 1. Each tick an agent also loses StillnessPenalty
// if its paddle did not move and DistancePenalty * |paddle centre - ball y| /
// screen height.
type Pong struct {
	StillnessPenalty float64
	DistancePenalty  float64

	rng        *rand.Rand
	ballX      float64
	ballY      float64
	velX       float64
	velY       float64
	paddles    []float64 // top edge of each agent's paddle
	moved      []bool
	finished   bool
	collisionY float64
}

var _ evo.Environment = (*Pong)(nil)

// NewPong creates a Pong world with the reward shaping from cfg.
func NewPong(cfg evo.EnvironmentConfig) *Pong {
	return &Pong{StillnessPenalty: cfg.StillnessPenalty, DistancePenalty: cfg.DistancePenalty}
}

// Reset serves a new ball from the left paddle. Serves are redrawn until the
// paddle position that would have produced the serve lies on screen; every
// paddle starts there.
func (p *Pong) Reset(rng *rand.Rand, agents int) error {
	p.rng = rng
	p.finished = false
	p.collisionY = 0

	var start float64
	for attempt := 0; ; attempt++ {
		if attempt == maxServeAttempts {
			return fmt.Errorf("%w: no legal serve after %d attempts", evo.ErrDegeneratePhysics, maxServeAttempts)
		}
		p.ballX = leftPaddleFace + BallRadius
		p.ballY = BallRadius + float64(rng.Intn(int(PongHeight-2*BallRadius)+1))
		angle := float64(rng.Intn(2*BallMaxAngle+1) - BallMaxAngle)
		p.velX, p.velY = velocity(angle)

		start = p.ballY - angle/BallMaxAngle*(PaddleHeight/2+BallRadius) - PaddleHeight/2
		if start >= 0 && start+PaddleHeight <= PongHeight {
			break
		}
	}

	p.paddles = make([]float64, agents)
	p.moved = make([]bool, agents)
	for i := range p.paddles {
		p.paddles[i] = start
	}
	return nil
}

// Observe returns ball x, ball y, ball velocity and the agent's paddle centre.
func (p *Pong) Observe(agent int) []float64 {
	return []float64{p.ballX, p.ballY, p.velX, p.velY, p.paddles[agent] + PaddleHeight/2}
}

// ApplyAction moves the paddle up when only output 0 is positive and down when
// only output 1 is. Any other combination leaves it where it is.
func (p *Pong) ApplyAction(agent int, output []float64) {
	up := len(output) > 0 && output[0] > 0
	down := len(output) > 1 && output[1] > 0

	before := p.paddles[agent]
	switch {
	case up && !down:
		p.paddles[agent] = math.Max(before-PaddleSpeed, 0)
	case down && !up:
		p.paddles[agent] = math.Min(before+PaddleSpeed, PongHeight-PaddleHeight)
	}
	p.moved[agent] = p.paddles[agent] != before
}

// Advance moves the ball one tick, bouncing it off the top, bottom and right
// walls. When the ball reaches the paddle line the rally is over.
func (p *Pong) Advance() error {
	if p.finished {
		return nil
	}
	if math.Abs(p.velX) < minHorizontalVel {
		return fmt.Errorf("%w: ball has no horizontal velocity", evo.ErrDegeneratePhysics)
	}

	nextX := p.ballX + p.velX
	inside := p.ballX+BallRadius <= rightPaddleFace && p.ballX-BallRadius >= leftPaddleFace
	switch {
	case inside && nextX+BallRadius >= rightPaddleFace:
		p.bounceRight()
	case inside && nextX-BallRadius <= leftPaddleFace:
		p.collisionY = p.ballY + p.velY/p.velX*(leftPaddleFace-(p.ballX-BallRadius))
		p.finished = true
		return nil
	}

	p.ballX += p.velX
	p.ballY += p.velY
	clamped := math.Max(BallRadius, math.Min(PongHeight-BallRadius, p.ballY))
	if clamped != p.ballY {
		p.ballY -= 2 * (p.ballY - clamped)
		p.velY = -p.velY
	}
	return nil
}

// bounceRight puts the ball against the right wall and sends it back left at a
// random angle.
func (p *Pong) bounceRight() {
	p.ballY += p.velY / p.velX * (rightPaddleFace - (p.ballX + BallRadius))
	p.ballX = rightPaddleFace - BallRadius
	angle := float64(p.rng.Intn(2*BallMaxAngle)-BallMaxAngle) + 180
	p.velX, p.velY = velocity(angle)
}

// Step reports the agent's reward for the tick and whether the rally is over.
func (p *Pong) Step(agent int) (bool, float64) {
	centre := p.paddles[agent] + PaddleHeight/2
	reward := 0.0
	if !p.moved[agent] {
		reward -= p.StillnessPenalty
	}
	p.moved[agent] = false

	if p.finished {
		return true, reward + 1 - math.Abs(centre-p.collisionY)/PongHeight
	}
	return false, reward - p.DistancePenalty*math.Abs(centre-p.ballY)/PongHeight
}

func velocity(degrees float64) (float64, float64) {
	rad := degrees * math.Pi / 180
	return BallSpeed * math.Cos(rad), BallSpeed * math.Sin(rad)
}
