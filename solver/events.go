package solver

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Input is an event sent to the solver
type Input interface {
	isInput()
}

// SetPointLight adds or moves the light with the given ID
type SetPointLight struct {
	ID       int
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// SetStripeColors changes the two alternating diffuse colors
type SetStripeColors struct {
	A, B mgl32.Vec3
}

// EnableLighting switches all emission on or off
type EnableLighting struct {
	Enabled bool
}

func (SetPointLight) isInput()   {}
func (SetStripeColors) isInput() {}
func (EnableLighting) isInput()  {}

// Event is emitted by the solver
type Event interface {
	isEvent()
}

// StatusUpdate describes build progress
type StatusUpdate struct {
	Text string
}

// IterationDone is sent after every swap
type IterationDone struct {
	Iteration       uint64
	Multiplications int
	Duration        time.Duration
}

// Ready is sent once the packed blocks are in place
type Ready struct{}

func (StatusUpdate) isEvent()  {}
func (IterationDone) isEvent() {}
func (Ready) isEvent()         {}

func (e StatusUpdate) String() string { return e.Text }

func (e IterationDone) String() string {
	return fmt.Sprintf("iteration %d: %d mults in %v", e.Iteration, e.Multiplications, e.Duration)
}

func (Ready) String() string { return "ready" }
