package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelradiosity/core"
	"voxelradiosity/solver"
)

// PlanesMessage is sent once per connection so the client can build its mesh
type PlanesMessage struct {
	Type     string       `json:"type"`
	Planes   int          `json:"planes"`
	Vertices [][3]float32 `json:"vertices"`
	Quads    [][4]uint32  `json:"quads"`
}

func planesMessage(scene *core.Scene) PlanesMessage {
	msg := PlanesMessage{
		Type:     "planes",
		Planes:   scene.Len(),
		Vertices: make([][3]float32, len(scene.Vertices)),
		Quads:    make([][4]uint32, len(scene.Planes)),
	}
	for i, v := range scene.Vertices {
		msg.Vertices[i] = v
	}
	for i, p := range scene.Planes {
		msg.Quads[i] = p.Vertices
	}
	return msg
}

// EventMessage mirrors a solver.Event as JSON
type EventMessage struct {
	Type            string  `json:"type"`
	Text            string  `json:"text,omitempty"`
	Iteration       uint64  `json:"iteration,omitempty"`
	Multiplications int     `json:"multiplications,omitempty"`
	DurationMs      float64 `json:"durationMs,omitempty"`
}

func eventMessage(ev solver.Event) (EventMessage, bool) {
	switch e := ev.(type) {
	case solver.StatusUpdate:
		return EventMessage{Type: "status", Text: e.Text}, true
	case solver.IterationDone:
		return EventMessage{
			Type:            "iteration",
			Iteration:       e.Iteration,
			Multiplications: e.Multiplications,
			DurationMs:      float64(e.Duration.Microseconds()) / 1000,
		}, true
	case solver.Ready:
		return EventMessage{Type: "ready"}, true
	}
	return EventMessage{}, false
}

// InputMessage is what clients send. Type selects which fields matter.
type InputMessage struct {
	Type     string     `json:"type"`
	ID       int        `json:"id"`
	Position [3]float32 `json:"position"`
	Color    [3]float32 `json:"color"`
	A        [3]float32 `json:"a"`
	B        [3]float32 `json:"b"`
	Enabled  bool       `json:"enabled"`
}

// ParseInput converts a client message into a solver input
func ParseInput(msg InputMessage) (solver.Input, error) {
	switch msg.Type {
	case "setPointLight":
		return solver.SetPointLight{ID: msg.ID, Position: mgl32.Vec3(msg.Position), Color: mgl32.Vec3(msg.Color)}, nil
	case "setStripeColors":
		return solver.SetStripeColors{A: mgl32.Vec3(msg.A), B: mgl32.Vec3(msg.B)}, nil
	case "enableLighting":
		return solver.EnableLighting{Enabled: msg.Enabled}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}

// EncodeFrame lays out a front buffer as a binary message: the iteration as
// uint32, then the R, G and B arrays as float32, all little endian
func EncodeFrame(iteration uint64, c solver.Channels) []byte {
	n := len(c.R)
	buf := make([]byte, 4+12*n)
	binary.LittleEndian.PutUint32(buf, uint32(iteration))
	off := 4
	for _, ch := range [][]float32{c.R, c.G, c.B} {
		for _, v := range ch {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	return buf
}

// DecodeFrame is the inverse of EncodeFrame
func DecodeFrame(buf []byte) (uint32, solver.Channels, error) {
	if len(buf) < 4 || (len(buf)-4)%12 != 0 {
		return 0, solver.Channels{}, errors.New("malformed frame")
	}
	n := (len(buf) - 4) / 12
	iteration := binary.LittleEndian.Uint32(buf)
	c := solver.Channels{R: make([]float32, n), G: make([]float32, n), B: make([]float32, n)}
	off := 4
	for _, ch := range [][]float32{c.R, c.G, c.B} {
		for i := range ch {
			ch[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
			off += 4
		}
	}
	return iteration, c, nil
}
