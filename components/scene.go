package components

import "gonum.org/v1/gonum/spatial/r3"

// Swarm identifies the particle system a scene entity draws.
type Swarm struct {
	ID    string
	Label string
}

// Tint is the draw colour of a swarm.
type Tint struct {
	R, G, B, A uint8
}

// Box is the full extent of the volume a swarm is confined to.
type Box struct {
	X, Y, Z float64
}

// Transforms holds the per-particle positions published for the current frame.
// Positions is reused across frames; readers must not retain it.
type Transforms struct {
	Positions []r3.Vec
	Tick      int64
}
