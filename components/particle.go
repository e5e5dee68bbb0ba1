// Package components defines the data records shared by the simulation and the scene.
package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is a point mass inside a system's box.
type Particle struct {
	Position r3.Vec
	Velocity r3.Vec
}

// KineticEnergy returns ½|v|² for a unit mass.
func (p *Particle) KineticEnergy() float64 {
	return 0.5 * r3.Norm2(p.Velocity)
}

// Speed returns |v|.
func (p *Particle) Speed() float64 {
	return r3.Norm(p.Velocity)
}

// Finite reports whether every position and velocity component is finite.
func (p *Particle) Finite() bool {
	return finite(p.Position) && finite(p.Velocity)
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
