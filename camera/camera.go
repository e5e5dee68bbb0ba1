// Package camera provides an orbit camera around the particle box.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/haze/config"
	"github.com/pthm-cable/haze/systems"
)

// Pitch is kept just short of the poles so the up vector stays valid.
const maxPitch = math.Pi/2 - 0.01

// Orbit circles a target point at a fixed distance.
// Yaw rotates around the vertical axis, pitch tilts above or below the
// horizontal plane.
type Orbit struct {
	// Target is the point the camera looks at
	Target r3.Vec

	// Angles in radians
	Yaw, Pitch float64

	// Distance from the target
	Distance float64

	// Distance constraints
	MinDistance, MaxDistance float64

	// Automatic yaw per Update call
	OrbitSpeed float64

	// Field of view in degrees
	Fovy float64

	home framing
}

// framing is the initial view restored by Reset.
type framing struct {
	Yaw, Pitch, Distance float64
}

// New creates an orbit camera from config, looking at the origin.
func New(cfg config.CameraConfig) *Orbit {
	o := &Orbit{
		Yaw:         cfg.Yaw,
		Pitch:       clamp(cfg.Pitch, -maxPitch, maxPitch),
		MinDistance: cfg.MinDistance,
		MaxDistance: cfg.MaxDistance,
		OrbitSpeed:  cfg.OrbitSpeed,
		Fovy:        45,
	}
	if o.MinDistance <= 0 {
		o.MinDistance = 1
	}
	if o.MaxDistance < o.MinDistance {
		o.MaxDistance = o.MinDistance
	}
	o.Distance = clamp(cfg.Distance, o.MinDistance, o.MaxDistance)
	o.home = framing{Yaw: o.Yaw, Pitch: o.Pitch, Distance: o.Distance}
	return o
}

// Position returns the eye point in world coordinates.
func (o *Orbit) Position() r3.Vec {
	cp := math.Cos(o.Pitch)
	dir := r3.Vec{
		X: cp * math.Sin(o.Yaw),
		Y: math.Sin(o.Pitch),
		Z: cp * math.Cos(o.Yaw),
	}
	return r3.Add(o.Target, r3.Scale(o.Distance, dir))
}

// Rotate changes yaw and pitch by the given deltas in radians.
// Yaw wraps to [0, 2π); pitch is clamped.
func (o *Orbit) Rotate(dYaw, dPitch float64) {
	o.Yaw = mod(o.Yaw+dYaw, 2*math.Pi)
	o.Pitch = clamp(o.Pitch+dPitch, -maxPitch, maxPitch)
}

// SetDistance sets the distance, clamped to min/max.
func (o *Orbit) SetDistance(d float64) {
	o.Distance = clamp(d, o.MinDistance, o.MaxDistance)
}

// ZoomBy divides the distance by factor; factor > 1 moves closer.
func (o *Orbit) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	o.SetDistance(o.Distance / factor)
}

// Update applies the automatic orbit for one frame.
func (o *Orbit) Update() {
	if o.OrbitSpeed != 0 {
		o.Rotate(o.OrbitSpeed, 0)
	}
}

// Fit moves the camera back far enough to see the whole box, widening the
// distance limits when needed.
func (o *Orbit) Fit(b systems.Bounds) {
	o.Target = r3.Vec{}
	radius := 0.5 * math.Sqrt(b.X*b.X+b.Y*b.Y+b.Z*b.Z)
	if radius == 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return
	}
	halfFov := o.Fovy * math.Pi / 360
	d := radius / math.Sin(halfFov)
	if d > o.MaxDistance {
		o.MaxDistance = d
	}
	o.SetDistance(d)
	o.home.Distance = o.Distance
}

// Reset returns the camera to its initial framing.
func (o *Orbit) Reset() {
	o.Target = r3.Vec{}
	o.Yaw = o.home.Yaw
	o.Pitch = o.home.Pitch
	o.Distance = o.home.Distance
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// clamp restricts a value to a range.
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
