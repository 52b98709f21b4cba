package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ReferenceStep is the step length the damping factors are quoted for.
const ReferenceStep = 1.0 / 60

// Damping bounds the integrator. Angular damping factors are per
// ReferenceStep and are rescaled to the actual step length.
type Damping struct {
	MaxStep         float64 // seconds; larger steps are clamped
	Grounded        float64 // angular velocity factor per reference step while any wheel touches
	Airborne        float64 // same, while no wheel touches
	MaxSpeed        float64 // m/s, 0 = unbounded
	MaxAngularSpeed float64 // rad/s, 0 = unbounded
}

// DefaultDamping mirrors the stock vehicle limits.
var DefaultDamping = Damping{
	MaxStep:         0.05,
	Grounded:        0.98,
	Airborne:        1.0,
	MaxSpeed:        120,
	MaxAngularSpeed: 25,
}

// ClampStep bounds dt to (0, MaxStep]. Non-finite or non-positive steps
// return 0.
func (d Damping) ClampStep(dt float64) float64 {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return 0
	}
	if d.MaxStep > 0 && dt > d.MaxStep {
		return d.MaxStep
	}
	return dt
}

// Integrate advances the body by one semi-implicit Euler step under the
// world-space force and torque. It returns the step length actually used.
// Non-finite force or torque inputs are dropped so a bad contact can't poison
// the state.
func (b *Body) Integrate(force, torque mgl64.Vec3, dt float64, grounded bool, d Damping) float64 {
	dt = d.ClampStep(dt)
	if dt == 0 {
		return 0
	}
	if !finite(force) {
		force = mgl64.Vec3{}
	}
	if !finite(torque) {
		torque = mgl64.Vec3{}
	}

	if b.Mass > 0 {
		b.Velocity = b.Velocity.Add(force.Mul(dt / b.Mass))
	}

	localTorque := b.ToLocal(torque)
	localAccel := mgl64.Vec3{
		localTorque[0] * b.InverseInertia[0],
		localTorque[1] * b.InverseInertia[1],
		localTorque[2] * b.InverseInertia[2],
	}
	b.AngularVelocity = b.AngularVelocity.Add(b.ToWorld(localAccel).Mul(dt))

	factor := d.Airborne
	if grounded {
		factor = d.Grounded
	}
	if factor > 0 && factor < 1 {
		b.AngularVelocity = b.AngularVelocity.Mul(math.Pow(factor, dt/ReferenceStep))
	}

	b.Velocity = clampLen(b.Velocity, d.MaxSpeed)
	b.AngularVelocity = clampLen(b.AngularVelocity, d.MaxAngularSpeed)

	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.rotate(dt)
	return dt
}

// rotate applies the angular velocity to the orientation and renormalises.
func (b *Body) rotate(dt float64) {
	w := b.AngularVelocity.Len()
	if w*dt > 1e-12 {
		delta := mgl64.QuatRotate(w*dt, b.AngularVelocity.Mul(1/w))
		b.Orientation = delta.Mul(b.Orientation)
	}
	b.Orientation = normalizeOr(b.Orientation, mgl64.QuatIdent())
}

// Probe is a body-space point that must stay Clearance above the ground.
type Probe struct {
	Local     mgl64.Vec3
	Clearance float64
}

// Depenetrate lifts the body out of the terrain. Every probe is checked
// against the height under it; the body is raised by the deepest penetration
// and Restitution of the remaining downward velocity is reflected upward.
// It returns the correction applied.
func (b *Body) Depenetrate(probes []Probe, heightAt func(x, z float64) float64, restitution float64) float64 {
	deepest := 0.0
	for _, p := range probes {
		w := b.WorldPoint(p.Local)
		h := heightAt(w.X(), w.Z())
		if math.IsNaN(h) || math.IsInf(h, 0) {
			continue
		}
		if pen := h + p.Clearance - w.Y(); pen > deepest {
			deepest = pen
		}
	}
	if deepest == 0 {
		return 0
	}

	b.Position[1] += deepest
	if vy := b.Velocity.Y(); vy < 0 {
		b.Velocity[1] = -vy * math.Max(0, math.Min(restitution, 1))
	}
	return deepest
}
