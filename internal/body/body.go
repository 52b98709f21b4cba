// Package body holds the rigid-body state of a vehicle chassis and the
// semi-implicit Euler integrator that advances it.
package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Local axes. Forward is +Z, up is +Y, right is forward × up = -X.
var (
	LocalForward = mgl64.Vec3{0, 0, 1}
	LocalUp      = mgl64.Vec3{0, 1, 0}
	LocalRight   = mgl64.Vec3{-1, 0, 0}
)

// Body is the chassis state. Position, Velocity, Orientation and
// AngularVelocity are owned by the integrator; Mass and the inertia terms are
// fixed at construction.
type Body struct {
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	Orientation     mgl64.Quat
	AngularVelocity mgl64.Vec3 // world space, rad/s

	Mass           float64
	Inertia        mgl64.Vec3 // body-space diagonal
	InverseInertia mgl64.Vec3
}

// New builds a body at the origin with identity orientation and the inertia
// of a solid box of the given dimensions (width along X, height along Y,
// length along Z).
func New(mass, width, height, length float64) *Body {
	k := mass / 12
	inertia := mgl64.Vec3{
		k * (height*height + length*length),
		k * (width*width + length*length),
		k * (width*width + height*height),
	}
	b := &Body{
		Orientation: mgl64.QuatIdent(),
		Mass:        mass,
		Inertia:     inertia,
	}
	for i := range 3 {
		if inertia[i] > 0 {
			b.InverseInertia[i] = 1 / inertia[i]
		}
	}
	return b
}

// Forward returns the world-space forward axis.
func (b *Body) Forward() mgl64.Vec3 { return b.Orientation.Rotate(LocalForward) }

// Up returns the world-space up axis.
func (b *Body) Up() mgl64.Vec3 { return b.Orientation.Rotate(LocalUp) }

// Right returns the world-space right axis.
func (b *Body) Right() mgl64.Vec3 { return b.Orientation.Rotate(LocalRight) }

// ToWorld rotates a body-space direction into world space.
func (b *Body) ToWorld(v mgl64.Vec3) mgl64.Vec3 { return b.Orientation.Rotate(v) }

// ToLocal rotates a world-space direction into body space.
func (b *Body) ToLocal(v mgl64.Vec3) mgl64.Vec3 { return b.Orientation.Conjugate().Rotate(v) }

// WorldPoint maps a body-space point to world space.
func (b *Body) WorldPoint(local mgl64.Vec3) mgl64.Vec3 {
	return b.Position.Add(b.ToWorld(local))
}

// PointVelocity is the world velocity of a world-space point rigidly
// attached to the body.
func (b *Body) PointVelocity(world mgl64.Vec3) mgl64.Vec3 {
	return b.Velocity.Add(b.AngularVelocity.Cross(world.Sub(b.Position)))
}

// Speed is the magnitude of the linear velocity.
func (b *Body) Speed() float64 { return b.Velocity.Len() }

// SetPose places the body and clears all motion.
func (b *Body) SetPose(position mgl64.Vec3, orientation mgl64.Quat) {
	b.Position = position
	b.Orientation = normalizeOr(orientation, mgl64.QuatIdent())
	b.Velocity = mgl64.Vec3{}
	b.AngularVelocity = mgl64.Vec3{}
}

// Heading returns the yaw angle of the forward axis about world up, measured
// from +Z toward +X.
func (b *Body) Heading() float64 {
	f := b.Forward()
	return math.Atan2(f.X(), f.Z())
}

// HeadingQuat returns the orientation for a yaw angle as reported by Heading.
func HeadingQuat(heading float64) mgl64.Quat {
	return mgl64.QuatRotate(heading, LocalUp)
}

func normalizeOr(q, fallback mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if !(l > 1e-12) || math.IsInf(l, 0) {
		return fallback
	}
	return q.Scale(1 / l)
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func clampLen(v mgl64.Vec3, max float64) mgl64.Vec3 {
	if max <= 0 {
		return v
	}
	l := v.Len()
	if l > max {
		return v.Mul(max / l)
	}
	return v
}
