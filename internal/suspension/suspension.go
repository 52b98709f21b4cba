// Package suspension evaluates one wheel's spring-damper against the terrain.
//
// Distances are measured along the chassis up axis, not world Y, so the
// suspension keeps working on slopes and with the body rolled.
package suspension

import (
	"math"

	"github.com/cxd309/vds-engine/internal/terrain"
	"github.com/cxd309/vds-engine/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
)

// minUpDotNormal is the smallest cosine between the chassis up axis and the
// ground normal for which the ray test is meaningful. Below it the car is on
// its side or upside down and no wheel can touch.
const minUpDotNormal = 0.2

// Params are the per-corner constants.
type Params struct {
	WheelRadius        float64
	RestLength         float64
	Travel             float64
	Stiffness          float64
	Damping            float64
	ReboundRatio       float64
	BumpStiffnessScale float64
	BumpDampingScale   float64
	MaxForce           float64 // N; 0 = unbounded
}

// ParamsFromSpec derives the corner constants from a validated spec.
func ParamsFromSpec(s vehicle.Spec, gravity float64) Params {
	return Params{
		WheelRadius:        s.Wheels.Radius,
		RestLength:         s.Suspension.RestLength,
		Travel:             s.Suspension.Travel,
		Stiffness:          s.Suspension.Stiffness,
		Damping:            s.Suspension.Damping,
		ReboundRatio:       s.Suspension.ReboundRatio,
		BumpStiffnessScale: s.Suspension.BumpStiffnessScale,
		BumpDampingScale:   s.Suspension.BumpDampingScale,
		MaxForce:           s.Suspension.MaxForceScale * s.StaticCornerLoad(gravity),
	}
}

// Input is the per-step geometry for one wheel, all in world space.
type Input struct {
	Mount         mgl64.Vec3
	Up            mgl64.Vec3 // chassis up axis, unit
	MountVelocity mgl64.Vec3
	BodyCenter    mgl64.Vec3
	Terrain       terrain.Provider
}

// Result is the evaluated corner.
type Result struct {
	Grounded        bool
	Distance        float64 // mount to ground along -Up
	Compression     float64 // metres, 0 when not grounded
	Ratio           float64 // Compression / Travel, clamped to [0, 1]
	ClosingVelocity float64 // m/s, positive while compressing
	Load            float64 // N, the scalar suspension force
	Force           mgl64.Vec3
	Torque          mgl64.Vec3 // about BodyCenter
	Contact         mgl64.Vec3
	Normal          mgl64.Vec3
	Surface         terrain.Surface
	BumpStop        bool
	BumpCancel      float64 // fraction of downward velocity to cancel, [0, 1]
}

// Evaluate computes the corner's contact state and force.
func Evaluate(p Params, in Input) Result {
	mx, mz := in.Mount.X(), in.Mount.Z()
	h := in.Terrain.HeightAt(mx, mz)
	n := in.Terrain.NormalAt(mx, mz)

	res := Result{Normal: n, Distance: math.Inf(1)}
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return res
	}

	nu := n.Dot(in.Up)
	if nu < minUpDotNormal {
		return res
	}

	// ray from the mount along -Up against the tangent plane through the
	// ground point under the mount
	ground := mgl64.Vec3{mx, h, mz}
	dist := n.Dot(in.Mount.Sub(ground)) / nu
	res.Distance = dist
	res.Contact = in.Mount.Sub(in.Up.Mul(dist))

	compression := p.WheelRadius + p.RestLength - dist
	if compression < 0 || compression > p.RestLength+p.Travel {
		return res
	}

	res.Grounded = true
	res.Surface = terrain.SurfaceAt(in.Terrain, mx, mz)
	res.Compression = compression
	if p.Travel > 0 {
		res.Ratio = math.Min(compression/p.Travel, 1)
	}

	closing := -in.MountVelocity.Dot(in.Up)
	res.ClosingVelocity = closing

	force := p.Stiffness * math.Min(compression, p.Travel)
	if closing > 0 {
		force += p.Damping * closing
	} else {
		force += p.Damping * p.ReboundRatio * closing
	}

	if over := compression - p.Travel; over > 0 {
		res.BumpStop = true
		force += p.Stiffness * p.BumpStiffnessScale * over
		if closing > 0 {
			force += p.Damping * p.BumpDampingScale * closing
		}
		if p.Travel > 0 {
			res.BumpCancel = math.Min(over/p.Travel, 1) * 0.5
		}
	}

	if force < 0 {
		force = 0
	}
	if p.MaxForce > 0 && force > p.MaxForce {
		force = p.MaxForce
	}

	res.Load = force
	res.Force = in.Up.Mul(force)
	res.Torque = in.Mount.Sub(in.BodyCenter).Cross(res.Force)
	return res
}
