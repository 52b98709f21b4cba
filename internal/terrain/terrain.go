// Package terrain defines the height/normal query contract the vehicle
// dynamics consume, along with a handful of built-in heightfields.
//
// Providers are synchronous and side-effect free. Surface and gravity lookups
// are optional: a provider that does not implement SurfaceProvider or
// GravityProvider gets the defaults below.
package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultGravity is used when a provider does not implement GravityProvider.
const DefaultGravity = 9.81 // m/s²

// Up is the world up axis and the fallback normal for degenerate queries.
var Up = mgl64.Vec3{0, 1, 0}

// Surface describes the material under a point.
type Surface struct {
	FrictionMultiplier float64 `json:"friction_multiplier"`
	DragMultiplier     float64 `json:"drag_multiplier"`
}

// DefaultSurface is plain tarmac: no grip or drag modification.
var DefaultSurface = Surface{FrictionMultiplier: 1, DragMultiplier: 1}

// Provider is the minimal terrain contract.
type Provider interface {
	// HeightAt returns the ground height (world Y) at world (x, z).
	HeightAt(x, z float64) float64

	// NormalAt returns the unit ground normal at world (x, z).
	NormalAt(x, z float64) mgl64.Vec3
}

// SurfaceProvider is implemented by terrains with varying materials.
type SurfaceProvider interface {
	SurfaceAt(x, z float64) Surface
}

// GravityProvider is implemented by terrains that override gravity.
type GravityProvider interface {
	Gravity() float64
}

// SurfaceAt resolves the surface under (x, z), falling back to DefaultSurface.
func SurfaceAt(p Provider, x, z float64) Surface {
	sp, ok := p.(SurfaceProvider)
	if !ok {
		return DefaultSurface
	}
	return sanitizeSurface(sp.SurfaceAt(x, z))
}

// Gravity resolves the gravitational acceleration for p, falling back to
// DefaultGravity for providers without an override or with a non-positive one.
func Gravity(p Provider) float64 {
	gp, ok := p.(GravityProvider)
	if !ok {
		return DefaultGravity
	}
	g := gp.Gravity()
	if !(g > 0) || math.IsInf(g, 0) {
		return DefaultGravity
	}
	return g
}

// sanitizeSurface replaces unset or invalid multipliers with 1.
func sanitizeSurface(s Surface) Surface {
	if !(s.FrictionMultiplier > 0) {
		s.FrictionMultiplier = 1
	}
	if !(s.DragMultiplier > 0) {
		s.DragMultiplier = 1
	}
	return s
}

// NumericNormal derives a unit normal from a height function by central
// differences with half-step h. Degenerate results fall back to Up.
func NumericNormal(height func(x, z float64) float64, x, z, h float64) mgl64.Vec3 {
	if h <= 0 {
		h = 0.05
	}
	dhdx := (height(x+h, z) - height(x-h, z)) / (2 * h)
	dhdz := (height(x, z+h) - height(x, z-h)) / (2 * h)
	return normalFromGradient(dhdx, dhdz)
}

// normalFromGradient builds the normal of the surface y = f(x, z) from its
// partial derivatives.
func normalFromGradient(dhdx, dhdz float64) mgl64.Vec3 {
	n := mgl64.Vec3{-dhdx, 1, -dhdz}
	l := n.Len()
	if l < 1e-9 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Up
	}
	return n.Mul(1 / l)
}
