package tire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// LateralCurve maps a slip angle (radians) and a peak force D to a lateral
// force magnitude in the direction of the slip. Implementations are
// odd functions of slip and never exceed |peak|.
type LateralCurve interface {
	Force(slip, peak float64) float64
}

// Curve discriminator strings for DecodeCurve.
const (
	PacejkaModelName = "pacejka"
	LinearModelName  = "linear"
)

// ErrUnknownCurve is returned by DecodeCurve for an unrecognised "model".
var ErrUnknownCurve = errors.New("unknown tire curve")

// Pacejka is the simplified magic formula
//
//	F = D·sin(C·atan(B·α − E·(B·α − atan(B·α))))
//
// B, C and E are opaque tuning values.
//
// JSON discriminator: "model": "pacejka"
type Pacejka struct {
	B float64 `json:"b"`
	C float64 `json:"c"`
	E float64 `json:"e"`
}

func (p Pacejka) Force(slip, peak float64) float64 {
	bx := p.B * slip
	return peak * math.Sin(p.C*math.Atan(bx-p.E*(bx-math.Atan(bx))))
}

// PeakSlip returns the slip angle at which Force peaks, found by bisection
// on the inner argument. It returns +Inf when the curve never reaches its
// peak (C ≤ 1).
func (p Pacejka) PeakSlip() float64 {
	if p.C <= 1 || p.B <= 0 {
		return math.Inf(1)
	}
	target := math.Tan(math.Pi / (2 * p.C))
	inner := func(a float64) float64 {
		bx := p.B * a
		return bx - p.E*(bx-math.Atan(bx))
	}
	lo, hi := 0.0, math.Pi/2
	if inner(hi) < target {
		return math.Inf(1)
	}
	for range 60 {
		mid := (lo + hi) / 2
		if inner(mid) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Linear is a saturating linear curve, useful for arcade tuning and tests.
//
// JSON discriminator: "model": "linear"
type Linear struct {
	Stiffness float64 `json:"stiffness"` // peak fractions per radian
}

func (l Linear) Force(slip, peak float64) float64 {
	f := peak * l.Stiffness * slip
	a := math.Abs(peak)
	return math.Max(-a, math.Min(a, f))
}

type curveDisc struct {
	Model string `json:"model"`
}

// DecodeCurve builds a LateralCurve from a JSON object with a "model"
// discriminator. An empty document returns fallback.
func DecodeCurve(raw json.RawMessage, fallback LateralCurve) (LateralCurve, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback, nil
	}
	var disc curveDisc
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("reading tire curve discriminator: %w", err)
	}
	switch disc.Model {
	case PacejkaModelName:
		var p Pacejka
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing pacejka curve: %w", err)
		}
		return p, nil
	case LinearModelName:
		var l Linear
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("parsing linear curve: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCurve, disc.Model)
	}
}
