package vehicle

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// WheelIndex identifies one of the four wheels.
type WheelIndex int

const (
	FL WheelIndex = iota
	FR
	RL
	RR
)

// NumWheels is the fixed wheel count.
const NumWheels = 4

// AllWheels lists every wheel in index order.
var AllWheels = [NumWheels]WheelIndex{FL, FR, RL, RR}

func (w WheelIndex) IsFront() bool { return w == FL || w == FR }
func (w WheelIndex) IsRear() bool  { return w == RL || w == RR }
func (w WheelIndex) IsLeft() bool  { return w == FL || w == RL }

func (w WheelIndex) String() string {
	switch w {
	case FL:
		return "FL"
	case FR:
		return "FR"
	case RL:
		return "RL"
	case RR:
		return "RR"
	}
	return fmt.Sprintf("WheelIndex(%d)", int(w))
}

// MountOffset returns the wheel's suspension mount in body-local space.
// Local forward is +Z and local right is -X, so left wheels sit at +X.
func (s Spec) MountOffset(w WheelIndex) mgl64.Vec3 {
	x := s.Wheels.TrackWidth / 2
	if !w.IsLeft() {
		x = -x
	}
	z := s.Wheels.Wheelbase / 2
	if w.IsRear() {
		z = -z
	}
	return mgl64.Vec3{x, s.Wheels.MountHeight, z}
}

// IsDriven reports whether the drive layout sends torque to w.
func (s Spec) IsDriven(w WheelIndex) bool {
	switch s.Wheels.Drive {
	case DriveFWD:
		return w.IsFront()
	case DriveAWD:
		return true
	default:
		return w.IsRear()
	}
}

// DrivenCount returns the number of driven wheels.
func (s Spec) DrivenCount() int {
	n := 0
	for _, w := range AllWheels {
		if s.IsDriven(w) {
			n++
		}
	}
	return n
}
