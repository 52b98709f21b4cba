// Package kinematics defines the SpeedEnvelope a route follower plans its
// target speed with, along with built-in implementations.
//
// The envelope is a planning model only. Actual motion always comes from the
// vehicle dynamics; the follower uses the envelope to decide when to lift
// off and brake ahead of a lower limit, a corner or the final stop.
package kinematics

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownModel is returned by Decode for an unregistered discriminator.
var ErrUnknownModel = errors.New("unknown kinematics model")

// SpeedEnvelope is the planning contract. Distances are metres, speeds m/s.
type SpeedEnvelope interface {
	// VMax is the highest speed the follower will ever ask for.
	VMax() float64

	// BrakingDistance is the distance needed to stop from v.
	BrakingDistance(v float64) float64

	// BrakingDistanceTo is the distance needed to slow from v to targetV.
	// Returns 0 if v ≤ targetV.
	BrakingDistanceTo(v, targetV float64) float64

	// MaxEntrySpeed is the highest speed from which targetV can still be
	// reached within dist metres.
	MaxEntrySpeed(dist, targetV float64) float64

	// CornerSpeed is the highest speed through a bend of the given radius.
	CornerSpeed(radius float64) float64
}

type modelDisc struct {
	Model string `json:"model"`
}

// Decode resolves the "model" discriminator of raw. An empty message yields
// the default envelope.
//
// Supported models:
//   - "constant": fixed a_dcc and a_lat.
func Decode(raw json.RawMessage) (SpeedEnvelope, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return DefaultConstant(), nil
	}
	var disc modelDisc
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("reading kinematics model discriminator: %w", err)
	}
	switch disc.Model {
	case ConstantModelName, "":
		c := DefaultConstant()
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parsing constant kinematics: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, disc.Model)
	}
}
