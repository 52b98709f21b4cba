// Package drivetrain simulates engine RPM, the gearbox and the drive force
// delivered to the contact patches.
package drivetrain

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cxd309/vds-engine/internal/vehicle"
)

// Gear slots in every gear table.
const (
	GearReverse = 0
	GearNeutral = 1
	GearFirst   = 2
)

// throttleBias is the share of the rev range throttle adds on top of the
// wheel-driven RPM.
const throttleBias = 0.1

// shiftCooldown keeps automatic mode from hunting between gears.
const shiftCooldown = 0.5 // seconds

// ErrGearOutOfRange is returned by SetGear for an index outside the table.
var ErrGearOutOfRange = errors.New("gear out of range")

// State is the mutable drivetrain state.
type State struct {
	RPM                        float64 `json:"rpm"`
	Gear                       int     `json:"gear"`
	LongitudinalWeightTransfer float64 `json:"longitudinal_weight_transfer"` // N onto the front axle
}

// Drivetrain owns the engine and gearbox of one vehicle.
type Drivetrain struct {
	engine vehicle.Engine
	trans  vehicle.Transmission
	State

	cooldown float64
}

// New starts in first gear at idle.
func New(s vehicle.Spec) *Drivetrain {
	return &Drivetrain{
		engine: s.Engine,
		trans:  s.Transmission,
		State:  State{RPM: s.Engine.IdleRPM, Gear: GearFirst},
	}
}

// Ratio returns the current gear ratio; 0 in neutral, negative in reverse.
func (d *Drivetrain) Ratio() float64 {
	if d.Gear < 0 || d.Gear >= len(d.trans.Gears) {
		return 0
	}
	return d.trans.Gears[d.Gear]
}

// Update advances RPM one step. drivenSpin is the mean absolute spin of the
// driven wheels in rad/s; grounded is the number of wheels in contact.
func (d *Drivetrain) Update(dt, throttle, drivenSpin float64, grounded int) {
	throttle = math.Max(0, math.Min(throttle, 1))
	idle, red := d.engine.IdleRPM, d.engine.RedlineRPM

	var target float64
	ratio := d.Ratio()
	if grounded >= 2 && ratio != 0 {
		wheelRPM := math.Abs(drivenSpin) * 60 / (2 * math.Pi)
		target = wheelRPM*math.Abs(ratio)*d.trans.FinalDrive + throttle*throttleBias*(red-idle)
	} else {
		target = idle + throttle*(red-idle)
	}

	if dt > 0 {
		k := math.Min(1, d.engine.RPMResponse*dt)
		if d.engine.RPMResponse <= 0 {
			k = 1
		}
		d.RPM += (target - d.RPM) * k
	}
	d.RPM = clampRPM(d.RPM, idle, red)

	if d.trans.Automatic {
		d.autoShift(dt, throttle, grounded)
	}
}

func (d *Drivetrain) autoShift(dt, throttle float64, grounded int) {
	if d.cooldown > 0 {
		d.cooldown -= dt
		return
	}
	if d.Gear < GearFirst || grounded < 2 {
		return
	}
	switch {
	case d.RPM >= d.trans.UpshiftRPM && throttle > 0 && d.Gear < len(d.trans.Gears)-1:
		d.Gear++
		d.cooldown = shiftCooldown
	case d.RPM <= d.trans.DownshiftRPM && d.Gear > GearFirst:
		d.Gear--
		d.cooldown = shiftCooldown
	}
}

func clampRPM(rpm, idle, red float64) float64 {
	if math.IsNaN(rpm) {
		return idle
	}
	return math.Max(idle, math.Min(red, rpm))
}

// CurveFactor interpolates the torque curve at rpm. An empty curve is flat.
func (d *Drivetrain) CurveFactor(rpm float64) float64 {
	c := d.engine.TorqueCurve
	if len(c) == 0 {
		return 1
	}
	if rpm <= c[0][0] {
		return c[0][1]
	}
	for i := 1; i < len(c); i++ {
		if rpm <= c[i][0] {
			span := c[i][0] - c[i-1][0]
			if span <= 0 {
				return c[i][1]
			}
			t := (rpm - c[i-1][0]) / span
			return c[i-1][1] + (c[i][1]-c[i-1][1])*t
		}
	}
	return c[len(c)-1][1]
}

// Torque is the engine torque at the current RPM. The rev limiter cuts
// torque entirely at redline.
func (d *Drivetrain) Torque(throttle float64) float64 {
	throttle = math.Max(0, math.Min(throttle, 1))
	if d.RPM >= d.engine.RedlineRPM {
		return 0
	}
	return d.engine.MaxTorque * d.CurveFactor(d.RPM) * throttle
}

// DriveForce is the total force at the driven contact patches, signed by the
// gear direction. boost multiplies it.
func (d *Drivetrain) DriveForce(throttle, boost, wheelRadius float64) float64 {
	ratio := d.Ratio()
	if ratio == 0 || wheelRadius <= 0 {
		return 0
	}
	eff := d.trans.Efficiency
	if eff <= 0 {
		eff = 1
	}
	if boost <= 0 {
		boost = 1
	}
	return d.Torque(throttle) * ratio * d.trans.FinalDrive * eff / wheelRadius * boost
}

// ShiftUp moves one gear up the table. It reports whether the gear changed.
func (d *Drivetrain) ShiftUp() bool {
	if d.Gear >= len(d.trans.Gears)-1 {
		return false
	}
	d.Gear++
	d.cooldown = shiftCooldown
	return true
}

// ShiftDown moves one gear down the table, through neutral into reverse.
func (d *Drivetrain) ShiftDown() bool {
	if d.Gear <= GearReverse {
		return false
	}
	d.Gear--
	d.cooldown = shiftCooldown
	return true
}

// SetGear selects a gear by table index.
func (d *Drivetrain) SetGear(gear int) error {
	if gear < 0 || gear >= len(d.trans.Gears) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrGearOutOfRange, gear, len(d.trans.Gears)-1)
	}
	d.Gear = gear
	d.cooldown = shiftCooldown
	return nil
}

// GearLabel renders a gear index for display: R, N, 1, 2, ...
func GearLabel(gear int) string {
	switch {
	case gear == GearReverse:
		return "R"
	case gear == GearNeutral:
		return "N"
	case gear >= GearFirst:
		return strconv.Itoa(gear - 1)
	}
	return "?"
}
