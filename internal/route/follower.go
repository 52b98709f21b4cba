package route

import (
	"math"

	"github.com/cxd309/vds-engine/internal/kinematics"
)

// FollowerConfig tunes the pure-pursuit follower. Zero fields take defaults.
type FollowerConfig struct {
	Lookahead     float64 `json:"lookahead"`      // minimum look-ahead, metres
	LookaheadTime float64 `json:"lookahead_time"` // seconds of travel added to the look-ahead
	SpeedGain     float64 `json:"speed_gain"`     // throttle per m/s below target
	BrakeGain     float64 `json:"brake_gain"`     // brake per m/s above target
	StopTolerance float64 `json:"stop_tolerance"` // metres from the end counted as arrived
}

func (c FollowerConfig) withDefaults() FollowerConfig {
	if c.Lookahead <= 0 {
		c.Lookahead = 6
	}
	if c.LookaheadTime <= 0 {
		c.LookaheadTime = 0.6
	}
	if c.SpeedGain <= 0 {
		c.SpeedGain = 0.3
	}
	if c.BrakeGain <= 0 {
		c.BrakeGain = 0.25
	}
	if c.StopTolerance <= 0 {
		c.StopTolerance = 2
	}
	return c
}

// State is what the follower reads from the vehicle each step.
type State struct {
	Position Coordinate
	Heading  float64 // yaw from +Z toward +X
	Speed    float64 // signed forward speed, m/s
}

// Command is the follower's output in driver-input units.
type Command struct {
	Throttle    float64
	Brake       float64
	Steer       float64 // [-1, 1], positive right
	TargetSpeed float64
	Done        bool
}

// Follower steers a vehicle along a Path with pure pursuit and holds a target
// speed planned from the envelope, the edge limits and the final stop.
type Follower struct {
	path      Path
	env       kinematics.SpeedEnvelope
	cfg       FollowerConfig
	wheelbase float64
	maxSteer  float64
	progress  float64
	done      bool
}

// NewFollower builds a follower for a vehicle with the given wheelbase and
// maximum steer angle (radians).
func NewFollower(p Path, env kinematics.SpeedEnvelope, cfg FollowerConfig, wheelbase, maxSteer float64) *Follower {
	if env == nil {
		env = kinematics.DefaultConstant()
	}
	return &Follower{
		path:      p,
		env:       env,
		cfg:       cfg.withDefaults(),
		wheelbase: wheelbase,
		maxSteer:  maxSteer,
	}
}

// Progress is the distance along the path last projected.
func (f *Follower) Progress() float64 { return f.progress }

// Remaining is the distance left to the end of the path.
func (f *Follower) Remaining() float64 { return math.Max(0, f.path.Length()-f.progress) }

// Done reports whether the vehicle has reached the end of the path.
func (f *Follower) Done() bool { return f.done }

// Control returns the command for the vehicle's current state.
func (f *Follower) Control(s State) Command {
	if f.done {
		return Command{Brake: 1, Done: true}
	}
	speed := math.Abs(s.Speed)
	lookahead := f.cfg.Lookahead + f.cfg.LookaheadTime*speed
	f.progress = f.path.Project(s.Position, f.progress, lookahead+speed)

	remaining := f.Remaining()
	if remaining <= f.cfg.StopTolerance {
		f.done = true
		return Command{Brake: 1, Done: true}
	}

	cmd := Command{
		Steer:       f.steer(s, f.path.PointAt(f.progress+lookahead)),
		TargetSpeed: f.targetSpeed(speed, lookahead, remaining),
	}
	errV := cmd.TargetSpeed - s.Speed
	cmd.Throttle = clamp01(errV * f.cfg.SpeedGain)
	if errV < 0 {
		cmd.Brake = clamp01(-errV * f.cfg.BrakeGain)
	}
	return cmd
}

// steer is the pure-pursuit steer input toward target.
func (f *Follower) steer(s State, target Coordinate) float64 {
	dx, dz := target.X-s.Position.X, target.Z-s.Position.Z
	d2 := dx*dx + dz*dz
	if d2 < 1e-6 || f.maxSteer <= 0 {
		return 0
	}
	sin, cos := math.Sincos(s.Heading)
	// right is local -X rotated by the heading
	lateral := dx*-cos + dz*sin
	curvature := 2 * lateral / d2
	angle := math.Atan(curvature * f.wheelbase)
	return math.Max(-1, math.Min(1, angle/f.maxSteer))
}

func (f *Follower) targetSpeed(speed, lookahead, remaining float64) float64 {
	v := math.Min(f.env.VMax(), f.path.LimitAt(f.progress))
	horizon := f.env.BrakingDistance(speed) + lookahead
	pts := f.path.Points
	for i := f.path.segmentAt(f.progress) + 1; i < len(pts)-1; i++ {
		d := pts[i].Dist - f.progress
		if d > horizon {
			break
		}
		entry := math.Min(pts[i].Limit, f.env.CornerSpeed(f.path.cornerRadius(i)))
		v = math.Min(v, f.env.MaxEntrySpeed(d, entry))
	}
	return math.Min(v, f.env.MaxEntrySpeed(remaining-f.cfg.StopTolerance/2, 0))
}

func clamp01(x float64) float64 { return math.Max(0, math.Min(1, x)) }
