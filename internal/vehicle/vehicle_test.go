package vehicle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets_Validate(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			s, err := Preset(name)
			require.NoError(t, err)
			require.NoError(t, s.Validate())
			assert.Equal(t, s, s.WithDefaults(), "presets are already complete")
		})
	}

	c, _ := Preset("compact")
	assert.Equal(t, 950.0, c.Body.Mass)

	_, err := Preset("tank")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Spec)
	}{
		{"mass", func(s *Spec) { s.Body.Mass = 0 }},
		{"width", func(s *Spec) { s.Body.Width = -1 }},
		{"radius", func(s *Spec) { s.Wheels.Radius = 0 }},
		{"track", func(s *Spec) { s.Wheels.TrackWidth = 0 }},
		{"wheelbase", func(s *Spec) { s.Wheels.Wheelbase = 0 }},
		{"stiffness", func(s *Spec) { s.Suspension.Stiffness = 0 }},
		{"travel", func(s *Spec) { s.Suspension.Travel = 0 }},
		{"drive", func(s *Spec) { s.Wheels.Drive = "6wd" }},
		{"redline", func(s *Spec) { s.Engine.RedlineRPM = s.Engine.IdleRPM }},
		{"no forward gear", func(s *Spec) { s.Transmission.Gears = []float64{-3, 0} }},
		{"neutral not zero", func(s *Spec) { s.Transmission.Gears = []float64{-3, 1, 3} }},
		{"reverse positive", func(s *Spec) { s.Transmission.Gears = []float64{3, 0, 3} }},
		{"unsorted curve", func(s *Spec) { s.Engine.TorqueCurve = [][2]float64{{3000, 1}, {1000, 1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := Preset("compact")
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSpec)
		})
	}
}

func TestWithDefaults_FillsOnlyTuning(t *testing.T) {
	s := Spec{
		Body:       Body{Mass: 1000, Width: 1.8, Height: 1.4, Length: 4},
		Suspension: Suspension{RestLength: 0.3, Travel: 0.2, Stiffness: 40000},
		Wheels:     Wheels{Radius: 0.3, TrackWidth: 1.5, Wheelbase: 2.5},
	}
	d := s.WithDefaults()
	require.NoError(t, d.Validate())

	assert.Equal(t, DriveRWD, d.Wheels.Drive)
	assert.Greater(t, d.Suspension.Damping, 0.0)
	assert.Equal(t, 0.05, d.Limits.MaxStep)
	assert.InDelta(t, 0.49, d.Body.CGHeight, 1e-9)
	assert.Equal(t, 1000.0, d.Body.Mass)

	// the original is not modified
	assert.Zero(t, s.Suspension.Damping)
	assert.Nil(t, s.Transmission.Gears)

	assert.ErrorIs(t, Spec{}.WithDefaults().Validate(), ErrInvalidSpec)
}

func TestClone_DeepCopiesTables(t *testing.T) {
	s, _ := Preset("compact")
	c := s.Clone()
	c.Transmission.Gears[2] = 99
	c.Engine.TorqueCurve[0][1] = 99
	assert.NotEqual(t, 99.0, s.Transmission.Gears[2])
	assert.NotEqual(t, 99.0, s.Engine.TorqueCurve[0][1])
}

func TestWheelIndex(t *testing.T) {
	assert.True(t, FL.IsFront())
	assert.True(t, FR.IsFront())
	assert.True(t, RL.IsRear())
	assert.True(t, RR.IsRear())
	assert.True(t, FL.IsLeft())
	assert.False(t, RR.IsLeft())
	assert.Equal(t, "RL", RL.String())
	assert.Equal(t, "WheelIndex(7)", WheelIndex(7).String())
	assert.Equal(t, [NumWheels]WheelIndex{FL, FR, RL, RR}, AllWheels)

	var s Spec
	s.Wheels = Wheels{Drive: DriveAWD}
	assert.Equal(t, 4, s.DrivenCount())
}

func TestMountOffset(t *testing.T) {
	s, _ := Preset("compact")
	fl := s.MountOffset(FL)
	rr := s.MountOffset(RR)
	assert.Equal(t, 0.75, fl.X())
	assert.Equal(t, 1.2, fl.Z())
	assert.Equal(t, -0.75, rr.X())
	assert.Equal(t, -1.2, rr.Z())
}

func TestIsDriven(t *testing.T) {
	s, _ := Preset("compact")
	s.Wheels.Drive = DriveFWD
	assert.True(t, s.IsDriven(FL))
	assert.False(t, s.IsDriven(RL))
	assert.Equal(t, 2, s.DrivenCount())

	s.Wheels.Drive = DriveRWD
	assert.False(t, s.IsDriven(FR))
	assert.True(t, s.IsDriven(RR))

	s.Wheels.Drive = DriveAWD
	assert.Equal(t, 4, s.DrivenCount())
}

func TestParse_OverlaysPreset(t *testing.T) {
	s, err := Parse([]byte(`{"body":{"mass":1100},"wheels":{"drive":"awd"}}`), "compact")
	require.NoError(t, err)
	assert.Equal(t, 1100.0, s.Body.Mass)
	assert.Equal(t, 1.7, s.Body.Width)
	assert.Equal(t, DriveAWD, s.Wheels.Drive)

	_, err = Parse([]byte(`{"body":{"mass":0}}`), "compact")
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = Parse([]byte(`{`), "")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rally.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
preset: compact
name: rally
body:
  mass: 1200
transmission:
  gears: [-3.0, 0, 3.0, 1.8]
`), 0o644))

	s, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "rally", s.Name)
	assert.Equal(t, 1200.0, s.Body.Mass)
	assert.Equal(t, 0.3, s.Wheels.Radius, "unset fields come from the preset")
	assert.Equal(t, []float64{-3.0, 0, 3.0, 1.8}, s.Transmission.Gears)

	jsonPath := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"body": {"mass": 800, "width": 1.6, "height": 1.4, "length": 3.5},
		"suspension": {"rest_length": 0.3, "travel": 0.2, "stiffness": 30000},
		"wheels": {"radius": 0.28, "track_width": 1.4, "wheelbase": 2.3, "drive": "fwd"}
	}`), 0o644))

	s, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 800.0, s.Body.Mass)
	assert.Equal(t, DriveFWD, s.Wheels.Drive)
	assert.NotEmpty(t, s.Transmission.Gears)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
