package vehicle

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"
)

// Parse decodes a JSON spec, fills defaults and validates it.
// When base names a preset, the document is overlaid on that preset so a
// scenario can override a handful of fields.
func Parse(data []byte, base string) (Spec, error) {
	var s Spec
	if base != "" {
		p, err := Preset(base)
		if err != nil {
			return Spec{}, err
		}
		s = p
	}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &s); err != nil {
			return Spec{}, fmt.Errorf("parsing vehicle spec: %w", err)
		}
	}
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// LoadFile reads a spec from a JSON, YAML or TOML file. The format follows the
// file extension.
func LoadFile(path string) (Spec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Spec{}, fmt.Errorf("reading vehicle spec %s: %w", path, err)
	}

	var s Spec
	if base := v.GetString("preset"); base != "" {
		p, err := Preset(base)
		if err != nil {
			return Spec{}, err
		}
		s = p
	}
	// mapstructure merges into existing slices element by element; a shorter
	// table in the file must replace the preset's, not patch it.
	if v.IsSet("transmission.gears") {
		s.Transmission.Gears = nil
	}
	if v.IsSet("engine.torque_curve") {
		s.Engine.TorqueCurve = nil
	}
	if err := v.Unmarshal(&s); err != nil {
		return Spec{}, fmt.Errorf("decoding vehicle spec %s: %w", path, err)
	}

	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
