package terrain

import (
	"encoding/json"
	"fmt"
)

// modelDisc is the minimum JSON structure needed to read the model discriminator.
type modelDisc struct {
	Model string `json:"model"`
}

// Decode builds a Provider from a JSON object carrying a "model"
// discriminator. The remaining keys are forwarded to the concrete model.
// An empty document decodes to a flat plane at height zero.
//
// Supported models: "flat", "slope", "wave", "grid".
func Decode(raw json.RawMessage) (Provider, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Flat{}, nil
	}

	var disc modelDisc
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("reading terrain model discriminator: %w", err)
	}

	switch disc.Model {
	case FlatModelName, "":
		var f Flat
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parsing flat terrain: %w", err)
		}
		return f, nil
	case SlopeModelName:
		var s Slope
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parsing slope terrain: %w", err)
		}
		return s, nil
	case WaveModelName:
		var w Wave
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("parsing wave terrain: %w", err)
		}
		return w, nil
	case GridModelName:
		var g Grid
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("parsing grid terrain: %w", err)
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		return &g, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, disc.Model)
	}
}
