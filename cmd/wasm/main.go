//go:build js && wasm

// Command wasm exposes the vehicle dynamics engine to the browser via
// WebAssembly. After loading, it registers two global JavaScript functions:
//
//	runSimulation(jsonString) -> jsonString
//	listPresets() -> jsonString
//
// The simulation input and output are JSON-encoded SimulationInput and
// SimulationLog respectively, matching the contract used by the CLI.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/cxd309/vds-engine/internal/engine"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("listPresets", js.FuncOf(listPresets))
	select {} // keep the WASM module alive until the page is closed
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := engine.RunJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}

func listPresets(_ js.Value, _ []js.Value) any {
	presets := make(map[string]vehicle.Spec)
	for _, name := range vehicle.PresetNames() {
		s, err := vehicle.Preset(name)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		presets[name] = s
	}
	out, err := json.Marshal(presets)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(out)
}
