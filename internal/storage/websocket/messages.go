package websocket

import "encoding/json"

// Message types sent to the streaming server.
const (
	TypeStartRun     = "start_run"
	TypeEndRun       = "end_run"
	TypeAddVehicle   = "add_vehicle"
	TypeVehicleState = "vehicle_state"
	TypeEvent        = "event"
)

// Envelope wraps every message on the wire. Seq increases by one per
// message over the backend's lifetime, so a server can discard frames it
// already received before a reconnect.
type Envelope struct {
	Type    string          `json:"type"`
	Run     uint            `json:"run,omitempty"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage acknowledges a run boundary. It echoes the boundary's run and
// sequence number; acks that match neither are stale and ignored.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
	Run  uint   `json:"run"`
	Seq  uint64 `json:"seq"`
}
