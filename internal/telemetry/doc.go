// Package telemetry turns raw device frames into state updates.
//
// A frame flows through four steps:
//
//	Decode  frame bytes  -> Envelope   (tolerant JSON parsing)
//	Map     Envelope     -> Update     (per device type schema)
//	Apply   Update       -> store      (sparse json_patch merge)
//	Sinks   Update       -> history, InfluxDB, MQTT
//
// Processor ties the steps together for a single frame and reports an
// Outcome. It is shared by the websocket ingest sessions and the MQTT
// ingress bridge. Nothing on this path is ever reported back to the
// device: malformed frames, unknown devices and store failures are
// logged and dropped.
//
// # Thread Safety
//
// Processor and Applier are safe for concurrent use. Ordering of frames
// from one device is the caller's concern.
package telemetry
