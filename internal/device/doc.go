// Package device is the registry of environmental sensor devices.
//
// A device belongs to one venue and has one of four closed types (TMD,
// OMD, AQIMD, GLMD). The type decides which measurements and alert flags
// the device reports; Schema exposes that mapping to the telemetry path.
//
// Registration, validation and API key derivation live in the Registry.
// Telemetry never rewrites a device: it patches the JSON state document
// in place through Repository.PatchState.
//
//	                 ┌─────────────┐
//	HTTP CRUD ──────▶│  Registry   │──▶ Repository (SQLite devices table)
//	ingest Lookup ──▶│  (cache)    │
//	                 └─────────────┘
//	telemetry Apply ──────────────────▶ Repository.PatchState (json_patch)
package device
