// Package api provides the HTTP API of VenueWatch Core.
//
// Routes live under /api/v1: per-organization alert summaries, read-only
// organizations and venues, device registration, and device telemetry
// history. The device ingestion websocket is mounted on the same listener
// at the configured ingest path.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Errors are returned as {"error":{"code":"...","message":"..."}}.
package api
