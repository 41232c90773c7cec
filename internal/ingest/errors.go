package ingest

import "errors"

// ErrHubClosed is returned when a session is registered after the hub
// has shut down.
var ErrHubClosed = errors.New("ingest: hub closed")
