// Package logging provides structured logging for VenueWatch Core.
//
// It wraps log/slog so every record carries the service name and build
// version. JSON is the production format; text is for local runs.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "./logs/venuewatch.log"
//	    max_size: 50     # megabytes before rotation
//
// Device API keys are credentials. Log a prefix at most.
package logging
