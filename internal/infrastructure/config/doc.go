// Package config loads and validates VenueWatch Core configuration.
//
// Configuration is resolved in three layers: built-in defaults, the YAML
// file, then VENUEWATCH_* environment variables. Secrets such as the JWT
// secret and broker credentials should come from the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Ingest.Path)
package config
