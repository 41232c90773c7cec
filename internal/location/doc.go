// Package location provides the organization and venue hierarchy.
//
// Organizations contain Venues; venues contain the devices registered in
// the device package. Venue order within an organization is stable:
// by sort_order, then name. Alert summaries and venue listings both rely
// on that order.
//
// Organizations and venues are provisioned from the seed section of the
// configuration at startup (see SQLiteRepository.Seed). The API exposes
// them read-only.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines.
package location
