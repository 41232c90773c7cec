package alerts

import "errors"

// ErrNoVenues is returned when an organization has no venues, including
// when the organization itself does not exist.
var ErrNoVenues = errors.New("alerts: no venues found")
