package location

import "errors"

var (
	// ErrOrganizationNotFound is returned when an organization ID does not exist.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrVenueNotFound is returned when a venue ID does not exist.
	ErrVenueNotFound = errors.New("venue not found")

	// ErrInvalidName is returned when a name is empty or too long.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidID is returned when an identifier is malformed.
	ErrInvalidID = errors.New("invalid id")
)
