package location

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxNameLength = 100
	maxIDLength   = 64
	idPattern     = `^[A-Za-z0-9][A-Za-z0-9_-]*$`
)

var idRegex = regexp.MustCompile(idPattern)

// ValidateName checks if an organization or venue name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateID checks an organization or venue identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidID, maxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: id must be alphanumeric with hyphens or underscores", ErrInvalidID)
	}
	return nil
}

// ValidateOrganization validates an Organization before persistence.
func ValidateOrganization(o *Organization) error {
	if err := ValidateID(o.ID); err != nil {
		return err
	}
	return ValidateName(o.Name)
}

// ValidateVenue validates a Venue before persistence.
func ValidateVenue(v *Venue) error {
	if err := ValidateID(v.ID); err != nil {
		return err
	}
	if err := ValidateID(v.OrganizationID); err != nil {
		return fmt.Errorf("organization: %w", err)
	}
	return ValidateName(v.Name)
}
