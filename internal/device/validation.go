package device

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names, the names API clients send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NormalizeConditions rewrites legacy metric spellings in place.
func NormalizeConditions(conditions []Condition) {
	for i := range conditions {
		conditions[i].Type = conditions[i].Type.Normalize()
		conditions[i].Operator = strings.TrimSpace(conditions[i].Operator)
	}
}

// Validate checks a device before it is persisted.
//
// Required fields and operator values are checked by struct tags. The
// remaining rules depend on the device type: every condition must name a
// metric the type reports, and every reported metric needs exactly one
// condition. With one condition per metric the API key's segments cannot
// be shifted between deviceId and conditions to forge another device's key.
func Validate(d *Device) error {
	if err := validate.Struct(d); err != nil {
		return translateValidationError(err)
	}

	if !d.DeviceType.IsValid() {
		names := make([]string, 0, len(AllDeviceTypes()))
		for _, t := range AllDeviceTypes() {
			names = append(names, string(t))
		}
		return fmt.Errorf("%w: deviceType must be one of %s", ErrInvalidDeviceType, strings.Join(names, ", "))
	}

	seen := make(map[Metric]bool, len(d.Conditions))
	for i, c := range d.Conditions {
		if !c.Type.IsValid() {
			return fmt.Errorf("%w: conditions[%d].type %q is not a known metric", ErrInvalidCondition, i, c.Type)
		}
		if !d.DeviceType.Reports(c.Type) {
			return fmt.Errorf("%w: %s devices do not measure %s", ErrInvalidCondition, d.DeviceType, c.Type)
		}
		if seen[c.Type] {
			return fmt.Errorf("%w: conditions[%d].type %q is repeated", ErrInvalidCondition, i, c.Type)
		}
		seen[c.Type] = true
	}

	var missing []string
	for _, m := range d.DeviceType.Metrics() {
		if !seen[m] {
			missing = append(missing, string(m))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s devices require conditions for: %s",
			ErrInvalidCondition, d.DeviceType, strings.Join(missing, ", "))
	}

	return nil
}

// translateValidationError turns the first validator failure into a
// client-facing message wrapped in the matching sentinel.
func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}

	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest // drop the root struct name
	}

	sentinel := ErrInvalidDevice
	if strings.HasPrefix(field, "conditions[") {
		sentinel = ErrInvalidCondition
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", sentinel, field)
	case "min":
		return fmt.Errorf("%w: %s must contain at least %s entry", sentinel, field, fe.Param())
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", sentinel, field, fe.Param())
	case "oneof":
		return fmt.Errorf("%w: %s must be one of %s", sentinel, field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Errorf("%w: %s failed %s", sentinel, field, fe.Tag())
	}
}
