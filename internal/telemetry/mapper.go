package telemetry

import (
	"time"

	"github.com/nerrad567/venuewatch-core/internal/device"
)

// Reading is one measurement of an update with its derived alert flag.
type Reading struct {
	Metric   device.Metric
	Value    float64
	Flag     string
	Alerting bool
}

// Update is the partial state change derived from one frame.
type Update struct {
	DeviceID   string
	DeviceType device.DeviceType
	VenueID    string

	// Readings are in schema order and only cover measurements the
	// frame carried.
	Readings []Reading

	// Fields is the sparse patch merged into the stored state. It always
	// contains lastUpdateTime.
	Fields device.Patch

	At     time.Time
	Source string
}

// Map derives the state update for a device of type t from env.
//
// Only measurements in t's schema that env carries are written. Each
// written measurement also writes its alert flag, true only when the
// matching signal equals the trigger token exactly. lastUpdateTime is
// always written, formatted in now's location.
//
// ok is false when t has no schema; the frame is then skipped.
func Map(env Envelope, t device.DeviceType, now time.Time) (u Update, ok bool) {
	schema, ok := t.Schema()
	if !ok {
		return Update{}, false
	}

	u = Update{
		DeviceID:   env.DeviceID,
		DeviceType: t,
		Fields:     make(device.Patch, 2*len(schema)+1),
		At:         now,
	}

	for _, m := range schema {
		v, present := env.Value(m.Metric)
		if !present {
			continue
		}
		alerting := m.Triggered(env.Signals[m.Signal])

		u.Readings = append(u.Readings, Reading{
			Metric:   m.Metric,
			Value:    v,
			Flag:     m.Flag,
			Alerting: alerting,
		})
		u.Fields[string(m.Metric)] = v
		u.Fields[m.Flag] = alerting
	}

	u.Fields[device.FieldLastUpdateTime] = now.Format(time.RFC3339)
	return u, true
}
