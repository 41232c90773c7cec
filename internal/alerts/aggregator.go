package alerts

import (
	"context"
	"fmt"

	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/location"
)

// VenueSource lists the venues of an organization in display order.
// location.SQLiteRepository implements it.
type VenueSource interface {
	ListVenuesByOrganization(ctx context.Context, organizationID string) ([]location.Venue, error)
}

// DeviceSource lists the devices of a set of venues in registration
// order. device.SQLiteRepository implements it.
type DeviceSource interface {
	ListByVenues(ctx context.Context, venueIDs []string) ([]device.Device, error)
}

// Aggregator builds alert summaries.
//
// Reads are not transactional with ingestion, so a summary may mix
// states from either side of a concurrent update.
type Aggregator struct {
	venues  VenueSource
	devices DeviceSource
}

// NewAggregator creates an Aggregator.
func NewAggregator(venues VenueSource, devices DeviceSource) *Aggregator {
	return &Aggregator{venues: venues, devices: devices}
}

// Summarize returns the alert summary of an organization. Venues without
// devices are included. Returns ErrNoVenues when the organization has no
// venues.
func (a *Aggregator) Summarize(ctx context.Context, organizationID string) (*Summary, error) {
	venues, err := a.venues.ListVenuesByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	if len(venues) == 0 {
		return nil, ErrNoVenues
	}

	ids := make([]string, len(venues))
	for i, v := range venues {
		ids[i] = v.ID
	}

	devices, err := a.devices.ListByVenues(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	byVenue := make(map[string][]*device.Device, len(venues))
	for i := range devices {
		d := &devices[i]
		byVenue[d.VenueID] = append(byVenue[d.VenueID], d)
	}

	summary := &Summary{
		OrganizationID: organizationID,
		Venues:         make([]VenueSummary, 0, len(venues)),
	}
	for _, v := range venues {
		summary.Venues = append(summary.Venues, summarizeVenue(v, byVenue[v.ID]))
	}
	return summary, nil
}

func summarizeVenue(v location.Venue, devices []*device.Device) VenueSummary {
	s := VenueSummary{
		VenueID:                 v.ID,
		VenueName:               v.Name,
		TotalDevices:            len(devices),
		TemperatureAlertDevices: []DeviceDetail{},
		HumidityAlertDevices:    []DeviceDetail{},
		OdourAlertDevices:       []OdourDetail{},
		AQIAlertDevices:         []AQIDetail{},
		GLAlertDevices:          []GasDetail{},
	}

	for _, d := range devices {
		if d.AnyAlerting() {
			s.TotalAlerts++
		}

		base := DeviceDetail{
			DeviceID:    d.DeviceID,
			Temperature: d.Temperature,
			Humidity:    d.Humidity,
		}
		if d.Alerting(device.MetricTemperature) {
			s.TemperatureAlertDevices = append(s.TemperatureAlertDevices, base)
		}
		if d.Alerting(device.MetricHumidity) {
			s.HumidityAlertDevices = append(s.HumidityAlertDevices, base)
		}
		if d.Alerting(device.MetricOdour) {
			s.OdourAlertDevices = append(s.OdourAlertDevices, OdourDetail{DeviceDetail: base, Odour: d.Odour})
		}
		if d.Alerting(device.MetricAQI) {
			s.AQIAlertDevices = append(s.AQIAlertDevices, AQIDetail{DeviceDetail: base, AQI: d.AQI})
		}
		if d.Alerting(device.MetricGas) {
			s.GLAlertDevices = append(s.GLAlertDevices, GasDetail{DeviceDetail: base, Gas: d.Gas})
		}
	}

	s.TemperatureAlertCount = len(s.TemperatureAlertDevices)
	s.HumidityAlertCount = len(s.HumidityAlertDevices)
	s.OdourAlertCount = len(s.OdourAlertDevices)
	s.AQIAlertCount = len(s.AQIAlertDevices)
	s.GLAlertCount = len(s.GLAlertDevices)
	return s
}
