package alerts

// Summary is the alert overview of one organization.
type Summary struct {
	OrganizationID string         `json:"organizationId"`
	Venues         []VenueSummary `json:"venues"`
}

// VenueSummary breaks a venue's devices down by alert category.
// Device lists are never nil so they serialise as [].
type VenueSummary struct {
	VenueID      string `json:"venueId"`
	VenueName    string `json:"venueName"`
	TotalDevices int    `json:"totalDevices"`

	// TotalAlerts counts devices with at least one raised flag.
	TotalAlerts int `json:"totalAlerts"`

	TemperatureAlertCount   int            `json:"temperatureAlertCount"`
	TemperatureAlertDevices []DeviceDetail `json:"temperatureAlertDevices"`

	HumidityAlertCount   int            `json:"humidityAlertCount"`
	HumidityAlertDevices []DeviceDetail `json:"humidityAlertDevices"`

	OdourAlertCount   int           `json:"odourAlertCount"`
	OdourAlertDevices []OdourDetail `json:"odourAlertDevices"`

	AQIAlertCount   int         `json:"aqiAlertCount"`
	AQIAlertDevices []AQIDetail `json:"aqiAlertDevices"`

	GLAlertCount   int         `json:"glAlertCount"`
	GLAlertDevices []GasDetail `json:"glAlertDevices"`
}

// DeviceDetail identifies an alerting device with its climate readings.
// Readings never reported are null.
type DeviceDetail struct {
	DeviceID    string   `json:"deviceId"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// OdourDetail adds the odour reading.
type OdourDetail struct {
	DeviceDetail
	Odour *float64 `json:"odour"`
}

// AQIDetail adds the air quality index.
type AQIDetail struct {
	DeviceDetail
	AQI *float64 `json:"AQI"`
}

// GasDetail adds the gas reading. The key stays "gass" for existing
// dashboards.
type GasDetail struct {
	DeviceDetail
	Gas *float64 `json:"gass"`
}
