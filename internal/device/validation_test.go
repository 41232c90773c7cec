package device

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
		wantMsg string
	}{
		{
			name:   "valid OMD",
			mutate: func(*Device) {},
		},
		{
			name:    "missing deviceId",
			mutate:  func(d *Device) { d.DeviceID = "" },
			wantErr: ErrInvalidDevice,
			wantMsg: "deviceId is required",
		},
		{
			name:    "missing venueId",
			mutate:  func(d *Device) { d.VenueID = "" },
			wantErr: ErrInvalidDevice,
			wantMsg: "venueId is required",
		},
		{
			name:    "missing deviceType",
			mutate:  func(d *Device) { d.DeviceType = "" },
			wantErr: ErrInvalidDevice,
			wantMsg: "deviceType is required",
		},
		{
			name:    "empty conditions",
			mutate:  func(d *Device) { d.Conditions = []Condition{} },
			wantErr: ErrInvalidDevice,
			wantMsg: "conditions must contain at least 1",
		},
		{
			name:    "unknown device type",
			mutate:  func(d *Device) { d.DeviceType = "XMD" },
			wantErr: ErrInvalidDeviceType,
			wantMsg: "OMD, TMD, AQIMD, GLMD",
		},
		{
			name:    "bad operator",
			mutate:  func(d *Device) { d.Conditions[0].Operator = ">=" },
			wantErr: ErrInvalidCondition,
			wantMsg: "conditions[0].operator must be one of >, <",
		},
		{
			name:    "missing value",
			mutate:  func(d *Device) { d.Conditions[1].Value = nil },
			wantErr: ErrInvalidCondition,
			wantMsg: "conditions[1].value is required",
		},
		{
			name:    "unknown metric",
			mutate:  func(d *Device) { d.Conditions[0].Type = "pressure" },
			wantErr: ErrInvalidCondition,
			wantMsg: "not a known metric",
		},
		{
			name:    "metric outside schema",
			mutate:  func(d *Device) { d.Conditions[2].Type = MetricAQI },
			wantErr: ErrInvalidCondition,
			wantMsg: "OMD devices do not measure AQI",
		},
		{
			name: "repeated metric",
			mutate: func(d *Device) {
				d.Conditions = append(d.Conditions, cond(MetricTemperature, OperatorLess, 5))
			},
			wantErr: ErrInvalidCondition,
			wantMsg: `conditions[3].type "temperature" is repeated`,
		},
		{
			name: "legacy gas spelling repeats gas",
			mutate: func(d *Device) {
				d.DeviceType = DeviceTypeGLMD
				d.Conditions = append(validConditions(DeviceTypeGLMD), cond(LegacyGasMetric, OperatorGreater, 1))
				NormalizeConditions(d.Conditions)
			},
			wantErr: ErrInvalidCondition,
			wantMsg: `conditions[3].type "gas" is repeated`,
		},
		{
			name:    "missing required metric",
			mutate:  func(d *Device) { d.Conditions = d.Conditions[:2] },
			wantErr: ErrInvalidCondition,
			wantMsg: "require conditions for: odour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice("omd-1", DeviceTypeOMD, "venue-a")
			tt.mutate(d)

			err := Validate(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_AllTypesWithSchemaConditions(t *testing.T) {
	for _, dt := range AllDeviceTypes() {
		d := newTestDevice("dev-"+string(dt), dt, "venue-a")
		if err := Validate(d); err != nil {
			t.Errorf("Validate(%s) error = %v", dt, err)
		}
	}
}

func TestNormalizeConditions_LegacyGas(t *testing.T) {
	d := &Device{
		DeviceID:   "gl-1",
		DeviceType: DeviceTypeGLMD,
		VenueID:    "venue-a",
		Conditions: []Condition{
			cond("gass", ">", 10),
			cond(MetricTemperature, ">", 40),
			cond(MetricHumidity, ">", 80),
		},
	}

	NormalizeConditions(d.Conditions)
	if d.Conditions[0].Type != MetricGas {
		t.Fatalf("Type = %q, want gas", d.Conditions[0].Type)
	}
	if err := Validate(d); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
