package device

import (
	"encoding/json"
	"testing"
)

func TestDeviceType_Schema(t *testing.T) {
	tests := []struct {
		deviceType DeviceType
		wantFlags  []string
	}{
		{DeviceTypeTMD, []string{"temperatureAlert", "humidityAlert"}},
		{DeviceTypeOMD, []string{"temperatureAlert", "humidityAlert", "odourAlert"}},
		{DeviceTypeAQIMD, []string{"temperatureAlert", "humidityAlert", "aqiAlert"}},
		{DeviceTypeGLMD, []string{"temperatureAlert", "humidityAlert", "glAlert"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.deviceType), func(t *testing.T) {
			schema, ok := tt.deviceType.Schema()
			if !ok {
				t.Fatalf("Schema() ok = false")
			}
			if len(schema) != len(tt.wantFlags) {
				t.Fatalf("len(Schema()) = %d, want %d", len(schema), len(tt.wantFlags))
			}
			for i, m := range schema {
				if m.Flag != tt.wantFlags[i] {
					t.Errorf("schema[%d].Flag = %q, want %q", i, m.Flag, tt.wantFlags[i])
				}
			}
		})
	}

	if _, ok := DeviceType("XYZ").Schema(); ok {
		t.Error("Schema() for unknown type ok = true, want false")
	}
}

func TestDeviceType_SchemaIsCopy(t *testing.T) {
	schema, _ := DeviceTypeTMD.Schema()
	schema[0].Trigger = "LOW"

	again, _ := DeviceTypeTMD.Schema()
	if again[0].Trigger != "HIGH" {
		t.Errorf("mutating returned schema changed the registry: trigger = %q", again[0].Trigger)
	}
}

func TestGasMeasurement(t *testing.T) {
	schema, _ := DeviceTypeGLMD.Schema()
	gas := schema[2]

	if gas.Metric != MetricGas || gas.Signal != "gassAlert" || gas.Flag != "glAlert" || gas.Trigger != "LEAK" {
		t.Errorf("gas measurement = %+v", gas)
	}
	if DeviceTypeGLMD.Reports(MetricOdour) || DeviceTypeGLMD.Reports(MetricAQI) {
		t.Error("GLMD should not report odour or AQI")
	}
}

func TestMeasurement_Triggered(t *testing.T) {
	m := Measurement{Trigger: "HIGH"}
	for token, want := range map[string]bool{
		"HIGH":     true,
		"high":     false,
		"HIGH ":    false,
		"NORMAL":   false,
		"NORMAL  ": false,
		"":         false,
	} {
		if got := m.Triggered(token); got != want {
			t.Errorf("Triggered(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestMetric_Normalize(t *testing.T) {
	if got := Metric("gass").Normalize(); got != MetricGas {
		t.Errorf("Normalize(gass) = %q, want gas", got)
	}
	if got := Metric(" odour ").Normalize(); got != MetricOdour {
		t.Errorf("Normalize(' odour ') = %q, want odour", got)
	}
}

func TestInitialState(t *testing.T) {
	s := InitialState(DeviceTypeOMD)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"temperatureAlert":false,"humidityAlert":false,"odourAlert":false}`
	if string(data) != want {
		t.Errorf("InitialState(OMD) = %s, want %s", data, want)
	}
	if s.AnyAlerting() {
		t.Error("fresh device should not be alerting")
	}
}

func TestState_Alerting(t *testing.T) {
	s := State{OdourAlert: ptr(true), TemperatureAlert: ptr(false)}

	if !s.Alerting(MetricOdour) {
		t.Error("Alerting(odour) = false, want true")
	}
	if s.Alerting(MetricTemperature) {
		t.Error("Alerting(temperature) = true, want false")
	}
	if s.Alerting(MetricGas) {
		t.Error("Alerting(gas) with absent flag = true, want false")
	}
	if !s.AnyAlerting() {
		t.Error("AnyAlerting() = false, want true")
	}
}
