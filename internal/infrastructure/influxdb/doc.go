// Package influxdb provides InfluxDB connectivity for VenueWatch Core.
//
// It wraps the official influxdb-client-go v2 library. Accepted telemetry
// updates are written as points in the "telemetry" measurement so sensor
// readings and alert flags can be charted over time, per device or per
// venue.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time-series output
//	}
//	defer client.Close()
//
//	err = client.WriteTelemetry("omd-1", "OMD", "venue-1",
//	    map[string]float64{"odour": 7},
//	    map[string]bool{"odourAlert": true},
//	    time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Points are batched and sent in the background. Failed batches are
// counted by FailedWrites and passed to the SetOnError callback.
package influxdb
