// Package alerts summarises active device alerts per venue.
//
// A summary covers every venue of one organization, in venue display
// order, and splits the venue's devices into five independent alert
// categories: temperature, humidity, odour, air quality and gas leak. A
// device with several raised flags appears in each matching category but
// counts once towards the venue's totalAlerts.
package alerts
