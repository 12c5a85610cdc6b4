package history

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/anuja/internal/model"
)

const Measurement = "advisory"

// EventToPoint normalizza un AdvisoryIssuedEvent in un *write.Point per InfluxDB.
func EventToPoint(evt model.AdvisoryIssuedEvent) *write.Point {
	tags := map[string]string{
		"crop":   evt.Crop,
		"source": evt.Source,
	}
	if evt.City != "" {
		tags["city"] = evt.City
	}

	fields := map[string]interface{}{
		"id":          evt.ID,
		"ph":          evt.PH,
		"moisture":    int64(evt.Moisture),
		"temperature": evt.Temperature,
		"weeks_since": int64(evt.WeeksSince),
	}
	if evt.WeatherTempC != nil {
		fields["weather_temp_c"] = *evt.WeatherTempC
	}
	if evt.Seeds != "" {
		fields["seeds"] = evt.Seeds
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(Measurement, tags, fields, ts)
}
