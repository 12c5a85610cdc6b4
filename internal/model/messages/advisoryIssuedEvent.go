package messages

import "time"

// AdvisoryIssuedEvent is emitted each time a report is produced for a field.
// It is what the history log stores and what the notifier publishes.
type AdvisoryIssuedEvent struct {
	ID           string    `json:"id"`
	Crop         string    `json:"crop"`
	City         string    `json:"city,omitempty"`
	PH           float64   `json:"ph"`
	Moisture     int       `json:"moisture"`
	Temperature  float64   `json:"temperature"`
	WeeksSince   int       `json:"weeks_since"`
	WeatherTempC *float64  `json:"weather_temp_c,omitempty"`
	Seeds        string    `json:"seeds,omitempty"`
	Source       string    `json:"source"` // http | api | grpc | cli
	Timestamp    time.Time `json:"timestamp"`
}
