package entities

import "time"

// Weather is a current-conditions snapshot for a city.
// Temperatures are in °C; nil means the provider did not report the value.
type Weather struct {
	City        string    `json:"city"`
	Country     string    `json:"country,omitempty"`
	TempC       *float64  `json:"temp_c,omitempty"`
	TempMinC    *float64  `json:"temp_min_c,omitempty"`
	TempMaxC    *float64  `json:"temp_max_c,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"` // %
	Description string    `json:"description"`
	FetchedAt   time.Time `json:"fetched_at"`
}
