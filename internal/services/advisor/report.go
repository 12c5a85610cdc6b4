package advisor

import (
	"fmt"
	"time"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/internal/services/weather"
)

const (
	TextEnterCity     = "Enter a valid city to detect weather."
	TextNoWeatherKey  = "No OpenWeatherMap key found. Add it to the config file under weather.api_key or set the OPENWEATHERMAP_KEY env var."
	TextWeatherFailed = "Could not fetch weather for that location."
)

// WeatherSection is the live-weather part of a report.
type WeatherSection struct {
	Requested bool              `json:"requested"`
	Notices   []Notice          `json:"notices"`
	Weather   *entities.Weather `json:"weather,omitempty"`
	Seeds     string            `json:"seeds,omitempty"`
	ET0MM     *float64          `json:"et0_mm,omitempty"`
}

// Report is everything the form renders for one set of inputs.
type Report struct {
	Inputs      entities.FieldInputs `json:"inputs"`
	Summary     []string             `json:"summary"`
	Suggestions []Notice             `json:"suggestions"`
	Fertilizer  Notice               `json:"fertilizer"`
	Watering    Notice               `json:"watering"`
	Supplement  Notice               `json:"supplement"`
	WeeksSince  int                  `json:"weeks_since"`
	Planner     []PlannerWeek        `json:"planner"`
	Weather     WeatherSection       `json:"weather"`
	IssuedAt    time.Time            `json:"issued_at"`
}

// Summary echoes the inputs back as display lines.
func Summary(in entities.FieldInputs) []string {
	out := []string{
		"Soil pH: " + formatFloat(in.PH),
		fmt.Sprintf("Moisture: %d%%", in.Moisture),
		"Temp: " + formatFloat(in.Temperature) + " °C",
		"Crop: " + string(in.Crop),
		"Planting Date: " + formatPlantDate(in.PlantDate),
	}
	if in.City != "" {
		out = append(out, "City: "+in.City)
	}
	return out
}

// WeatherLine is the one-line success message for a lookup.
func WeatherLine(w entities.Weather) string {
	label := w.City
	if w.Country != "" {
		label += ", " + w.Country
	}
	return fmt.Sprintf("%s: %s°C, %s%% humidity, %s",
		label, formatReading(w.TempC), formatReading(w.Humidity), titleCase(w.Description))
}

// BuildWeatherSection turns a lookup outcome into notices. keyConfigured
// false means no lookup could be attempted.
func BuildWeatherSection(city string, keyConfigured bool, w *entities.Weather, err error) WeatherSection {
	if city == "" {
		return WeatherSection{Notices: []Notice{{LevelWarning, TextEnterCity}}}
	}
	ws := WeatherSection{Requested: true}
	if !keyConfigured {
		ws.Notices = append(ws.Notices, Notice{LevelWarning, TextNoWeatherKey})
	}
	if err != nil || w == nil {
		ws.Notices = append(ws.Notices, Notice{LevelError, TextWeatherFailed})
		return ws
	}

	ws.Weather = w
	ws.Seeds = SeedRecommendation(w.TempC, w.Humidity)
	ws.Notices = append(ws.Notices,
		Notice{LevelSuccess, WeatherLine(*w)},
		Notice{LevelInfo, "Recommend: " + ws.Seeds},
	)
	if w.TempMinC != nil && w.TempMaxC != nil {
		et0 := weather.EstimateET0(*w.TempMinC, *w.TempMaxC)
		ws.ET0MM = &et0
		ws.Notices = append(ws.Notices, Notice{LevelInfo,
			fmt.Sprintf("Estimated reference evapotranspiration: %.2f mm/day", et0)})
	}
	return ws
}
