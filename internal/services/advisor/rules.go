package advisor

import (
	"fmt"
	"time"
)

// Level is the severity a notice is rendered with.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one line of advice.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Soil thresholds.
const (
	acidicBelowPH     = 6.0
	alkalineAbovePH   = 8.0
	lowMoistureBelow  = 30
	hotAboveC         = 35.0
	waterOftenBelow   = 40
	waterDailyAboveC  = 32.0
	hotSeedsAboveC    = 30.0
	humidSeedsAbovePc = 70.0
)

const (
	TextSoilAcidic     = "Soil acidic: consider treating with lime."
	TextSoilAlkaline   = "Soil alkaline: sulfate-based fertilizers recommended."
	TextSoilBalanced   = "pH is balanced."
	TextMoistureLow    = "Moisture low: irrigation recommended."
	TextMoistureOK     = "Moisture adequate."
	TextHighTemp       = "High temp: monitor crop water needs."
	TextFertAcidic     = "Apply lime-based amendment (e.g., agricultural lime / calcium carbonate)."
	TextFertAlkaline   = "Use sulfate fertilizers (e.g., ammonium sulfate, potassium sulfate)."
	TextFertBalanced   = "Balanced NPK (e.g., 10-10-10) is suitable."
	TextWaterOften     = "Suggest watering every 2–3 days based on crop and soil type."
	TextWaterDaily     = "High temp: water lightly daily, preferably early morning."
	TextWaterCycle     = "Current moisture and temperature support a 3–4 day watering cycle."
	SeedsHot           = "Millets or Sorghum"
	SeedsHumid         = "Rice or Sugarcane"
	SeedsDefault       = "Wheat or Soybean"
	plannerWeeks       = 4
	hoursPerDay        = 24 * time.Hour
	daysPerWeek        = 7
	plannerLabelFormat = "Week %d"
)

// SoilSuggestions returns the pH, moisture and temperature notices in that order.
func SoilSuggestions(ph float64, moisture int, temperature float64) []Notice {
	out := make([]Notice, 0, 3)
	switch {
	case ph < acidicBelowPH:
		out = append(out, Notice{LevelWarning, TextSoilAcidic})
	case ph > alkalineAbovePH:
		out = append(out, Notice{LevelWarning, TextSoilAlkaline})
	default:
		out = append(out, Notice{LevelSuccess, TextSoilBalanced})
	}

	if moisture < lowMoistureBelow {
		out = append(out, Notice{LevelInfo, TextMoistureLow})
	} else {
		out = append(out, Notice{LevelSuccess, TextMoistureOK})
	}

	if temperature > hotAboveC {
		out = append(out, Notice{LevelWarning, TextHighTemp})
	}
	return out
}

func FertilizerGuide(ph float64) Notice {
	switch {
	case ph < acidicBelowPH:
		return Notice{LevelInfo, TextFertAcidic}
	case ph > alkalineAbovePH:
		return Notice{LevelInfo, TextFertAlkaline}
	default:
		return Notice{LevelInfo, TextFertBalanced}
	}
}

func WateringSchedule(moisture int, temperature float64) Notice {
	switch {
	case moisture < waterOftenBelow:
		return Notice{LevelInfo, TextWaterOften}
	case temperature > waterDailyAboveC:
		return Notice{LevelInfo, TextWaterDaily}
	default:
		return Notice{LevelSuccess, TextWaterCycle}
	}
}

// SeedRecommendation picks seeds from current weather; either value may be unknown.
func SeedRecommendation(tempC, humidity *float64) string {
	if tempC != nil && *tempC > hotSeedsAboveC {
		return SeedsHot
	}
	if humidity != nil && *humidity > humidSeedsAbovePc {
		return SeedsHumid
	}
	return SeedsDefault
}

// PlannerWeek is one row of the pest and fertilizer planner.
type PlannerWeek struct {
	Week       int    `json:"week"`
	Label      string `json:"label"`
	Pest       string `json:"pest"`
	Fertilizer string `json:"fertilizer"`
}

// WeeksSince counts whole weeks from planting to today, never negative.
func WeeksSince(plantDate, today time.Time) int {
	p := time.Date(plantDate.Year(), plantDate.Month(), plantDate.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(p) / hoursPerDay)
	if days < 0 {
		return 0
	}
	return days / daysPerWeek
}

// Planner returns the next four weeks after planting, starting at the current one.
func Planner(advice CropAdvice, plantDate, today time.Time) []PlannerWeek {
	start := WeeksSince(plantDate, today) + 1
	out := make([]PlannerWeek, 0, plannerWeeks)
	for i := 0; i < plannerWeeks; i++ {
		out = append(out, PlannerWeek{
			Week:       start + i,
			Label:      fmt.Sprintf(plannerLabelFormat, start+i),
			Pest:       advice.Pest,
			Fertilizer: advice.Fertilizer,
		})
	}
	return out
}
