package advisor

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestSoilSuggestions(t *testing.T) {
	tests := []struct {
		name        string
		ph          float64
		moisture    int
		temperature float64
		want        []Notice
	}{
		{"acidic dry", 5.9, 10, 20, []Notice{
			{LevelWarning, TextSoilAcidic},
			{LevelInfo, TextMoistureLow},
		}},
		{"boundary 6.0 is balanced", 6.0, 30, 35, []Notice{
			{LevelSuccess, TextSoilBalanced},
			{LevelSuccess, TextMoistureOK},
		}},
		{"boundary 8.0 is balanced", 8.0, 29, 20, []Notice{
			{LevelSuccess, TextSoilBalanced},
			{LevelInfo, TextMoistureLow},
		}},
		{"alkaline hot", 8.1, 60, 35.5, []Notice{
			{LevelWarning, TextSoilAlkaline},
			{LevelSuccess, TextMoistureOK},
			{LevelWarning, TextHighTemp},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SoilSuggestions(tt.ph, tt.moisture, tt.temperature)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("SoilSuggestions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFertilizerGuide(t *testing.T) {
	assert.Equal(t, TextFertAcidic, FertilizerGuide(3.5).Text)
	assert.Equal(t, TextFertBalanced, FertilizerGuide(6.5).Text)
	assert.Equal(t, TextFertAlkaline, FertilizerGuide(9.0).Text)
	assert.Equal(t, LevelInfo, FertilizerGuide(6.5).Level)
}

func TestWateringSchedule(t *testing.T) {
	tests := []struct {
		moisture    int
		temperature float64
		want        Notice
	}{
		{39, 45, Notice{LevelInfo, TextWaterOften}},
		{40, 32.5, Notice{LevelInfo, TextWaterDaily}},
		{40, 32, Notice{LevelSuccess, TextWaterCycle}},
		{100, 0, Notice{LevelSuccess, TextWaterCycle}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WateringSchedule(tt.moisture, tt.temperature), "moisture=%d temp=%v", tt.moisture, tt.temperature)
	}
}

func TestSeedRecommendation(t *testing.T) {
	assert.Equal(t, SeedsHot, SeedRecommendation(ptr(30.1), ptr(90)))
	assert.Equal(t, SeedsHumid, SeedRecommendation(ptr(30), ptr(70.5)))
	assert.Equal(t, SeedsHumid, SeedRecommendation(nil, ptr(71)))
	assert.Equal(t, SeedsDefault, SeedRecommendation(ptr(22), ptr(70)))
	assert.Equal(t, SeedsDefault, SeedRecommendation(nil, nil))
}

func TestWeeksSince(t *testing.T) {
	today := time.Date(2025, 3, 20, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WeeksSince(today, today))
	assert.Equal(t, 0, WeeksSince(today.AddDate(0, 0, -6), today))
	assert.Equal(t, 1, WeeksSince(today.AddDate(0, 0, -7), today))
	assert.Equal(t, 3, WeeksSince(today.AddDate(0, 0, -27), today))
	assert.Equal(t, 0, WeeksSince(today.AddDate(0, 0, 10), today), "future planting never goes negative")
}

func TestPlanner(t *testing.T) {
	table, err := LoadTable()
	if err != nil {
		t.Fatal(err)
	}
	today := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	rice := table.Crop("Rice")

	got := Planner(rice, today.AddDate(0, 0, -15), today)
	want := []PlannerWeek{
		{Week: 3, Label: "Week 3", Pest: rice.Pest, Fertilizer: rice.Fertilizer},
		{Week: 4, Label: "Week 4", Pest: rice.Pest, Fertilizer: rice.Fertilizer},
		{Week: 5, Label: "Week 5", Pest: rice.Pest, Fertilizer: rice.Fertilizer},
		{Week: 6, Label: "Week 6", Pest: rice.Pest, Fertilizer: rice.Fertilizer},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Planner mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "25.0", formatFloat(25))
	assert.Equal(t, "6.5", formatFloat(6.5))
	assert.Equal(t, "21.37", formatFloat(21.37))
	assert.Equal(t, "48", formatReading(ptr(48)))
	assert.Equal(t, "n/a", formatReading(nil))
}
