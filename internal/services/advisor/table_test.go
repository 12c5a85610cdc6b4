package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

func TestLoadTable_CropTexts(t *testing.T) {
	table, err := LoadTable()
	require.NoError(t, err)

	want := map[entities.Crop]string{
		entities.CropWheat:     "Apply DAP + organic compost at seed level.",
		entities.CropRice:      "Use urea + phosphorus-based fertilizer.",
		entities.CropTomato:    "Add potassium nitrate and bio-fertilizers before planting.",
		entities.CropSugarcane: "Apply farmyard manure + NPK with emphasis on nitrogen.",
		entities.CropSoybean:   "Use phosphorus-rich fertilizer and rhizobium inoculant where available.",
		entities.CropMillets:   "Light N application with organic compost; avoid over-fertilization.",
	}
	for crop, supplement := range want {
		assert.Equal(t, supplement, table.Crop(crop).Supplement, crop)
	}
	assert.Equal(t, "Aphids / Armyworm — inspect earheads and flag leaves.", table.Crop("wheat").Pest)
	assert.Equal(t, "Light N in splits; keep soil moisture even.", table.Crop("MILLETS").Fertilizer)
}

func TestTable_UnknownCropUsesFallback(t *testing.T) {
	table, err := LoadTable()
	require.NoError(t, err)

	a := table.Crop("Barley")
	assert.Equal(t, "Use a standard NPK blend with organic compost.", a.Supplement)
	assert.Equal(t, "General leaf feeders — watch leaves closely.", a.Pest)
	assert.Equal(t, "Rotate NPK every 2 weeks.", a.Fertilizer)
}

func TestParseTable_RejectsIncomplete(t *testing.T) {
	_, err := ParseTable([]byte(`
crops:
  Wheat: {supplement: a, pest: b, fertilizer: c}
fallback: {supplement: a, pest: b, fertilizer: c}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing crop")

	_, err = ParseTable([]byte(`crops: {}
unexpected: true
`))
	require.Error(t, err)
}
