package entities

// Input ranges accepted by the form (inclusive).
const (
	MinPH = 3.5
	MaxPH = 9.0

	MinMoisture = 0
	MaxMoisture = 100

	MinTemperature = 0.0
	MaxTemperature = 50.0
)

// Form defaults.
const (
	DefaultPH          = 6.5
	DefaultMoisture    = 30
	DefaultTemperature = 25.0
	DefaultCrop        = CropWheat
)
