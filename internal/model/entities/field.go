package entities

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is how plant dates travel in forms and APIs.
const DateLayout = "2006-01-02"

// FieldInputs are the soil and crop parameters entered for one field.
type FieldInputs struct {
	PH          float64   `json:"ph"`
	Moisture    int       `json:"moisture"`    // %
	Temperature float64   `json:"temperature"` // ambient, °C
	Crop        Crop      `json:"crop"`
	PlantDate   time.Time `json:"plant_date"`
	City        string    `json:"city,omitempty"`
}

// DefaultFieldInputs returns the form defaults, planted today.
func DefaultFieldInputs(today time.Time) FieldInputs {
	return FieldInputs{
		PH:          DefaultPH,
		Moisture:    DefaultMoisture,
		Temperature: DefaultTemperature,
		Crop:        DefaultCrop,
		PlantDate:   DateOf(today),
	}
}

// FieldError reports one invalid input.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }

// Validate returns every out-of-range field joined into one error.
// NaN is out of range for every numeric field.
func (in FieldInputs) Validate() error {
	var errs []error
	if math.IsNaN(in.PH) || in.PH < MinPH || in.PH > MaxPH {
		errs = append(errs, &FieldError{Field: "ph", Reason: fmt.Sprintf("must be between %.1f and %.1f", MinPH, MaxPH)})
	}
	if in.Moisture < MinMoisture || in.Moisture > MaxMoisture {
		errs = append(errs, &FieldError{Field: "moisture", Reason: fmt.Sprintf("must be between %d and %d", MinMoisture, MaxMoisture)})
	}
	if math.IsNaN(in.Temperature) || in.Temperature < MinTemperature || in.Temperature > MaxTemperature {
		errs = append(errs, &FieldError{Field: "temperature", Reason: fmt.Sprintf("must be between %.1f and %.1f", MinTemperature, MaxTemperature)})
	}
	if strings.TrimSpace(string(in.Crop)) == "" {
		errs = append(errs, &FieldError{Field: "crop", Reason: "is required"})
	}
	if in.PlantDate.IsZero() {
		errs = append(errs, &FieldError{Field: "plant_date", Reason: "is required"})
	}
	return errors.Join(errs...)
}

// FieldErrors unpacks a Validate error into its field errors.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	var out []FieldError
	var fe *FieldError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if errors.As(e, &fe) {
				out = append(out, *fe)
			}
		}
		return out
	}
	if errors.As(err, &fe) {
		out = append(out, *fe)
	}
	return out
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
