package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

// Form and API field names.
const (
	fieldPH          = "ph"
	fieldMoisture    = "moisture"
	fieldTemperature = "temperature"
	fieldCrop        = "crop"
	fieldPlantDate   = "plant_date"
	fieldCity        = "city"
)

var inputFields = []string{fieldPH, fieldMoisture, fieldTemperature, fieldCrop, fieldPlantDate, fieldCity}

// AdviceRequest holds raw input values keyed by field name. JSON bodies may
// send numbers either as numbers or as strings.
type AdviceRequest map[string]string

func (a *AdviceRequest) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out := AdviceRequest{}
	for _, k := range inputFields {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case string:
			out[k] = x
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			// bool, oggetti, array: lasciamo che il parser segnali il campo
			out[k] = fmt.Sprint(x)
		}
	}
	*a = out
	return nil
}

// RequestFromValues keeps only the input fields present in v.
func RequestFromValues(v url.Values) AdviceRequest {
	out := AdviceRequest{}
	for _, k := range inputFields {
		if _, ok := v[k]; ok {
			out[k] = v.Get(k)
		}
	}
	return out
}

// Inputs overlays the request on defaults and validates the result. Parse
// failures and range errors come back together, one per field.
func (a AdviceRequest) Inputs(defaults entities.FieldInputs) (entities.FieldInputs, error) {
	in := defaults
	var errs []error
	unparsed := map[string]bool{}
	bad := func(field, reason string) {
		unparsed[field] = true
		errs = append(errs, &entities.FieldError{Field: field, Reason: reason})
	}

	if s, ok := a.value(fieldPH); ok {
		if f, err := strconv.ParseFloat(s, 64); err != nil || math.IsNaN(f) {
			bad(fieldPH, "must be a number")
		} else {
			in.PH = f
		}
	}
	if s, ok := a.value(fieldMoisture); ok {
		f, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil || math.IsNaN(f):
			bad(fieldMoisture, "must be a number")
		case f != math.Trunc(f):
			bad(fieldMoisture, "must be a whole number")
		default:
			in.Moisture = int(f)
		}
	}
	if s, ok := a.value(fieldTemperature); ok {
		if f, err := strconv.ParseFloat(s, 64); err != nil || math.IsNaN(f) {
			bad(fieldTemperature, "must be a number")
		} else {
			in.Temperature = f
		}
	}
	if s, ok := a[fieldCrop]; ok {
		in.Crop = entities.Crop(strings.TrimSpace(s))
	}
	if s, ok := a.value(fieldPlantDate); ok {
		d, err := time.ParseInLocation(entities.DateLayout, s, defaults.PlantDate.Location())
		if err != nil {
			bad(fieldPlantDate, "must be a date (YYYY-MM-DD)")
		} else {
			in.PlantDate = d
		}
	}
	if s, ok := a[fieldCity]; ok {
		in.City = strings.TrimSpace(s)
	}
	// un campo non interpretabile conserva il default: niente errore di range
	for _, fe := range entities.FieldErrors(in.Validate()) {
		fe := fe
		if !unparsed[fe.Field] {
			errs = append(errs, &fe)
		}
	}
	return in, errors.Join(errs...)
}

// value returns the trimmed value; blank numeric/date fields keep the default.
func (a AdviceRequest) value(k string) (string, bool) {
	s, ok := a[k]
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// formValues echoes inputs back into the form, raw where the user typed something.
type formValues struct {
	PH, Moisture, Temperature, Crop, PlantDate, City string
}

func newFormValues(in entities.FieldInputs, raw AdviceRequest) formValues {
	fv := formValues{
		PH:          strconv.FormatFloat(in.PH, 'f', -1, 64),
		Moisture:    strconv.Itoa(in.Moisture),
		Temperature: strconv.FormatFloat(in.Temperature, 'f', -1, 64),
		Crop:        string(in.Crop),
		PlantDate:   in.PlantDate.Format(entities.DateLayout),
		City:        in.City,
	}
	for k, v := range raw {
		if strings.TrimSpace(v) == "" {
			continue
		}
		switch k {
		case fieldPH:
			fv.PH = v
		case fieldMoisture:
			fv.Moisture = v
		case fieldTemperature:
			fv.Temperature = v
		case fieldPlantDate:
			fv.PlantDate = v
		}
	}
	return fv
}

// fieldErrorMap flattens validation errors for templates and JSON.
func fieldErrorMap(err error) map[string]string {
	fes := entities.FieldErrors(err)
	if len(fes) == 0 {
		return nil
	}
	out := make(map[string]string, len(fes))
	for _, fe := range fes {
		out[fe.Field] = fe.Reason
	}
	return out
}
