package advisor

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

//go:embed table.yaml
var defaultTable []byte

// CropAdvice is the crop-keyed part of the advice table.
type CropAdvice struct {
	Supplement string `yaml:"supplement" json:"supplement"`
	Pest       string `yaml:"pest" json:"pest"`
	Fertilizer string `yaml:"fertilizer" json:"fertilizer"`
}

func (a CropAdvice) complete() bool {
	return strings.TrimSpace(a.Supplement) != "" &&
		strings.TrimSpace(a.Pest) != "" &&
		strings.TrimSpace(a.Fertilizer) != ""
}

// Table maps crops to canned advice, with a generic fallback.
type Table struct {
	Crops    map[entities.Crop]CropAdvice `yaml:"crops"`
	Fallback CropAdvice                   `yaml:"fallback"`
}

// LoadTable decodes the embedded advice table.
func LoadTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// ParseTable decodes and validates a YAML advice table.
func ParseTable(raw []byte) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("advice table: %w", err)
	}
	for _, c := range entities.Crops {
		a, ok := t.Crops[c]
		if !ok {
			return nil, fmt.Errorf("advice table: missing crop %s", c)
		}
		if !a.complete() {
			return nil, fmt.Errorf("advice table: incomplete entry for %s", c)
		}
	}
	if !t.Fallback.complete() {
		return nil, fmt.Errorf("advice table: incomplete fallback")
	}
	return &t, nil
}

// Crop returns the advice for crop, or the fallback for unknown crops.
func (t *Table) Crop(crop entities.Crop) CropAdvice {
	if c, known := entities.ParseCrop(string(crop)); known {
		if a, ok := t.Crops[c]; ok {
			return a
		}
	}
	return t.Fallback
}
