package entities

import "strings"

// Crop is the name of a crop as shown in the form dropdown.
type Crop string

const (
	CropWheat     Crop = "Wheat"
	CropRice      Crop = "Rice"
	CropTomato    Crop = "Tomato"
	CropSoybean   Crop = "Soybean"
	CropSugarcane Crop = "Sugarcane"
	CropMillets   Crop = "Millets"
)

// Crops lists the canonical crops in dropdown order.
var Crops = []Crop{CropWheat, CropRice, CropTomato, CropSoybean, CropSugarcane, CropMillets}

// ParseCrop maps a user-supplied name onto a canonical crop (case-insensitive).
// Unknown names are returned trimmed with known=false.
func ParseCrop(name string) (c Crop, known bool) {
	name = strings.TrimSpace(name)
	for _, k := range Crops {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return Crop(name), false
}

func (c Crop) String() string { return string(c) }
