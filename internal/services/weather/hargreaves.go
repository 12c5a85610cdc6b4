package weather

import "math"

// Ra costante semplificata per ottenere mm/giorno (approssimazione)
const simplifiedRa = 0.408

// EstimateET0 is a simplified Hargreaves reference evapotranspiration in mm/day.
func EstimateET0(tmin, tmax float64) float64 {
	if tmax < tmin {
		tmin, tmax = tmax, tmin
	}
	tmean := (tmin + tmax) / 2.0
	return 0.0023 * (tmean + 17.8) * math.Sqrt(math.Max(tmax-tmin, 0)) * simplifiedRa
}
