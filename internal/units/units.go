// Package units converts between the canonical internal units (kilometers,
// minutes) and display units. Core packages never convert; only the
// presentation boundary does.
package units

import (
	"fmt"
	"math"
)

const kmPerMile = 1.609344

type System string

const (
	Metric   System = "metric"
	Imperial System = "imperial"
)

func KmToMiles(km float64) float64 {
	return km / kmPerMile
}

func MilesToKm(mi float64) float64 {
	return mi * kmPerMile
}

// PaceToImperial converts a pace in min/km to min/mile.
func PaceToImperial(minPerKm float64) float64 {
	return minPerKm * kmPerMile
}

// Distance renders a distance stored in kilometers for the given system.
func Distance(km float64, sys System) string {
	if sys == Imperial {
		return fmt.Sprintf("%.2f mi", KmToMiles(km))
	}
	return fmt.Sprintf("%.2f km", km)
}

// Pace renders a pace stored in min/km for the given system, e.g. "4:57 /km".
func Pace(minPerKm float64, sys System) string {
	v := minPerKm
	suffix := "/km"
	if sys == Imperial {
		v = PaceToImperial(minPerKm)
		suffix = "/mi"
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return "-:-- " + suffix
	}
	mins := int(v)
	secs := int(math.Round((v - float64(mins)) * 60))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d %s", mins, secs, suffix)
}

// Duration renders a duration stored in fractional minutes, e.g. "1h 02m".
func Duration(minutes float64) string {
	total := int(math.Round(minutes))
	h := total / 60
	m := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
