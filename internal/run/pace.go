package run

import (
	"fmt"
	"math"
	"strconv"
)

const paceUnavailable = "N/A"

// ComputePace formats minutes per kilometer as MM:SS. A zero value stands
// for a missing one. Seconds are rounded half to even and a result of 60 is
// kept as is, so 5.999 min/km renders as "05:60".
func ComputePace(distanceKm, durationMin float64) string {
	if !(distanceKm > 0) || !(durationMin > 0) {
		return paceUnavailable
	}
	pace := durationMin / distanceKm
	if math.IsInf(pace, 0) || math.IsNaN(pace) {
		return paceUnavailable
	}
	minutes := math.Trunc(pace)
	seconds := math.RoundToEven((pace - minutes) * 60)
	return fmt.Sprintf("%s:%02d", padMinutes(minutes), int64(seconds))
}

// padMinutes prints whole minutes without integer conversion, so paces from
// implausibly small distances keep all their digits.
func padMinutes(minutes float64) string {
	m := strconv.FormatFloat(minutes, 'f', 0, 64)
	if len(m) < 2 {
		m = "0" + m
	}
	return m
}
