// Package geo computes great-circle distances over GPS tracks.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// EarthRadiusKm is the spherical Earth radius used by HaversineKm. Stored
// distances were computed with this exact value.
const EarthRadiusKm = 6371.0

// ErrMalformedCoordinates reports a coordinate payload that cannot be read
// as an ordered list of [lat, lon] pairs.
var ErrMalformedCoordinates = errors.New("malformed coordinates")

type Point struct {
	Lat float64
	Lon float64
}

// HaversineKm returns the great-circle distance in kilometers between two
// points given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	dLat := lat2Rad - lat1Rad
	dLon := toRadians(lon2) - toRadians(lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ParsePath decodes a JSON array of [lat, lon] pairs. A JSON null decodes
// to an empty path.
func ParsePath(payload string) ([]Point, error) {
	var raw [][]float64
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}

	points := make([]Point, 0, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: point %d has %d values, want 2", ErrMalformedCoordinates, i, len(pair))
		}
		points = append(points, Point{Lat: pair[0], Lon: pair[1]})
	}
	return points, nil
}

// PathDistanceKm sums the haversine distance between consecutive points in
// the order given.
func PathDistanceKm(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		total += HaversineKm(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
	}
	return total
}

// TotalPathDistance parses a serialized track and returns its length in
// kilometers rounded to 3 decimal places.
func TotalPathDistance(payload string) (float64, error) {
	points, err := ParsePath(payload)
	if err != nil {
		return 0, err
	}
	return Round(PathDistanceKm(points), 3), nil
}

// Round rounds v to the given number of decimal places using the exact
// binary value of v, so 111.195 (stored as 111.19499...) rounds to 111.19.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
