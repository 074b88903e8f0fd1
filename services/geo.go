package services

import (
	"math"
	"strconv"
	"strings"

	"tourbook-api/utils"
)

const (
	earthRadiusMiles  = 3963.2
	earthRadiusKm     = 6378.1
	earthRadiusMeters = earthRadiusKm * 1000

	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

// ParseLatLng reads "lat,lng".
func ParseLatLng(latlng string) (lat, lng float64, err error) {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return 0, 0, utils.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil || !utils.IsValidLatitude(lat) || !utils.IsValidLongitude(lng) {
		return 0, 0, utils.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	return lat, lng, nil
}

// ParseDistanceUnit accepts "mi" and "km".
func ParseDistanceUnit(unit string) (string, error) {
	switch unit {
	case "mi", "km":
		return unit, nil
	}
	return "", utils.Validation("Unit must be mi or km, got %s.", unit)
}

// centralAngle is the haversine angle in radians between two points.
func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// radiusInRadians converts a search distance into an angle on the sphere.
func radiusInRadians(distance float64, unit string) float64 {
	if unit == "mi" {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKm
}

// distanceIn converts the angle between two points to miles or kilometres.
func distanceIn(lat1, lon1, lat2, lon2 float64, unit string) float64 {
	meters := centralAngle(lat1, lon1, lat2, lon2) * earthRadiusMeters
	if unit == "mi" {
		return meters * metersToMiles
	}
	return meters * metersToKm
}

// roundToDecimal rounds a float to the given decimal places.
func roundToDecimal(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
