package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
)

// EarthRadiusMiles is the Earth radius used for Haversine distances.
const EarthRadiusMiles = 3959.0

// DefaultRadiusMiles is the nearby search radius when none is given.
const DefaultRadiusMiles = 5.0

// HaversineMiles returns the distance in miles between two points (lat/lng in degrees).
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// Filter returns shops matching the free-text query (name, city, tags) and, when filters is
// non-empty, carrying at least one of the filter values as a tag or amenity.
func Filter(shops []models.Shop, query string, filters []string) []models.Shop {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Shop, 0, len(shops))
	for _, s := range shops {
		if q != "" && !matchesQuery(s, q) {
			continue
		}
		if len(filters) > 0 && !matchesAny(s, filters) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchesQuery(s models.Shop, q string) bool {
	if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.City), q) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func matchesAny(s models.Shop, filters []string) bool {
	for _, f := range filters {
		for _, tag := range s.Tags {
			if tag == f {
				return true
			}
		}
		for _, a := range s.Amenities {
			if a == f {
				return true
			}
		}
	}
	return false
}

// NearbyShop is a shop with its distance from the search origin.
type NearbyShop struct {
	models.Shop
	DistanceMiles float64 `json:"distance_miles"`
}

// Nearby returns shops within radius miles of (lat, lng), closest first.
func Nearby(shops []models.Shop, lat, lng, radius float64) []NearbyShop {
	if radius <= 0 {
		radius = DefaultRadiusMiles
	}
	var out []NearbyShop
	for _, s := range shops {
		d := HaversineMiles(lat, lng, s.Latitude, s.Longitude)
		if d <= radius {
			out = append(out, NearbyShop{Shop: s, DistanceMiles: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMiles < out[j].DistanceMiles })
	return out
}
