package discovery

import (
	"fmt"

	"github.com/roamvest/scout-api/pkg/geo"
)

// CacheKey derives the cache key for a search: origin rounded to 4 decimal
// places (about 11 m of latitude) plus the radius, so near-duplicate
// requests share a cache slot.
func CacheKey(origin geo.Point, radiusKm float64) string {
	return fmt.Sprintf("%.4f,%.4f,%g", origin.Lat, origin.Lng, radiusKm)
}
