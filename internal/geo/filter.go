package geo

import (
	"sort"

	"github.com/digitalkrishi/backend/internal/models"
)

// DefaultLimit caps nearby results when the caller does not supply a limit.
const DefaultLimit = 20

// NearbyOptions narrows the candidate set before distance filtering.
type NearbyOptions struct {
	// Services, if non-empty, requires at least one matching service tag.
	Services []string
	// IsVerified, if set, requires an exact match on the verification flag.
	IsVerified *bool
	// Limit truncates the result list. Values < 1 fall back to DefaultLimit.
	Limit int
}

// FindNearby returns the candidates within radiusKm of the query point,
// annotated with their distance and sorted ascending by (distance, id).
// Candidates missing either coordinate are excluded. Coordinates are assumed
// pre-validated by the caller.
func FindNearby(lat, lon, radiusKm float64, candidates []models.Retailer, opts NearbyOptions) []models.RetailerWithDistance {
	limit := opts.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	results := make([]models.RetailerWithDistance, 0, len(candidates))

	for _, retailer := range candidates {
		if opts.IsVerified != nil && retailer.IsVerified != *opts.IsVerified {
			continue
		}

		if len(opts.Services) > 0 && !offersAny(retailer.Services, opts.Services) {
			continue
		}

		if retailer.Latitude == nil || retailer.Longitude == nil {
			continue
		}

		distance := Distance(lat, lon, *retailer.Latitude, *retailer.Longitude)
		if distance > radiusKm {
			continue
		}

		results = append(results, models.RetailerWithDistance{
			Retailer: retailer,
			Distance: distance,
		})
	}

	// Tie-break on identifier so equal-distance retailers come back in the
	// same order regardless of input order.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID.String() < results[j].ID.String()
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results
}

// offersAny reports whether any wanted tag appears among the offered tags.
func offersAny(offered, wanted []string) bool {
	for _, w := range wanted {
		for _, o := range offered {
			if o == w {
				return true
			}
		}
	}
	return false
}
