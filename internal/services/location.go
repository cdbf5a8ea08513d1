package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/digitalkrishi/backend/internal/database"
	"github.com/digitalkrishi/backend/internal/geo"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LocationService answers geo queries against the retailer catalog.
type LocationService struct {
	repoManager *repository.RepositoryManager
	cache       *database.Cache
	logger      *logrus.Logger
}

func NewLocationService(
	repoManager *repository.RepositoryManager,
	cache *database.Cache,
	logger *logrus.Logger,
) *LocationService {
	return &LocationService{
		repoManager: repoManager,
		cache:       cache,
		logger:      logger,
	}
}

// FindNearby returns retailers within radiusKm of the query point, closest
// first. Results are cached for a short window; the cache is best-effort and
// never fails the query.
func (s *LocationService) FindNearby(ctx context.Context, lat, lon, radiusKm float64, opts geo.NearbyOptions) ([]models.RetailerWithDistance, error) {
	cacheKey := s.nearbyCacheKey(lat, lon, radiusKm, opts)

	if cached, err := s.cache.GetCachedNearbyRetailers(ctx, cacheKey); err == nil {
		s.logger.WithField("cache_key", cacheKey).Debug("Nearby retailers served from cache")
		return cached, nil
	}

	retailers, err := s.repoManager.Retailer.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load retailers: %w", err)
	}

	results := geo.FindNearby(lat, lon, radiusKm, retailers, opts)

	if err := s.cache.CacheNearbyRetailers(ctx, cacheKey, results, database.DefaultExpiration); err != nil {
		s.logger.WithError(err).Warn("Failed to cache nearby retailers")
	}

	return results, nil
}

func (s *LocationService) nearbyCacheKey(lat, lon, radiusKm float64, opts geo.NearbyOptions) string {
	verified := "any"
	if opts.IsVerified != nil {
		verified = fmt.Sprintf("%t", *opts.IsVerified)
	}
	raw := fmt.Sprintf("%.4f:%.4f:%.1f:%s:%s:%d",
		lat, lon, radiusKm, strings.Join(opts.Services, ","), verified, opts.Limit)
	return utils.MD5Hash(raw)
}

// DistanceTo computes the distance from a point to one retailer.
func (s *LocationService) DistanceTo(retailerID uuid.UUID, lat, lon float64) (*models.DistanceResponse, error) {
	retailer, err := s.repoManager.Retailer.GetByID(retailerID)
	if err != nil {
		return nil, err
	}

	if retailer.Latitude == nil || retailer.Longitude == nil {
		return nil, fmt.Errorf("retailer %s has no coordinates", retailerID)
	}

	return &models.DistanceResponse{
		RetailerID:   retailer.ID,
		RetailerName: retailer.Name,
		DistanceKm:   geo.Distance(lat, lon, *retailer.Latitude, *retailer.Longitude),
		Latitude:     retailer.Latitude,
		Longitude:    retailer.Longitude,
		Address:      retailer.Address,
	}, nil
}

// AreaCoverage reports the bounding box of the catalog.
func (s *LocationService) AreaCoverage() (*models.AreaCoverage, error) {
	return s.repoManager.Retailer.AreaCoverage()
}

// ServiceTags returns the distinct service tags with retailer counts, most
// common first.
func (s *LocationService) ServiceTags() ([]models.ServiceTagCount, error) {
	counts, err := s.repoManager.Retailer.ServiceTags()
	if err != nil {
		return nil, err
	}

	tags := make([]models.ServiceTagCount, 0, len(counts))
	for name, count := range counts {
		tags = append(tags, models.ServiceTagCount{Name: name, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})

	return tags, nil
}

// Rate folds a new rating into the retailer's running average. Ratings are
// anonymous and unweighted.
func (s *LocationService) Rate(ctx context.Context, retailerID uuid.UUID, rating float64) (*models.Retailer, error) {
	if rating < 0 || rating > 5 {
		return nil, fmt.Errorf("rating out of range: %f", rating)
	}

	retailer, err := s.repoManager.Retailer.GetByID(retailerID)
	if err != nil {
		return nil, err
	}

	if retailer.Rating == 0 {
		retailer.Rating = rating
	} else {
		retailer.Rating = (retailer.Rating + rating) / 2
	}
	retailer.Rating = math.Round(retailer.Rating*100) / 100

	if err := s.repoManager.Retailer.Update(retailer); err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateNearbyCache(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate nearby cache")
	}

	return retailer, nil
}
