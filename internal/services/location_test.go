package services

import (
	"context"
	"testing"

	"github.com/digitalkrishi/backend/internal/database"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubRetailerRepo struct {
	retailers map[uuid.UUID]*models.Retailer
	updated   *models.Retailer
}

func (r *stubRetailerRepo) Create(retailer *models.Retailer) error {
	if retailer.ID == uuid.Nil {
		retailer.ID = uuid.New()
	}
	r.retailers[retailer.ID] = retailer
	return nil
}

func (r *stubRetailerRepo) GetByID(id uuid.UUID) (*models.Retailer, error) {
	retailer, ok := r.retailers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return retailer, nil
}

func (r *stubRetailerRepo) GetAll() ([]models.Retailer, error) {
	out := make([]models.Retailer, 0, len(r.retailers))
	for _, retailer := range r.retailers {
		out = append(out, *retailer)
	}
	return out, nil
}

func (r *stubRetailerRepo) List(models.RetailerListFilters) ([]models.Retailer, error) {
	return r.GetAll()
}

func (r *stubRetailerRepo) Update(retailer *models.Retailer) error {
	r.updated = retailer
	r.retailers[retailer.ID] = retailer
	return nil
}

func (r *stubRetailerRepo) Delete(id uuid.UUID) error {
	delete(r.retailers, id)
	return nil
}

func (r *stubRetailerRepo) ServiceTags() (map[string]int, error) { return nil, nil }

func (r *stubRetailerRepo) AreaCoverage() (*models.AreaCoverage, error) { return nil, nil }

func newLocationFixture() (*LocationService, *stubRetailerRepo) {
	retailers := &stubRetailerRepo{retailers: make(map[uuid.UUID]*models.Retailer)}
	repoManager := &repository.RepositoryManager{Retailer: retailers}

	// Unreachable Redis; cache operations fail and the service shrugs them off.
	cache := database.NewCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), newTestLogger())

	return NewLocationService(repoManager, cache, newTestLogger()), retailers
}

func seedRetailer(retailers *stubRetailerRepo, rating float64) uuid.UUID {
	lat, lon := 10.0, 76.3
	retailer := &models.Retailer{
		Name:      "Green Agro Stores",
		Latitude:  &lat,
		Longitude: &lon,
		Rating:    rating,
	}
	retailers.Create(retailer)
	return retailer.ID
}

func TestRateFirstRating(t *testing.T) {
	svc, retailers := newLocationFixture()
	id := seedRetailer(retailers, 0)

	retailer, err := svc.Rate(context.Background(), id, 4.5)

	require.NoError(t, err)
	assert.Equal(t, 4.5, retailer.Rating)
	require.NotNil(t, retailers.updated)
}

func TestRateRoundsRunningAverage(t *testing.T) {
	svc, retailers := newLocationFixture()
	id := seedRetailer(retailers, 4.5)

	retailer, err := svc.Rate(context.Background(), id, 4.36)

	require.NoError(t, err)
	// (4.5 + 4.36) / 2 = 4.43, stored to exactly two decimals.
	assert.Equal(t, 4.43, retailer.Rating)
}

func TestRateRejectsOutOfRange(t *testing.T) {
	svc, retailers := newLocationFixture()
	id := seedRetailer(retailers, 4.0)

	_, err := svc.Rate(context.Background(), id, 5.1)
	assert.Error(t, err)

	_, err = svc.Rate(context.Background(), id, -0.1)
	assert.Error(t, err)
}
