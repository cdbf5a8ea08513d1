package geo

import (
	"testing"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func retailer(id string, lat, lon *float64) models.Retailer {
	r := models.Retailer{
		Name:      "Retailer " + id,
		Latitude:  lat,
		Longitude: lon,
	}
	r.ID = uuid.MustParse(id)
	return r
}

func TestDistance_SamePointIsZero(t *testing.T) {
	// Kerala centroid
	d := Distance(10.8505, 76.2711, 10.8505, 76.2711)
	assert.Equal(t, 0.0, d)
}

func TestDistance_KochiToTrivandrum(t *testing.T) {
	// Known city pair, roughly 160 km apart
	d := Distance(9.9312, 76.2673, 8.5241, 76.9366)
	assert.GreaterOrEqual(t, d, 158.0)
	assert.LessOrEqual(t, d, 162.0)
}

func TestDistance_Symmetry(t *testing.T) {
	d1 := Distance(9.9312, 76.2673, 8.5241, 76.9366)
	d2 := Distance(8.5241, 76.9366, 9.9312, 76.2673)
	assert.InDelta(t, d1, d2, 1e-6)
}

func TestFindNearby_EmptyCatalog(t *testing.T) {
	results := FindNearby(10.0, 76.0, 10, nil, NearbyOptions{})
	assert.Empty(t, results)
}

func TestFindNearby_Deterministic(t *testing.T) {
	candidates := []models.Retailer{
		retailer("11111111-1111-1111-1111-111111111111", ptr(10.01), ptr(76.0)),
		retailer("22222222-2222-2222-2222-222222222222", ptr(10.02), ptr(76.0)),
		retailer("33333333-3333-3333-3333-333333333333", ptr(10.005), ptr(76.0)),
	}

	first := FindNearby(10.0, 76.0, 50, candidates, NearbyOptions{})
	second := FindNearby(10.0, 76.0, 50, candidates, NearbyOptions{})

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Distance, second[i].Distance)
	}
}

func TestFindNearby_SortedByDistance(t *testing.T) {
	candidates := []models.Retailer{
		retailer("11111111-1111-1111-1111-111111111111", ptr(10.5), ptr(76.0)),
		retailer("22222222-2222-2222-2222-222222222222", ptr(10.1), ptr(76.0)),
		retailer("33333333-3333-3333-3333-333333333333", ptr(10.3), ptr(76.0)),
	}

	results := FindNearby(10.0, 76.0, 100, candidates, NearbyOptions{})
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestFindNearby_TieBreakByID(t *testing.T) {
	// Identical coordinates, so identical distance. Lower ID must come first
	// regardless of input order.
	a := retailer("aaaaaaaa-0000-0000-0000-000000000000", ptr(10.1), ptr(76.0))
	b := retailer("bbbbbbbb-0000-0000-0000-000000000000", ptr(10.1), ptr(76.0))

	forward := FindNearby(10.0, 76.0, 50, []models.Retailer{a, b}, NearbyOptions{})
	reversed := FindNearby(10.0, 76.0, 50, []models.Retailer{b, a}, NearbyOptions{})

	require.Len(t, forward, 2)
	require.Len(t, reversed, 2)
	assert.Equal(t, a.ID, forward[0].ID)
	assert.Equal(t, a.ID, reversed[0].ID)
}

func TestFindNearby_RadiusBoundary(t *testing.T) {
	inside := retailer("11111111-1111-1111-1111-111111111111", ptr(10.0), ptr(76.0))
	results := FindNearby(10.0, 76.0, 0, []models.Retailer{inside}, NearbyOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Distance)

	// ~0.09 degrees latitude is about 10 km
	far := retailer("22222222-2222-2222-2222-222222222222", ptr(10.09), ptr(76.0))
	within := FindNearby(10.0, 76.0, Distance(10.0, 76.0, 10.09, 76.0), []models.Retailer{far}, NearbyOptions{})
	assert.Len(t, within, 1)

	excluded := FindNearby(10.0, 76.0, Distance(10.0, 76.0, 10.09, 76.0)-0.01, []models.Retailer{far}, NearbyOptions{})
	assert.Empty(t, excluded)
}

func TestFindNearby_MissingCoordinatesExcluded(t *testing.T) {
	candidates := []models.Retailer{
		retailer("11111111-1111-1111-1111-111111111111", nil, ptr(76.0)),
		retailer("22222222-2222-2222-2222-222222222222", ptr(10.0), nil),
		retailer("33333333-3333-3333-3333-333333333333", ptr(10.0), ptr(76.0)),
	}

	results := FindNearby(10.0, 76.0, 10000, candidates, NearbyOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, candidates[2].ID, results[0].ID)
}

func TestFindNearby_VerifiedFilter(t *testing.T) {
	verified := retailer("11111111-1111-1111-1111-111111111111", ptr(10.0), ptr(76.0))
	verified.IsVerified = true
	unverified := retailer("22222222-2222-2222-2222-222222222222", ptr(10.0), ptr(76.0))

	wantVerified := true
	results := FindNearby(10.0, 76.0, 50, []models.Retailer{verified, unverified}, NearbyOptions{IsVerified: &wantVerified})
	require.Len(t, results, 1)
	assert.Equal(t, verified.ID, results[0].ID)

	// Tri-state: nil means don't care
	all := FindNearby(10.0, 76.0, 50, []models.Retailer{verified, unverified}, NearbyOptions{})
	assert.Len(t, all, 2)
}

func TestFindNearby_ServicesFilter(t *testing.T) {
	seeds := retailer("11111111-1111-1111-1111-111111111111", ptr(10.0), ptr(76.0))
	seeds.Services = models.StringArray{"seeds", "fertilizer"}
	tools := retailer("22222222-2222-2222-2222-222222222222", ptr(10.0), ptr(76.0))
	tools.Services = models.StringArray{"tools"}

	results := FindNearby(10.0, 76.0, 50, []models.Retailer{seeds, tools}, NearbyOptions{Services: []string{"fertilizer", "pesticide"}})
	require.Len(t, results, 1)
	assert.Equal(t, seeds.ID, results[0].ID)
}

func TestFindNearby_LimitTruncates(t *testing.T) {
	candidates := []models.Retailer{
		retailer("11111111-1111-1111-1111-111111111111", ptr(10.1), ptr(76.0)),
		retailer("22222222-2222-2222-2222-222222222222", ptr(10.2), ptr(76.0)),
		retailer("33333333-3333-3333-3333-333333333333", ptr(10.3), ptr(76.0)),
	}

	results := FindNearby(10.0, 76.0, 100, candidates, NearbyOptions{Limit: 2})
	require.Len(t, results, 2)
	assert.Equal(t, candidates[0].ID, results[0].ID)
	assert.Equal(t, candidates[1].ID, results[1].ID)
}
