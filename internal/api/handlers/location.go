package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/digitalkrishi/backend/internal/geo"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/repository"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRadiusKm = 10.0
	maxRadiusKm     = 100.0
	maxNearbyLimit  = 100
)

type LocationHandler struct {
	locationService *services.LocationService
	repoManager     *repository.RepositoryManager
	logger          *logrus.Logger
}

func NewLocationHandler(
	locationService *services.LocationService,
	repoManager *repository.RepositoryManager,
	logger *logrus.Logger,
) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		repoManager:     repoManager,
		logger:          logger,
	}
}

// HandleCreateRetailer registers a new retailer.
func (h *LocationHandler) HandleCreateRetailer(c *gin.Context) {
	var req models.RetailerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if !validLatitude(*req.Latitude) || !validLongitude(*req.Longitude) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Coordinates out of range", nil)
		return
	}

	retailer := &models.Retailer{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Services:      models.StringArray(req.Services),
	}

	if err := h.repoManager.Retailer.Create(retailer); err != nil {
		h.logger.WithError(err).Error("Failed to create retailer")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create retailer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Retailer created", retailer)
}

// HandleListRetailers lists retailers with optional filters.
func (h *LocationHandler) HandleListRetailers(c *gin.Context) {
	filters := models.RetailerListFilters{
		Offset: parseIntQuery(c, "offset", 0, 0, 10000),
		Limit:  parseIntQuery(c, "limit", 50, 1, 200),
	}

	if verified := c.Query("verified"); verified != "" {
		value := verified == "true"
		filters.IsVerified = &value
	}
	if services := c.Query("services"); services != "" {
		filters.Services = strings.Split(services, ",")
	}

	retailers, err := h.repoManager.Retailer.List(filters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list retailers")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list retailers", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Retailers retrieved", retailers)
}

// HandleGetRetailer returns one retailer by id.
func (h *LocationHandler) HandleGetRetailer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	retailer, err := h.repoManager.Retailer.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Retailer not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get retailer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Retailer retrieved", retailer)
}

// HandleUpdateRetailer updates a retailer's details.
func (h *LocationHandler) HandleUpdateRetailer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	retailer, err := h.repoManager.Retailer.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Retailer not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get retailer", err)
		return
	}

	var req models.RetailerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if !validLatitude(*req.Latitude) || !validLongitude(*req.Longitude) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Coordinates out of range", nil)
		return
	}

	retailer.Name = req.Name
	retailer.ContactPerson = req.ContactPerson
	retailer.PhoneNumber = req.PhoneNumber
	retailer.Email = req.Email
	retailer.Address = req.Address
	retailer.Latitude = req.Latitude
	retailer.Longitude = req.Longitude
	retailer.Services = models.StringArray(req.Services)

	if err := h.repoManager.Retailer.Update(retailer); err != nil {
		h.logger.WithError(err).Error("Failed to update retailer")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update retailer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Retailer updated", retailer)
}

// HandleDeleteRetailer removes a retailer.
func (h *LocationHandler) HandleDeleteRetailer(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.repoManager.Retailer.Delete(id); err != nil {
		h.logger.WithError(err).Error("Failed to delete retailer")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete retailer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Retailer deleted", nil)
}

// HandleNearby finds retailers around a point, closest first.
func (h *LocationHandler) HandleNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil || !validLatitude(lat) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid latitude", nil)
		return
	}

	lon, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil || !validLongitude(lon) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid longitude", nil)
		return
	}

	radius := defaultRadiusKm
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 || radius > maxRadiusKm {
			utils.ErrorResponse(c, http.StatusBadRequest, "Radius must be > 0 and <= 100 km", nil)
			return
		}
	}

	opts := geo.NearbyOptions{
		Limit: parseIntQuery(c, "limit", geo.DefaultLimit, 1, maxNearbyLimit),
	}
	if services := c.Query("services"); services != "" {
		opts.Services = strings.Split(services, ",")
	}
	if c.Query("verified_only") == "true" {
		verified := true
		opts.IsVerified = &verified
	}

	results, err := h.locationService.FindNearby(c.Request.Context(), lat, lon, radius, opts)
	if err != nil {
		h.logger.WithError(err).Error("Nearby retailer lookup failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to find nearby retailers", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Nearby retailers retrieved", gin.H{
		"retailers": results,
		"count":     len(results),
		"radius_km": radius,
	})
}

// HandleDistance returns the distance from a point to one retailer.
func (h *LocationHandler) HandleDistance(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil || !validLatitude(lat) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid latitude", nil)
		return
	}

	lon, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil || !validLongitude(lon) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid longitude", nil)
		return
	}

	distance, err := h.locationService.DistanceTo(id, lat, lon)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Retailer not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute distance", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Distance computed", distance)
}

// HandleRate records an anonymous rating for a retailer.
func (h *LocationHandler) HandleRate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Rating float64 `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Rating must be between 0 and 5", nil)
		return
	}

	retailer, err := h.locationService.Rate(c.Request.Context(), id, req.Rating)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Retailer not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to rate retailer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Rating recorded", gin.H{
		"retailer_id": retailer.ID,
		"rating":      retailer.Rating,
	})
}

// HandleServiceTags lists the available service tags with counts.
func (h *LocationHandler) HandleServiceTags(c *gin.Context) {
	tags, err := h.locationService.ServiceTags()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list service tags")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list services", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Services retrieved", tags)
}

// HandleAreaCoverage reports the bounding box of the retailer catalog.
func (h *LocationHandler) HandleAreaCoverage(c *gin.Context) {
	coverage, err := h.locationService.AreaCoverage()
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute area coverage")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute area coverage", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Area coverage computed", coverage)
}

// Shared helpers

func validLatitude(lat float64) bool  { return lat >= -90 && lat <= 90 }
func validLongitude(lon float64) bool { return lon >= -180 && lon <= 180 }

func parseIntQuery(c *gin.Context, name string, def, min, max int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}
