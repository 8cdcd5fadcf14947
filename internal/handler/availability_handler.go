package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/service"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
	"github.com/autoescuela/scheduling-api/pkg/response"
)

type availabilityService interface {
	ComputeAvailableSlots(ctx context.Context, instructorID, classTypeID string, dateFrom, dateTo *time.Time) ([]dto.AvailableSlot, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AvailabilityHandlerConfig tunes response caching.
type AvailabilityHandlerConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// AvailabilityHandler exposes the instructor availability endpoint with
// an optional Redis response cache.
type AvailabilityHandler struct {
	service availabilityService
	cache   availabilityCache
	metrics *service.MetricsService
	config  AvailabilityHandlerConfig
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityService, cache availabilityCache, metrics *service.MetricsService, config AvailabilityHandlerConfig) *AvailabilityHandler {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &AvailabilityHandler{service: svc, cache: cache, metrics: metrics, config: config}
}

// List godoc
// @Summary List available slots for an instructor
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor ID"
// @Param class_type_id query string false "Restrict to a class type"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	instructorID := c.Param("id")
	classTypeID := c.Query("class_type_id")

	dateFrom, err := parseDateQuery(c, "date_from")
	if err != nil {
		response.Error(c, err)
		return
	}
	dateTo, err := parseDateQuery(c, "date_to")
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	key := availabilityCacheKey(instructorID, classTypeID, dateFrom, dateTo)

	if h.cacheEnabled() {
		var cached []dto.AvailableSlot
		start := time.Now()
		err := h.cache.Get(ctx, key, &cached)
		h.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			response.JSON(c, http.StatusOK, cached, nil, map[string]interface{}{"cache_hit": true})
			return
		}
	}

	slots, err := h.service.ComputeAvailableSlots(ctx, instructorID, classTypeID, dateFrom, dateTo)
	if err != nil {
		response.Error(c, err)
		return
	}
	if slots == nil {
		slots = []dto.AvailableSlot{}
	}

	if h.cacheEnabled() {
		// A failed write only means the next request recomputes.
		_ = h.cache.Set(ctx, key, slots, h.config.CacheTTL)
	}

	response.JSON(c, http.StatusOK, slots, nil)
}

func (h *AvailabilityHandler) cacheEnabled() bool {
	return h.config.CacheEnabled && h.cache != nil
}

func availabilityCacheKey(instructorID, classTypeID string, from, to *time.Time) string {
	fromLabel, toLabel := "default", "default"
	if from != nil {
		fromLabel = from.Format("2006-01-02")
	}
	if to != nil {
		toLabel = to.Format("2006-01-02")
	}
	if classTypeID == "" {
		classTypeID = "any"
	}
	return fmt.Sprintf("availability:%s:%s:%s:%s", instructorID, classTypeID, fromLabel, toLabel)
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be YYYY-MM-DD")
	}
	return &t, nil
}
