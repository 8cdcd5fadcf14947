package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoescuela/scheduling-api/internal/dto"
)

type availabilityServiceMock struct {
	slots []dto.AvailableSlot
	err   error
	calls int
}

func (m *availabilityServiceMock) ComputeAvailableSlots(ctx context.Context, instructorID, classTypeID string, dateFrom, dateTo *time.Time) ([]dto.AvailableSlot, error) {
	m.calls++
	return m.slots, m.err
}

type availabilityCacheMock struct {
	entries map[string][]byte
	sets    []string
}

func newAvailabilityCacheMock() *availabilityCacheMock {
	return &availabilityCacheMock{entries: make(map[string][]byte)}
}

func (m *availabilityCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (m *availabilityCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.sets = append(m.sets, key)
	return nil
}

func availabilityTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	return c, w
}

func TestAvailabilityHandlerListComputesAndCaches(t *testing.T) {
	svc := &availabilityServiceMock{slots: []dto.AvailableSlot{
		{Date: "2026-09-07", StartTime: "09:00", EndTime: "10:00"},
	}}
	cache := newAvailabilityCacheMock()
	handler := NewAvailabilityHandler(svc, cache, nil, AvailabilityHandlerConfig{CacheEnabled: true})

	c, w := availabilityTestContext(t, "/instructors/inst-1/availability")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.calls)
	require.Len(t, cache.sets, 1)
	assert.Equal(t, "availability:inst-1:any:default:default", cache.sets[0])
}

func TestAvailabilityHandlerListServesFromCache(t *testing.T) {
	svc := &availabilityServiceMock{}
	cache := newAvailabilityCacheMock()
	cached, _ := json.Marshal([]dto.AvailableSlot{{Date: "2026-09-07", StartTime: "09:00", EndTime: "10:00"}})
	cache.entries["availability:inst-1:any:default:default"] = cached
	handler := NewAvailabilityHandler(svc, cache, nil, AvailabilityHandlerConfig{CacheEnabled: true})

	c, w := availabilityTestContext(t, "/instructors/inst-1/availability")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.calls, "cache hit must not recompute")

	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestAvailabilityHandlerListKeyIncludesFilters(t *testing.T) {
	svc := &availabilityServiceMock{}
	cache := newAvailabilityCacheMock()
	handler := NewAvailabilityHandler(svc, cache, nil, AvailabilityHandlerConfig{CacheEnabled: true})

	c, w := availabilityTestContext(t, "/instructors/inst-1/availability?class_type_id=ct-practical&date_from=2026-09-07&date_to=2026-09-08")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, cache.sets, 1)
	assert.Equal(t, "availability:inst-1:ct-practical:2026-09-07:2026-09-08", cache.sets[0])
}

func TestAvailabilityHandlerListRejectsBadDate(t *testing.T) {
	handler := NewAvailabilityHandler(&availabilityServiceMock{}, nil, nil, AvailabilityHandlerConfig{})

	c, w := availabilityTestContext(t, "/instructors/inst-1/availability?date_from=07-09-2026")
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
