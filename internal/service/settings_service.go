package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

// Setting keys consumed by the booking engine.
const (
	SettingCancellationHoursLimit      = "cancellation_hours_limit"
	SettingCancellationAllowAfterLimit = "cancellation_allow_after_limit"
	SettingLatePenaltyEnabled          = "late_cancellation_penalty_enabled"
	SettingLatePenaltyAmount           = "late_cancellation_penalty_amount"
	SettingAttendanceToleranceMinutes  = "attendance_tolerance_minutes"
	SettingAbsentCountsAsNoShow        = "absent_counts_as_no_show"
	SettingNoShowPenaltyEnabled        = "no_show_penalty_enabled"
	SettingNoShowPenaltyAmount         = "no_show_penalty_amount"
	SettingNoShowLimit                 = "no_show_limit"
)

var settingDefaults = map[string]string{
	SettingCancellationHoursLimit:      "4",
	SettingCancellationAllowAfterLimit: "true",
	SettingLatePenaltyEnabled:          "true",
	SettingLatePenaltyAmount:           "50000",
	SettingAttendanceToleranceMinutes:  "10",
	SettingAbsentCountsAsNoShow:        "true",
	SettingNoShowPenaltyEnabled:        "true",
	SettingNoShowPenaltyAmount:         "50000",
	SettingNoShowLimit:                 "3",
}

// CancellationSettings bundles the rules applied when an appointment is
// cancelled.
type CancellationSettings struct {
	HoursLimit         int
	AllowAfterLimit    bool
	LatePenaltyEnabled bool
	LatePenaltyAmount  int64
}

// AttendanceSettings bundles the rules applied when attendance is
// marked.
type AttendanceSettings struct {
	ToleranceMinutes     int
	AbsentCountsAsNoShow bool
	NoShowPenaltyEnabled bool
	NoShowPenaltyAmount  int64
	NoShowLimit          int
}

type settingsRepository interface {
	ListAll(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

// SettingsServiceConfig tunes snapshot behaviour.
type SettingsServiceConfig struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

// SettingsService resolves business-rule settings from a cached snapshot
// of the settings table, degrading silently to hardcoded defaults when
// the store is unreachable. Availability and booking must never
// hard-fail because configuration could not be read.
type SettingsService struct {
	repo   settingsRepository
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	snapshot  map[string]string
	fetchedAt time.Time
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsRepository, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SettingsService{repo: repo, logger: logger, ttl: ttl, now: now}
}

// GetString resolves a string setting, falling back to the default table
// and then to the caller-supplied fallback.
func (s *SettingsService) GetString(ctx context.Context, key, fallback string) string {
	if value, ok := s.lookup(ctx, key); ok {
		return value
	}
	if value, ok := settingDefaults[key]; ok {
		return value
	}
	return fallback
}

// GetInt resolves an integer setting.
func (s *SettingsService) GetInt(ctx context.Context, key string, fallback int64) int64 {
	raw := s.GetString(ctx, key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		s.logger.Warn("setting is not an integer, using fallback",
			zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return value
}

// GetBool resolves a boolean setting.
func (s *SettingsService) GetBool(ctx context.Context, key string, fallback bool) bool {
	raw := s.GetString(ctx, key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn("setting is not a boolean, using fallback",
			zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return value
}

// Cancellation returns the cancellation rule bundle.
func (s *SettingsService) Cancellation(ctx context.Context) CancellationSettings {
	return CancellationSettings{
		HoursLimit:         int(s.GetInt(ctx, SettingCancellationHoursLimit, 4)),
		AllowAfterLimit:    s.GetBool(ctx, SettingCancellationAllowAfterLimit, true),
		LatePenaltyEnabled: s.GetBool(ctx, SettingLatePenaltyEnabled, true),
		LatePenaltyAmount:  s.GetInt(ctx, SettingLatePenaltyAmount, 50000),
	}
}

// Attendance returns the attendance rule bundle.
func (s *SettingsService) Attendance(ctx context.Context) AttendanceSettings {
	return AttendanceSettings{
		ToleranceMinutes:     int(s.GetInt(ctx, SettingAttendanceToleranceMinutes, 10)),
		AbsentCountsAsNoShow: s.GetBool(ctx, SettingAbsentCountsAsNoShow, true),
		NoShowPenaltyEnabled: s.GetBool(ctx, SettingNoShowPenaltyEnabled, true),
		NoShowPenaltyAmount:  s.GetInt(ctx, SettingNoShowPenaltyAmount, 50000),
		NoShowLimit:          int(s.GetInt(ctx, SettingNoShowLimit, 3)),
	}
}

// ListSettings returns every persisted setting row for the admin UI.
func (s *SettingsService) ListSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	return rows, nil
}

// UpdateSetting upserts a setting after checking the value against the
// declared type, then drops the snapshot so readers see the change.
func (s *SettingsService) UpdateSetting(ctx context.Context, key, value string, settingType models.SettingType, actor *models.JWTClaims) (*models.Setting, error) {
	switch settingType {
	case models.SettingTypeInt:
		if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" expects an integer value")
		}
	case models.SettingTypeBool:
		if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" expects a boolean value")
		}
	case models.SettingTypeJSON:
		if !json.Valid([]byte(value)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" expects a JSON value")
		}
	case models.SettingTypeString:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported setting type")
	}

	setting := &models.Setting{
		Key:   key,
		Value: value,
		Type:  settingType,
	}
	if actor != nil && actor.UserID != "" {
		setting.UpdatedBy = &actor.UserID
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}

	s.Invalidate()
	return setting, nil
}

// Invalidate drops the snapshot so the next read refetches.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

func (s *SettingsService) lookup(ctx context.Context, key string) (string, bool) {
	snapshot := s.currentSnapshot(ctx)
	if snapshot == nil {
		return "", false
	}
	value, ok := snapshot[key]
	return value, ok
}

func (s *SettingsService) currentSnapshot(ctx context.Context) map[string]string {
	s.mu.RLock()
	snapshot := s.snapshot
	fetchedAt := s.fetchedAt
	s.mu.RUnlock()

	if snapshot != nil && s.now().Sub(fetchedAt) < s.ttl {
		return snapshot
	}

	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		// A stale snapshot beats no snapshot; defaults cover the rest.
		s.logger.Warn("settings fetch failed, serving defaults", zap.Error(err))
		return snapshot
	}

	fresh := make(map[string]string, len(rows))
	for _, row := range rows {
		fresh[row.Key] = row.Value
	}

	s.mu.Lock()
	s.snapshot = fresh
	s.fetchedAt = s.now()
	s.mu.Unlock()

	return fresh
}
