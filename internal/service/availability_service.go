package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type availabilityScheduleReader interface {
	ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.WeeklySchedule, error)
	ListOverrides(ctx context.Context, instructorID string, from, to time.Time) ([]models.ScheduleOverride, error)
}

type availabilityAppointmentReader interface {
	ListActiveByInstructor(ctx context.Context, instructorID string, from, to time.Time) ([]models.Appointment, error)
}

// AvailabilityServiceConfig tunes the booking window.
type AvailabilityServiceConfig struct {
	HorizonStartDays int
	HorizonDays      int
	Now              func() time.Time
}

// AvailabilityService expands instructor weekly schedules and one-off
// overrides into concrete bookable slots.
type AvailabilityService struct {
	schedules    availabilityScheduleReader
	appointments availabilityAppointmentReader
	logger       *zap.Logger
	now          func() time.Time
	horizonStart int
	horizonDays  int
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(schedules availabilityScheduleReader, appointments availabilityAppointmentReader, logger *zap.Logger, cfg AvailabilityServiceConfig) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	start := cfg.HorizonStartDays
	if start <= 0 {
		start = 1
	}
	days := cfg.HorizonDays
	if days <= 0 {
		days = 14
	}
	return &AvailabilityService{
		schedules:    schedules,
		appointments: appointments,
		logger:       logger,
		now:          now,
		horizonStart: start,
		horizonDays:  days,
	}
}

// HorizonWindow returns the default student booking window
// [today+start, today+days].
func (s *AvailabilityService) HorizonWindow() (time.Time, time.Time) {
	today := dateOnly(s.now())
	return today.AddDate(0, 0, s.horizonStart), today.AddDate(0, 0, s.horizonDays)
}

// ComputeAvailableSlots returns bookable slots for the instructor over
// the inclusive date range, ascending by date then start time. A nil
// bound defaults to the booking horizon. When classTypeID is set,
// weekly rows restricted to another class type are skipped.
func (s *AvailabilityService) ComputeAvailableSlots(ctx context.Context, instructorID, classTypeID string, dateFrom, dateTo *time.Time) ([]dto.AvailableSlot, error) {
	defaultFrom, defaultTo := s.HorizonWindow()
	from := defaultFrom
	if dateFrom != nil {
		from = dateOnly(*dateFrom)
	}
	to := defaultTo
	if dateTo != nil {
		to = dateOnly(*dateTo)
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to before date_from")
	}

	weekly, err := s.schedules.ListActiveByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedules")
	}
	overrides, err := s.schedules.ListOverrides(ctx, instructorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule overrides")
	}
	appts, err := s.appointments.ListActiveByInstructor(ctx, instructorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}

	busyByDate := make(map[string][]interval)
	for _, appt := range appts {
		iv, err := newInterval(appt.StartTime, appt.EndTime)
		if err != nil {
			s.logger.Warn("skipping appointment with malformed time",
				zap.String("appointment_id", appt.ID), zap.Error(err))
			continue
		}
		key := appt.Date.Format(dateLayout)
		busyByDate[key] = append(busyByDate[key], iv)
	}

	extraByDate := make(map[string][]slotWindow)
	blockedByDate := make(map[string][]interval)
	for _, ov := range overrides {
		key := ov.Date.Format(dateLayout)
		iv, err := newInterval(ov.StartTime, ov.EndTime)
		if err != nil {
			s.logger.Warn("skipping override with malformed time",
				zap.String("override_id", ov.ID), zap.Error(err))
			continue
		}
		if ov.Available {
			extraByDate[key] = append(extraByDate[key], slotWindow{interval: iv, slotMinutes: ov.SlotMinutes})
		} else {
			blockedByDate[key] = append(blockedByDate[key], iv)
		}
	}

	var slots []dto.AvailableSlot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		weekday := int(day.Weekday())

		var windows []slotWindow
		for _, row := range weekly {
			if row.DayOfWeek != weekday {
				continue
			}
			if classTypeID != "" && row.ClassTypeID != nil && *row.ClassTypeID != classTypeID {
				continue
			}
			iv, err := newInterval(row.StartTime, row.EndTime)
			if err != nil {
				s.logger.Warn("skipping schedule row with malformed time",
					zap.String("schedule_id", row.ID), zap.Error(err))
				continue
			}
			windows = append(windows, slotWindow{interval: iv, slotMinutes: row.SlotMinutes})
		}
		windows = append(windows, extraByDate[key]...)

		daySlots := expandWindows(windows, busyByDate[key], blockedByDate[key])
		for _, iv := range daySlots {
			slots = append(slots, dto.AvailableSlot{
				Date:      key,
				StartTime: formatClock(iv.start),
				EndTime:   formatClock(iv.end),
			})
		}
	}

	return slots, nil
}

type interval struct {
	start int
	end   int
}

type slotWindow struct {
	interval
	slotMinutes int
}

func newInterval(start, end string) (interval, error) {
	s, err := parseClock(start)
	if err != nil {
		return interval{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return interval{}, err
	}
	return interval{start: s, end: e}, nil
}

// expandWindows partitions each window into fixed-length slots, dropping
// the trailing partial slot, removing anything that intersects a busy or
// blocked interval, and de-duplicating overlapping windows by start
// time.
func expandWindows(windows []slotWindow, busy, blocked []interval) []interval {
	seen := make(map[int]struct{})
	var out []interval
	for _, w := range windows {
		if w.slotMinutes <= 0 || w.end <= w.start {
			continue
		}
		for cur := w.start; cur+w.slotMinutes <= w.end; cur += w.slotMinutes {
			slot := interval{start: cur, end: cur + w.slotMinutes}
			if _, dup := seen[slot.start]; dup {
				continue
			}
			if intersectsAny(slot, busy) || intersectsAny(slot, blocked) {
				continue
			}
			seen[slot.start] = struct{}{}
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func intersectsAny(slot interval, others []interval) bool {
	for _, other := range others {
		if overlaps(slot.start, slot.end, other.start, other.end) {
			return true
		}
	}
	return false
}
