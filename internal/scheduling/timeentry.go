package scheduling

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
)

// TimeEntryService records the hours actually worked on a shift. At most
// one entry exists per worker and shift.
type TimeEntryService struct {
	*core
}

// Create records a time entry for a confirmed assignee. Allowed for
// managers and the shift's crew leader.
func (s *TimeEntryService) Create(ctx context.Context, actor Actor, shiftID string, input TimeEntryInput) (*model.ShiftTimeEntry, error) {
	defer prometheus.TrackOperation("time_entry_create")(time.Now())

	if input.UID == "" {
		return nil, apperr.Validation("uid_required", "uid is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var (
		entry *model.ShiftTimeEntry
		ob    *outbox
	)
	err := s.atomic(ctx, actor.TenantID, func(tx store.Tx) error {
		ob = newOutbox()

		shift, err := tx.GetShift(shiftID)
		if err != nil {
			return notFoundErr(err, "shift_not_found", "shift not found")
		}
		if !actor.IsManager() && (shift.CrewLeaderUID == nil || *shift.CrewLeaderUID != actor.UID) {
			return apperr.Forbidden("not_crew_leader", "only the crew leader or a manager can record time entries")
		}
		assignment, err := tx.FindConfirmedAssignment(shiftID, input.UID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return apperr.Validation("no_confirmed_assignment", "the worker has no confirmed assignment on this shift")
		}
		existing, err := tx.FindTimeEntry(shiftID, input.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Validation("time_entry_exists", "a time entry for this worker already exists")
		}

		entry = &model.ShiftTimeEntry{
			TenantID:        actor.TenantID,
			ShiftID:         shiftID,
			UID:             input.UID,
			ClockIn:         input.ClockIn,
			ClockOut:        input.ClockOut,
			DurationMinutes: model.ComputeDurationMinutes(input.ClockIn, input.ClockOut),
			EnteredByUID:    actor.UID,
			Note:            input.Note,
		}
		if err := tx.CreateTimeEntry(entry); err != nil {
			return err
		}

		ob.Audit(actor.TenantID, actor.UID, "time_entry.created", "time_entry", entry.ID, map[string]string{
			"shift_id": shiftID,
			"uid":      input.UID,
		})
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Validation("time_entry_exists", "a time entry for this worker already exists")
	}
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.core)

	prometheus.RecordTimeEntryOperation("create")
	return entry, nil
}

// Update corrects the recorded times or note of an entry.
func (s *TimeEntryService) Update(ctx context.Context, actor Actor, entryID string, input TimeEntryInput) (*model.ShiftTimeEntry, error) {
	defer prometheus.TrackOperation("time_entry_update")(time.Now())

	if err := input.validate(); err != nil {
		return nil, err
	}

	entry, err := s.store.GetTimeEntry(ctx, actor.TenantID, entryID)
	if err != nil {
		return nil, notFoundErr(err, "time_entry_not_found", "time entry not found")
	}

	allowed := actor.IsManager()
	if !allowed {
		shift, err := s.store.GetShift(ctx, actor.TenantID, entry.ShiftID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if err == nil && shift.CrewLeaderUID != nil && *shift.CrewLeaderUID == actor.UID {
			allowed = true
		}
	}
	if !allowed {
		return nil, apperr.Forbidden("not_crew_leader", "only the crew leader or a manager can edit time entries")
	}

	entry.ClockIn = input.ClockIn
	entry.ClockOut = input.ClockOut
	entry.DurationMinutes = model.ComputeDurationMinutes(input.ClockIn, input.ClockOut)
	if input.Note != nil {
		entry.Note = input.Note
	}
	if err := s.store.UpdateTimeEntry(ctx, entry); err != nil {
		return nil, notFoundErr(err, "time_entry_not_found", "time entry not found")
	}

	ob := newOutbox()
	ob.Audit(actor.TenantID, actor.UID, "time_entry.updated", "time_entry", entry.ID, map[string]string{
		"shift_id": entry.ShiftID,
		"uid":      entry.UID,
	})
	ob.Flush(ctx, s.core)

	prometheus.RecordTimeEntryOperation("update")
	return entry, nil
}

// ListByShift returns a shift's time entries.
func (s *TimeEntryService) ListByShift(ctx context.Context, actor Actor, shiftID string) ([]model.ShiftTimeEntry, error) {
	if _, err := s.store.GetShift(ctx, actor.TenantID, shiftID); err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}
	return s.store.ListTimeEntriesByShift(ctx, actor.TenantID, shiftID)
}

// generateTimeEntries backfills one entry per confirmed assignee spanning
// the completed shift's window, skipping workers that already have one.
// Runs after the completion committed; per-entry failures are logged and
// the rest still get their entries.
func (s *core) generateTimeEntries(ctx context.Context, actor Actor, shift model.Shift, uids []string) {
	log := logger.FromContext(ctx)
	for _, uid := range uids {
		err := s.atomic(ctx, shift.TenantID, func(tx store.Tx) error {
			existing, err := tx.FindTimeEntry(shift.ID, uid)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}
			return tx.CreateTimeEntry(&model.ShiftTimeEntry{
				TenantID:        shift.TenantID,
				ShiftID:         shift.ID,
				UID:             uid,
				ClockIn:         shift.StartsAt,
				ClockOut:        shift.EndsAt,
				DurationMinutes: model.ComputeDurationMinutes(shift.StartsAt, shift.EndsAt),
				EnteredByUID:    actor.UID,
			})
		})
		if err != nil {
			log.Warn("time entry generation failed",
				zap.String("shift_id", shift.ID), zap.String("uid", uid), zap.Error(err))
			continue
		}
		prometheus.RecordTimeEntryOperation("autogenerate")
	}
}
