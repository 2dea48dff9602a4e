package memory

import (
	"time"

	"shiftpool-service/internal/model"
)

// Clone helpers keep callers from mutating store state through shared
// pointers or slices.

func cloneShift(s *model.Shift) *model.Shift {
	clone := *s
	clone.PayRate = cloneFloatPtr(s.PayRate)
	clone.ApplyDeadline = cloneTimePtr(s.ApplyDeadline)
	clone.CrewLeaderUID = cloneStringPtr(s.CrewLeaderUID)
	clone.Location.Address = cloneStringPtr(s.Location.Address)
	clone.Location.Lat = cloneFloatPtr(s.Location.Lat)
	clone.Location.Lng = cloneFloatPtr(s.Location.Lng)
	if s.Requirements != nil {
		clone.Requirements = append([]string(nil), s.Requirements...)
	}
	return &clone
}

func cloneApplication(a *model.Application) *model.Application {
	clone := *a
	clone.Note = cloneStringPtr(a.Note)
	return &clone
}

func cloneAssignment(a *model.Assignment) *model.Assignment {
	clone := *a
	clone.CancelledAt = cloneTimePtr(a.CancelledAt)
	return &clone
}

func cloneTimeEntry(e *model.ShiftTimeEntry) *model.ShiftTimeEntry {
	clone := *e
	clone.Note = cloneStringPtr(e.Note)
	return &clone
}

func cloneDocument(d *model.ShiftDocument) *model.ShiftDocument {
	clone := *d
	return &clone
}

func cloneMember(m *model.TenantMember) *model.TenantMember {
	clone := *m
	return &clone
}

func cloneFreelancer(f *model.Freelancer) *model.Freelancer {
	clone := *f
	clone.HomeTenantID = cloneStringPtr(f.HomeTenantID)
	return &clone
}

func cloneAuditEntry(e *model.AuditLogEntry) *model.AuditLogEntry {
	clone := *e
	if e.Details != nil {
		clone.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
