package scheduling

import (
	"strings"
	"time"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
)

// ShiftInput is the payload for creating a shift.
type ShiftInput struct {
	Title         string         `json:"title"`
	Location      model.Location `json:"location"`
	StartsAt      time.Time      `json:"starts_at"`
	EndsAt        time.Time      `json:"ends_at"`
	RequiredCount int            `json:"required_count"`
	PayRate       *float64       `json:"pay_rate"`
	Requirements  []string       `json:"requirements"`
	ApplyDeadline *time.Time     `json:"apply_deadline"`
	CrewLeaderUID *string        `json:"crew_leader_uid"`
	IsPublicPool  bool           `json:"is_public_pool"`
}

func (in ShiftInput) validate() error {
	return validateShiftFields(in.Title, in.Location, in.StartsAt, in.EndsAt, in.RequiredCount, in.PayRate)
}

// ShiftPatch updates a shift. Nil fields are left untouched.
type ShiftPatch struct {
	Title         *string         `json:"title"`
	Location      *model.Location `json:"location"`
	StartsAt      *time.Time      `json:"starts_at"`
	EndsAt        *time.Time      `json:"ends_at"`
	RequiredCount *int            `json:"required_count"`
	PayRate       *float64        `json:"pay_rate"`
	Requirements  *[]string       `json:"requirements"`
	ApplyDeadline *time.Time      `json:"apply_deadline"`
	CrewLeaderUID *string         `json:"crew_leader_uid"`
	IsPublicPool  *bool           `json:"is_public_pool"`
}

// apply writes the patch onto the shift and re-validates the result.
func (p ShiftPatch) apply(sh *model.Shift) error {
	if p.Title != nil {
		sh.Title = *p.Title
	}
	if p.Location != nil {
		sh.Location = *p.Location
	}
	if p.StartsAt != nil {
		sh.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		sh.EndsAt = *p.EndsAt
	}
	if p.RequiredCount != nil {
		sh.RequiredCount = *p.RequiredCount
	}
	if p.PayRate != nil {
		sh.PayRate = p.PayRate
	}
	if p.Requirements != nil {
		sh.Requirements = *p.Requirements
	}
	if p.ApplyDeadline != nil {
		sh.ApplyDeadline = p.ApplyDeadline
	}
	if p.CrewLeaderUID != nil {
		sh.CrewLeaderUID = p.CrewLeaderUID
	}
	if p.IsPublicPool != nil {
		sh.IsPublicPool = *p.IsPublicPool
	}
	if err := validateShiftFields(sh.Title, sh.Location, sh.StartsAt, sh.EndsAt, sh.RequiredCount, sh.PayRate); err != nil {
		return err
	}
	if sh.RequiredCount < sh.FilledCount {
		return apperr.Validation("required_below_filled", "required count cannot drop below the number of confirmed assignees")
	}
	return nil
}

func validateShiftFields(title string, loc model.Location, startsAt, endsAt time.Time, requiredCount int, payRate *float64) error {
	if len(strings.TrimSpace(title)) < 2 {
		return apperr.Validation("invalid_title", "title must be at least 2 characters")
	}
	if strings.TrimSpace(loc.Name) == "" {
		return apperr.Validation("location_required", "location name is required")
	}
	if (loc.Lat == nil) != (loc.Lng == nil) {
		return apperr.Validation("invalid_coordinates", "latitude and longitude must be provided together")
	}
	if startsAt.IsZero() || endsAt.IsZero() {
		return apperr.Validation("invalid_time_range", "starts_at and ends_at are required")
	}
	if !startsAt.Before(endsAt) {
		return apperr.Validation("invalid_time_range", "starts_at must be before ends_at")
	}
	if requiredCount < 1 {
		return apperr.Validation("invalid_required_count", "required count must be at least 1")
	}
	if payRate != nil && *payRate < 0 {
		return apperr.Validation("invalid_pay_rate", "pay rate cannot be negative")
	}
	return nil
}

// TimeEntryInput is the payload for creating or updating a time entry.
type TimeEntryInput struct {
	UID      string    `json:"uid"`
	ClockIn  time.Time `json:"clock_in"`
	ClockOut time.Time `json:"clock_out"`
	Note     *string   `json:"note"`
}

func (in TimeEntryInput) validate() error {
	if in.ClockIn.IsZero() || in.ClockOut.IsZero() {
		return apperr.Validation("invalid_clock_range", "clock_in and clock_out are required")
	}
	if !in.ClockIn.Before(in.ClockOut) {
		return apperr.Validation("invalid_clock_range", "clock_in must be before clock_out")
	}
	if in.ClockOut.Sub(in.ClockIn) > 24*time.Hour {
		return apperr.Validation("duration_too_long", "a time entry cannot span more than 24 hours")
	}
	return nil
}

// ShiftWithCounts is a shift annotated with its pending application count,
// for the admin listing.
type ShiftWithCounts struct {
	model.Shift
	PendingApplications int `json:"pending_applications"`
}

// Assignee is a confirmed assignment joined with the member's profile.
type Assignee struct {
	Assignment  model.Assignment `json:"assignment"`
	DisplayName string           `json:"display_name"`
	Email       string           `json:"email"`
}

// AcceptResult is the application/assignment pair produced by accepting an
// application.
type AcceptResult struct {
	Application *model.Application `json:"application"`
	Assignment  *model.Assignment  `json:"assignment"`
}

// FreelancerApplication is an application joined with its shift and the
// owning tenant's name, for the cross-tenant freelancer view.
type FreelancerApplication struct {
	Application model.Application `json:"application"`
	Shift       model.Shift       `json:"shift"`
	TenantName  string            `json:"tenant_name"`
}
