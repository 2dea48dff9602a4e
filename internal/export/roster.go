// Package export renders tenant scheduling data as xlsx workbooks.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

const (
	sheetShifts      = "Shifts"
	sheetAssignments = "Assignments"
	timeLayout       = "2006-01-02 15:04"
)

// Roster builds the tenant roster workbook: a shift summary sheet and one
// row per confirmed assignee.
type Roster struct {
	store store.SchedulingStore
}

func NewRoster(st store.SchedulingStore) *Roster {
	return &Roster{store: st}
}

// Write renders the workbook for the tenant's shifts matching the filter.
func (r *Roster) Write(ctx context.Context, tenantID string, filter store.ShiftFilter, w io.Writer) error {
	shifts, err := r.store.ListShifts(ctx, tenantID, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetShifts); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetAssignments); err != nil {
		return err
	}

	header := []interface{}{"Shift ID", "Title", "Status", "Starts (UTC)", "Ends (UTC)", "Location", "Filled", "Required", "Pay rate"}
	if err := f.SetSheetRow(sheetShifts, "A1", &header); err != nil {
		return err
	}
	assignmentHeader := []interface{}{"Shift ID", "Shift title", "Worker UID", "Worker name", "Worker email", "Assigned (UTC)"}
	if err := f.SetSheetRow(sheetAssignments, "A1", &assignmentHeader); err != nil {
		return err
	}

	assignmentRow := 2
	for i, sh := range shifts {
		payRate := ""
		if sh.PayRate != nil {
			payRate = fmt.Sprintf("%.2f", *sh.PayRate)
		}
		row := []interface{}{
			sh.ID,
			sh.Title,
			string(sh.Status),
			sh.StartsAt.UTC().Format(timeLayout),
			sh.EndsAt.UTC().Format(timeLayout),
			sh.Location.Name,
			sh.FilledCount,
			sh.RequiredCount,
			payRate,
		}
		if err := f.SetSheetRow(sheetShifts, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}

		assignmentRow, err = r.writeAssignees(ctx, f, tenantID, &shifts[i], assignmentRow)
		if err != nil {
			return err
		}
	}

	return f.Write(w)
}

func (r *Roster) writeAssignees(ctx context.Context, f *excelize.File, tenantID string, sh *model.Shift, row int) (int, error) {
	assignments, err := r.store.ListAssignmentsByShift(ctx, tenantID, sh.ID)
	if err != nil {
		return row, err
	}
	for _, a := range assignments {
		if !a.IsConfirmed() {
			continue
		}
		name, email := "", ""
		member, err := r.store.GetMember(ctx, tenantID, a.UID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return row, err
		}
		if err == nil {
			name, email = member.DisplayName, member.Email
		}
		cells := []interface{}{
			sh.ID,
			sh.Title,
			a.UID,
			name,
			email,
			a.CreatedAt.UTC().Format(timeLayout),
		}
		if err := f.SetSheetRow(sheetAssignments, fmt.Sprintf("A%d", row), &cells); err != nil {
			return row, err
		}
		row++
	}
	return row, nil
}

// FileName is the download name for a roster generated at ts.
func FileName(ts time.Time) string {
	return "roster-" + ts.UTC().Format("20060102-150405") + ".xlsx"
}
