package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/scheduling"
	"shiftpool-service/internal/store"
	"shiftpool-service/pkg/logger"
)

// CreateShift handles creating a new draft shift
func CreateShift(c echo.Context) error {
	log := logger.FromEcho(c)

	var input scheduling.ShiftInput
	if err := c.Bind(&input); err != nil {
		log.Warn("Invalid shift payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}

	shift, err := deps.Services.Shifts.Create(c.Request().Context(), actor(c), input)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Shift created",
		zap.String("shift_id", shift.ID),
		zap.String("title", shift.Title))
	return c.JSON(http.StatusCreated, shift)
}

// ListShifts handles retrieving the tenant's shifts with optional filtering
func ListShifts(c echo.Context) error {
	log := logger.FromEcho(c)

	filter := store.ShiftFilter{}
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := model.ShiftStatus(strings.TrimSpace(s))
			if !status.Valid() {
				return respondError(c, apperr.Validation("invalid_status", "unknown shift status: "+string(status)))
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	from, err := queryTime(c, "from")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return respondError(c, err)
	}
	filter.From = from
	filter.To = to

	shifts, err := deps.Services.Shifts.ListWithCounts(c.Request().Context(), actor(c), filter)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Shifts listed", zap.Int("count", len(shifts)))
	return c.JSON(http.StatusOK, shifts)
}

// GetShift handles retrieving a single shift by ID
func GetShift(c echo.Context) error {
	shift, err := deps.Services.Shifts.Get(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shift)
}

// UpdateShift handles patching an existing shift
func UpdateShift(c echo.Context) error {
	log := logger.FromEcho(c)

	var patch scheduling.ShiftPatch
	if err := c.Bind(&patch); err != nil {
		log.Warn("Invalid shift patch payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}

	shift, err := deps.Services.Shifts.Update(c.Request().Context(), actor(c), c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Shift updated", zap.String("shift_id", shift.ID))
	return c.JSON(http.StatusOK, shift)
}

// DeleteShift handles deleting a draft shift
func DeleteShift(c echo.Context) error {
	log := logger.FromEcho(c)

	id := c.Param("id")
	if err := deps.Services.Shifts.Delete(c.Request().Context(), actor(c), id); err != nil {
		return respondError(c, err)
	}

	log.Info("Shift deleted", zap.String("shift_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "shift deleted"})
}

// PublishShift handles publishing a draft shift to the tenant pool
func PublishShift(c echo.Context) error {
	log := logger.FromEcho(c)

	shift, err := deps.Services.Shifts.Publish(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Shift published",
		zap.String("shift_id", shift.ID),
		zap.Bool("public_pool", shift.IsPublicPool))
	return c.JSON(http.StatusOK, shift)
}

// CloseShift handles closing a published shift to new applications
func CloseShift(c echo.Context) error {
	shift, err := deps.Services.Shifts.Close(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shift)
}

// CancelShift handles cancelling a shift and releasing its crew
func CancelShift(c echo.Context) error {
	log := logger.FromEcho(c)

	shift, err := deps.Services.Shifts.Cancel(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Shift cancelled", zap.String("shift_id", shift.ID))
	return c.JSON(http.StatusOK, shift)
}

// CompleteShift handles marking an ended shift as completed
func CompleteShift(c echo.Context) error {
	shift, err := deps.Services.Shifts.Complete(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shift)
}

// ListShiftApplications handles retrieving all applications for a shift
func ListShiftApplications(c echo.Context) error {
	apps, err := deps.Services.Applications.ListByShift(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, apps)
}

// ListAssignees handles retrieving the confirmed crew of a shift
func ListAssignees(c echo.Context) error {
	assignees, err := deps.Services.Shifts.ListAssignees(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, assignees)
}

// ListTenantPool handles retrieving the published shifts members can apply to
func ListTenantPool(c echo.Context) error {
	shifts, err := deps.Services.Shifts.ListTenantPool(c.Request().Context(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shifts)
}

// ListMyShifts handles retrieving the caller's upcoming confirmed shifts
func ListMyShifts(c echo.Context) error {
	shifts, err := deps.Services.Shifts.ListMine(c.Request().Context(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shifts)
}

// ShiftAuditTrail handles retrieving the audit log of a shift
func ShiftAuditTrail(c echo.Context) error {
	entries, err := deps.Services.Shifts.AuditTrail(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
