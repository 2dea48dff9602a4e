package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/internal/scheduling"
	"shiftpool-service/pkg/logger"
)

// CreateTimeEntry handles recording worked hours for a confirmed assignee
func CreateTimeEntry(c echo.Context) error {
	log := logger.FromEcho(c)

	var input scheduling.TimeEntryInput
	if err := c.Bind(&input); err != nil {
		log.Warn("Invalid time entry payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}

	entry, err := deps.Services.TimeEntries.Create(c.Request().Context(), actor(c), c.Param("id"), input)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Time entry created",
		zap.String("time_entry_id", entry.ID),
		zap.String("shift_id", entry.ShiftID),
		zap.String("uid", entry.UID))
	return c.JSON(http.StatusCreated, entry)
}

// UpdateTimeEntry handles correcting a recorded time entry
func UpdateTimeEntry(c echo.Context) error {
	log := logger.FromEcho(c)

	var input scheduling.TimeEntryInput
	if err := c.Bind(&input); err != nil {
		log.Warn("Invalid time entry payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}

	entry, err := deps.Services.TimeEntries.Update(c.Request().Context(), actor(c), c.Param("id"), input)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Time entry updated", zap.String("time_entry_id", entry.ID))
	return c.JSON(http.StatusOK, entry)
}

// ListTimeEntries handles retrieving the recorded hours of a shift
func ListTimeEntries(c echo.Context) error {
	entries, err := deps.Services.TimeEntries.ListByShift(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
