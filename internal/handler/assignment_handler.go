package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/pkg/logger"
)

// AssignRequest defines the body of a direct assignment request
type AssignRequest struct {
	UID string `json:"uid"`
}

// AssignWorker handles a manager assigning a member to a shift directly,
// bypassing the application flow
func AssignWorker(c echo.Context) error {
	log := logger.FromEcho(c)

	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid assignment payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}
	if strings.TrimSpace(req.UID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "uid_required", "message": "uid is required"},
		})
	}

	assignment, err := deps.Services.Assignments.AssignDirect(c.Request().Context(), actor(c), c.Param("id"), req.UID)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Worker assigned",
		zap.String("assignment_id", assignment.ID),
		zap.String("shift_id", assignment.ShiftID),
		zap.String("uid", assignment.UID))
	return c.JSON(http.StatusCreated, assignment)
}

// RemoveAssignment handles a manager removing a confirmed assignment
func RemoveAssignment(c echo.Context) error {
	log := logger.FromEcho(c)

	assignment, err := deps.Services.Assignments.Remove(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Assignment removed",
		zap.String("assignment_id", assignment.ID),
		zap.String("shift_id", assignment.ShiftID))
	return c.JSON(http.StatusOK, assignment)
}
