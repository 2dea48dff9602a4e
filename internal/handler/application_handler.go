package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/pkg/logger"
)

// ApplyRequest defines the optional body of an application request
type ApplyRequest struct {
	Note *string `json:"note"`
}

// ApplyToShift handles a member applying to a published shift
func ApplyToShift(c echo.Context) error {
	log := logger.FromEcho(c)

	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid application payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}

	app, err := deps.Services.Applications.Apply(c.Request().Context(), actor(c), c.Param("id"), req.Note)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Application submitted",
		zap.String("application_id", app.ID),
		zap.String("shift_id", app.ShiftID))
	return c.JSON(http.StatusCreated, app)
}

// WithdrawApplicationByShift handles a member withdrawing their own active
// application on a shift without knowing its ID
func WithdrawApplicationByShift(c echo.Context) error {
	log := logger.FromEcho(c)

	app, err := deps.Services.Applications.WithdrawByShift(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Application withdrawn",
		zap.String("application_id", app.ID),
		zap.String("shift_id", app.ShiftID))
	return c.JSON(http.StatusOK, app)
}

// WithdrawApplication handles a member withdrawing an application by ID
func WithdrawApplication(c echo.Context) error {
	log := logger.FromEcho(c)

	app, err := deps.Services.Applications.Withdraw(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Application withdrawn", zap.String("application_id", app.ID))
	return c.JSON(http.StatusOK, app)
}

// AcceptApplication handles a manager accepting a pending application,
// creating the confirmed assignment
func AcceptApplication(c echo.Context) error {
	log := logger.FromEcho(c)

	result, err := deps.Services.Assignments.Accept(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Application accepted",
		zap.String("application_id", result.Application.ID),
		zap.String("assignment_id", result.Assignment.ID))
	return c.JSON(http.StatusOK, result)
}

// RejectApplication handles a manager rejecting a pending application
func RejectApplication(c echo.Context) error {
	log := logger.FromEcho(c)

	app, err := deps.Services.Applications.Reject(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Application rejected", zap.String("application_id", app.ID))
	return c.JSON(http.StatusOK, app)
}

// UnrejectApplication handles returning a rejected application to pending
func UnrejectApplication(c echo.Context) error {
	app, err := deps.Services.Applications.Unreject(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// RevokeApplication handles a manager revoking an accepted application,
// cancelling its assignment and returning the application to pending
func RevokeApplication(c echo.Context) error {
	log := logger.FromEcho(c)

	app, err := deps.Services.Assignments.Revoke(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Application revoked", zap.String("application_id", app.ID))
	return c.JSON(http.StatusOK, app)
}
