package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/internal/store"
	"shiftpool-service/pkg/logger"
)

// PublicPool handles browsing the cross-tenant pool of public shifts.
// The route is open; no authentication is required to browse.
func PublicPool(c echo.Context) error {
	log := logger.FromEcho(c)

	filter := store.PoolFilter{
		Location: c.QueryParam("location"),
		Query:    c.QueryParam("q"),
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

	shifts, err := deps.Services.Pool.ListPublicPool(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Public pool listed", zap.Int("count", len(shifts)))
	return c.JSON(http.StatusOK, shifts)
}

// PublicPoolShift handles retrieving a single public pool shift
func PublicPoolShift(c echo.Context) error {
	shift, err := deps.Services.Pool.FindPublicShift(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shift)
}

// ApplyPublic handles a freelancer applying to a public pool shift
func ApplyPublic(c echo.Context) error {
	log := logger.FromEcho(c)

	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid application payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_payload", "message": "invalid request body"},
		})
	}

	app, err := deps.Services.Applications.ApplyPublic(c.Request().Context(), actor(c), c.Param("id"), req.Note)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Public application submitted",
		zap.String("application_id", app.ID),
		zap.String("shift_id", app.ShiftID),
		zap.String("tenant_id", app.TenantID))
	return c.JSON(http.StatusCreated, app)
}

// FreelancerApplications handles retrieving the caller's applications across
// every tenant, newest first
func FreelancerApplications(c echo.Context) error {
	apps, err := deps.Services.Pool.ListFreelancerApplications(c.Request().Context(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, apps)
}

// FreelancerShifts handles retrieving the caller's confirmed shifts across
// every tenant
func FreelancerShifts(c echo.Context) error {
	includeCompleted, _ := strconv.ParseBool(c.QueryParam("include_completed"))

	shifts, err := deps.Services.Pool.ListFreelancerShifts(c.Request().Context(), actor(c), includeCompleted)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, shifts)
}
