// Package handler exposes the scheduling services over HTTP. Handlers only
// extract the authenticated actor, bind requests and map errors onto
// statuses; every business rule lives in the scheduling layer.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/docstore"
	"shiftpool-service/internal/export"
	"shiftpool-service/internal/scheduling"
	"shiftpool-service/pkg/logger"
)

// Deps holds the collaborators the handlers delegate to
type Deps struct {
	Services *scheduling.Services
	Roster   *export.Roster
	Docs     *docstore.Local
}

var deps Deps

// Init wires the handler package with its dependencies. Call once at startup.
func Init(d Deps) {
	deps = d
}

// actor assembles the scheduling actor from the authenticated context
func actor(c echo.Context) scheduling.Actor {
	a := scheduling.Actor{}
	a.UID, _ = c.Get("uid").(string)
	a.Email, _ = c.Get("email").(string)
	a.TenantID, _ = c.Get("tenant_id").(string)
	a.TenantName, _ = c.Get("tenant_name").(string)
	a.Role, _ = c.Get("role").(string)
	a.Freelancer, _ = c.Get("freelancer").(bool)
	return a
}

// queryTime parses an optional RFC3339 query parameter
func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Validation("invalid_"+name, name+" must be an RFC3339 timestamp")
	}
	return &t, nil
}

// respondError maps scheduling errors onto HTTP statuses. Business errors
// serialize as {"error": {"code", "message"}}; anything unclassified is a 500.
func respondError(c echo.Context, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		logger.FromEcho(c).Error("Unhandled error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": echo.Map{"code": "internal", "message": "internal server error"},
		})
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindInvalidStateTransition,
		apperr.KindCapacityExceeded,
		apperr.KindDuplicateApplication,
		apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindDeadlinePassed:
		status = http.StatusUnprocessableEntity
	case apperr.KindForbidden:
		status = http.StatusForbidden
	}

	return c.JSON(status, echo.Map{
		"error": echo.Map{"code": e.Code, "message": e.Message},
	})
}
