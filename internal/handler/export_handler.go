package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/export"
	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportRoster handles streaming the tenant's roster as an xlsx workbook.
// The same status/from/to filters as ListShifts apply.
func ExportRoster(c echo.Context) error {
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

	a := actor(c)
	name := export.FileName(time.Now())

	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().WriteHeader(http.StatusOK)

	if err := deps.Roster.Write(c.Request().Context(), a.TenantID, filter, c.Response()); err != nil {
		// Headers are already out; all we can do is log and drop the stream.
		log.Error("Roster export failed", zap.Error(err))
		return err
	}

	log.Info("Roster exported", zap.String("file_name", name))
	return nil
}
