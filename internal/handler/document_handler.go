package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shiftpool-service/internal/docstore"
	"shiftpool-service/pkg/logger"
)

// UploadDocument handles attaching a file to a shift. The file arrives as
// the "file" part of a multipart form.
func UploadDocument(c echo.Context) error {
	log := logger.FromEcho(c)

	fh, err := c.FormFile("file")
	if err != nil {
		log.Warn("Missing file part in upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "file_required", "message": "multipart field 'file' is required"},
		})
	}

	src, err := fh.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "file_unreadable", "message": "could not read uploaded file"},
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error("Failed to read uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "file_unreadable", "message": "could not read uploaded file"},
		})
	}

	doc, err := deps.Services.Documents.Upload(c.Request().Context(), actor(c),
		c.Param("id"), fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("shift_id", doc.ShiftID),
		zap.Int64("size_bytes", doc.SizeBytes))
	return c.JSON(http.StatusCreated, doc)
}

// ListDocuments handles retrieving a shift's document metadata
func ListDocuments(c echo.Context) error {
	docs, err := deps.Services.Documents.List(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

// DocumentURL handles issuing a short-lived signed download link
func DocumentURL(c echo.Context) error {
	url, doc, err := deps.Services.Documents.SignedURL(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"url":       url,
		"file_name": doc.FileName,
	})
}

// DeleteDocument handles removing a document and its stored bytes
func DeleteDocument(c echo.Context) error {
	log := logger.FromEcho(c)

	id := c.Param("id")
	if err := deps.Services.Documents.Delete(c.Request().Context(), actor(c), id); err != nil {
		return respondError(c, err)
	}

	log.Info("Document deleted", zap.String("document_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "document deleted"})
}

// DownloadDocument serves a document blob. The route is unauthenticated;
// the HMAC signature issued by DocumentURL is the sole gate.
func DownloadDocument(c echo.Context) error {
	log := logger.FromEcho(c)

	path := c.QueryParam("path")
	sig := c.QueryParam("sig")
	exp, err := strconv.ParseInt(c.QueryParam("exp"), 10, 64)
	if err != nil || path == "" || sig == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": echo.Map{"code": "invalid_link", "message": "path, exp and sig are required"},
		})
	}

	if err := deps.Docs.Verify(path, exp, sig); err != nil {
		code := "bad_signature"
		if errors.Is(err, docstore.ErrLinkExpired) {
			code = "link_expired"
		}
		log.Warn("Rejected document download", zap.String("reason", code))
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": echo.Map{"code": code, "message": "download link is not valid"},
		})
	}

	data, err := deps.Docs.Open(c.Request().Context(), path)
	if err != nil {
		log.Error("Failed to read document blob", zap.String("path", path), zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": echo.Map{"code": "document_not_found", "message": "document not found"},
		})
	}

	return c.Blob(http.StatusOK, "application/octet-stream", data)
}
