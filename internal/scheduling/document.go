package scheduling

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"shiftpool-service/internal/apperr"
	"shiftpool-service/internal/model"
	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
)

// DocumentService manages the files attached to shifts. Binaries live in
// the document store under <tenant>/<shift>/<document id>; the database
// keeps the metadata row.
type DocumentService struct {
	*core
}

// Upload stores a document and records its metadata. When the metadata
// write fails the stored blob is dropped again.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, shiftID, fileName, contentType string, data []byte) (*model.ShiftDocument, error) {
	defer prometheus.TrackOperation("document_upload")(time.Now())

	if strings.TrimSpace(fileName) == "" {
		return nil, apperr.Validation("file_name_required", "file name is required")
	}
	if len(data) == 0 {
		return nil, apperr.Validation("file_empty", "the uploaded file is empty")
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, apperr.Validation("file_too_large",
			fmt.Sprintf("the file exceeds the upload limit of %d bytes", s.maxUploadBytes))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.store.GetShift(ctx, actor.TenantID, shiftID); err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}

	document := &model.ShiftDocument{
		ID:            model.NewID("doc_"),
		TenantID:      actor.TenantID,
		ShiftID:       shiftID,
		FileName:      fileName,
		ContentType:   contentType,
		SizeBytes:     int64(len(data)),
		UploadedByUID: actor.UID,
	}
	document.StoragePath = path.Join(actor.TenantID, shiftID, document.ID)

	if err := s.docs.Put(ctx, document.StoragePath, data, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := s.store.CreateDocument(ctx, document); err != nil {
		if derr := s.docs.Delete(ctx, document.StoragePath); derr != nil {
			logger.FromContext(ctx).Warn("orphaned document blob cleanup failed",
				zap.String("path", document.StoragePath), zap.Error(derr))
		}
		return nil, err
	}

	ob := newOutbox()
	ob.Audit(actor.TenantID, actor.UID, "document.uploaded", "document", document.ID, map[string]string{
		"shift_id":  shiftID,
		"file_name": fileName,
	})
	ob.Flush(ctx, s.core)

	prometheus.RecordDocumentOperation("upload")
	return document, nil
}

// List returns a shift's document metadata rows.
func (s *DocumentService) List(ctx context.Context, actor Actor, shiftID string) ([]model.ShiftDocument, error) {
	if _, err := s.store.GetShift(ctx, actor.TenantID, shiftID); err != nil {
		return nil, notFoundErr(err, "shift_not_found", "shift not found")
	}
	return s.store.ListDocumentsByShift(ctx, actor.TenantID, shiftID)
}

// SignedURL returns a time-limited download URL for a document.
func (s *DocumentService) SignedURL(ctx context.Context, actor Actor, documentID string) (string, *model.ShiftDocument, error) {
	document, err := s.store.GetDocument(ctx, actor.TenantID, documentID)
	if err != nil {
		return "", nil, notFoundErr(err, "document_not_found", "document not found")
	}
	url, err := s.docs.SignedURL(document.StoragePath, s.docURLTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign document url: %w", err)
	}
	prometheus.RecordDocumentOperation("download_url")
	return url, document, nil
}

// Delete removes a document's metadata row, then its blob. A failed blob
// delete leaves only unreferenced bytes behind and is logged, not raised.
func (s *DocumentService) Delete(ctx context.Context, actor Actor, documentID string) error {
	defer prometheus.TrackOperation("document_delete")(time.Now())

	document, err := s.store.GetDocument(ctx, actor.TenantID, documentID)
	if err != nil {
		return notFoundErr(err, "document_not_found", "document not found")
	}
	if err := s.store.DeleteDocument(ctx, actor.TenantID, documentID); err != nil {
		return notFoundErr(err, "document_not_found", "document not found")
	}
	if err := s.docs.Delete(ctx, document.StoragePath); err != nil {
		logger.FromContext(ctx).Warn("document blob delete failed",
			zap.String("path", document.StoragePath), zap.Error(err))
	}

	ob := newOutbox()
	ob.Audit(actor.TenantID, actor.UID, "document.deleted", "document", document.ID, map[string]string{
		"shift_id":  document.ShiftID,
		"file_name": document.FileName,
	})
	ob.Flush(ctx, s.core)

	prometheus.RecordDocumentOperation("delete")
	return nil
}
