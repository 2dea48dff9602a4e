package scheduling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftpool-service/internal/apperr"
)

func TestUploadDocument(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	data := []byte("site plan pdf bytes")
	doc, err := a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "site-plan.pdf", "application/pdf", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.ID, "doc_"))
	assert.Equal(t, "site-plan.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, int64(len(data)), doc.SizeBytes)
	assert.Equal(t, "usr_manager", doc.UploadedByUID)
	assert.Equal(t, testTenant+"/"+sh.ID+"/"+doc.ID, doc.StoragePath)
	assert.Equal(t, 1, a.audit.countAction("document.uploaded"))

	blob, ok := a.docs.blob(doc.StoragePath)
	require.True(t, ok)
	assert.Equal(t, data, blob)

	docs, err := a.svc.Documents.List(a.ctx, a.manager(), sh.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
}

func TestUploadDocumentValidation(t *testing.T) {
	a := newArena(t, func(c *Config) { c.MaxUploadBytes = 16 })
	a.seedCompany()
	sh := a.publishedShift()

	_, err := a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "   ", "text/plain", []byte("x"))
	assert.Equal(t, "file_name_required", apperr.CodeOf(err))

	_, err = a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "empty.txt", "text/plain", nil)
	assert.Equal(t, "file_empty", apperr.CodeOf(err))

	_, err = a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "big.txt", "text/plain", []byte("well over the limit"))
	assert.Equal(t, "file_too_large", apperr.CodeOf(err))

	_, err = a.svc.Documents.Upload(a.ctx, a.manager(), "sft_missing", "plan.txt", "text/plain", []byte("x"))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUploadDocumentDefaultContentType(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()

	doc, err := a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "notes.bin", "", []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", doc.ContentType)
}

func TestUploadDocumentBlobFailure(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	a.docs.failPut = true

	_, err := a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "plan.txt", "text/plain", []byte("x"))
	require.Error(t, err)

	docs, err := a.svc.Documents.List(a.ctx, a.manager(), sh.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentSignedURL(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	doc, err := a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "plan.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	url, got, err := a.svc.Documents.SignedURL(a.ctx, a.manager(), doc.ID)
	require.NoError(t, err)
	assert.Contains(t, url, doc.StoragePath)
	assert.Equal(t, doc.ID, got.ID)

	_, _, err = a.svc.Documents.SignedURL(a.ctx, a.manager(), "doc_missing")
	require.Error(t, err)
	assert.Equal(t, "document_not_found", apperr.CodeOf(err))
}

func TestDeleteDocument(t *testing.T) {
	a := newArena(t)
	a.seedCompany()
	sh := a.publishedShift()
	doc, err := a.svc.Documents.Upload(a.ctx, a.manager(), sh.ID, "plan.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	a.resetSideEffects()

	require.NoError(t, a.svc.Documents.Delete(a.ctx, a.manager(), doc.ID))
	_, ok := a.docs.blob(doc.StoragePath)
	assert.False(t, ok)
	assert.Equal(t, 1, a.audit.countAction("document.deleted"))

	docs, err := a.svc.Documents.List(a.ctx, a.manager(), sh.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = a.svc.Documents.Delete(a.ctx, a.manager(), doc.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
