// Package docstore stores shift document binaries on the local filesystem
// and issues HMAC-signed, time-limited download URLs for them. The signed
// URL carries the storage path, an expiry and a signature; the download
// handler calls Verify before serving the file.
package docstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLinkExpired means the download link's expiry lies in the past.
	ErrLinkExpired = errors.New("download link expired")
	// ErrBadSignature means the link was tampered with or signed with a
	// different secret.
	ErrBadSignature = errors.New("download link signature mismatch")
)

// Local keeps blobs under a root directory, one file per storage path.
type Local struct {
	dir     string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewLocal builds a store rooted at dir. baseURL is the external address
// download URLs are built on, e.g. "https://api.example.com".
func NewLocal(dir, baseURL string, secret []byte) *Local {
	return &Local{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}
}

// Put writes the blob, creating parent directories as needed.
func (l *Local) Put(ctx context.Context, storagePath string, data []byte, contentType string) error {
	full, err := l.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Open reads a stored blob back.
func (l *Local) Open(ctx context.Context, storagePath string) ([]byte, error) {
	full, err := l.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// Delete removes a blob. Deleting a blob that is already gone is not an
// error.
func (l *Local) Delete(ctx context.Context, storagePath string) error {
	full, err := l.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// SignedURL builds a download link that Verify will accept until the ttl
// runs out.
func (l *Local) SignedURL(storagePath string, ttl time.Duration) (string, error) {
	if _, err := l.resolve(storagePath); err != nil {
		return "", err
	}
	exp := l.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("path", storagePath)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", l.sign(storagePath, exp))
	return l.baseURL + "/documents/download?" + q.Encode(), nil
}

// Verify checks a download link's expiry and signature. The comparison is
// constant-time.
func (l *Local) Verify(storagePath string, exp int64, sig string) error {
	if exp < l.now().Unix() {
		return ErrLinkExpired
	}
	expected := l.sign(storagePath, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}

func (l *Local) sign(storagePath string, exp int64) string {
	h := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(h, "%s|%d", storagePath, exp)
	return hex.EncodeToString(h.Sum(nil))
}

// resolve maps a storage path onto the root directory, rejecting anything
// that would escape it.
func (l *Local) resolve(storagePath string) (string, error) {
	clean := path.Clean(storagePath)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage path %q", storagePath)
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}
