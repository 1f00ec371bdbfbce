package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mediad/internal/models"
)

const (
	localNamespace       = "uploads"
	localNameAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	localNameLength      = 16
	localMaxNameAttempts = 20
)

// LocalDisk stores blobs on the local filesystem in a year/month
// partitioned tree under a single root.
type LocalDisk struct {
	root    string
	baseURL string
	now     func() time.Time
}

// NewLocalDisk creates a local disk backend rooted at root. Stored
// locations are relative paths; baseURL is prepended to build access URLs.
func NewLocalDisk(root, baseURL string) (*LocalDisk, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalDisk{
		root:    abs,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		now:     time.Now,
	}, nil
}

// Kind identifies the backend.
func (d *LocalDisk) Kind() models.BackendKind {
	return models.BackendLocal
}

// Store writes bytes to a collision-free generated filename and returns the
// relative location plus the byte count actually written.
func (d *LocalDisk) Store(ctx context.Context, r io.Reader, name string) (StoreResult, error) {
	var zero StoreResult
	if d == nil {
		return zero, fmt.Errorf("local backend is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	location, err := d.newLocation(name)
	if err != nil {
		return zero, err
	}
	dst := filepath.Join(d.root, filepath.FromSlash(location))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(d.root, "tmp"), "store-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return zero, err
	}

	return StoreResult{Location: location, URL: d.AccessURL(location), SizeBytes: n}, nil
}

// Open returns a reader for stored content.
func (d *LocalDisk) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if d == nil {
		return nil, fmt.Errorf("local backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.pathFromLocation(location)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a stored file. A missing file reports false with no error.
func (d *LocalDisk) Delete(ctx context.Context, location string) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("local backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := d.pathFromLocation(location)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Exists reports whether a stored file is present.
func (d *LocalDisk) Exists(ctx context.Context, location string) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("local backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := d.pathFromLocation(location)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AccessURL builds the serving URL for a relative location.
func (d *LocalDisk) AccessURL(location string) string {
	location = strings.TrimLeft(strings.TrimSpace(location), "/")
	if d == nil || d.baseURL == "" {
		return "/" + location
	}
	return d.baseURL + "/" + location
}

// newLocation builds uploads/YYYY/MM/<random><ext>, keeping only the
// extension from the client-supplied name.
func (d *LocalDisk) newLocation(name string) (string, error) {
	now := d.now().UTC()
	dir := fmt.Sprintf("%s/%d/%02d", localNamespace, now.Year(), int(now.Month()))
	ext := sanitizeExtension(path.Ext(name))

	for i := 0; i < localMaxNameAttempts; i++ {
		base, err := randomName(localNameLength)
		if err != nil {
			return "", err
		}
		location := dir + "/" + base + ext
		if _, err := os.Stat(filepath.Join(d.root, filepath.FromSlash(location))); errors.Is(err, os.ErrNotExist) {
			return location, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique file name")
}

func (d *LocalDisk) pathFromLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("location is required")
	}
	if strings.HasPrefix(location, "/") {
		return "", fmt.Errorf("location must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(location))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid location")
	}
	return filepath.Join(d.root, clean), nil
}

func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}

func randomName(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = localNameAlphabet[int(b[i])%len(localNameAlphabet)]
	}
	return string(out), nil
}
