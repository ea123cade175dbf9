// Package storage uploads book covers and PDFs to object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrDisabled = errors.New("storage: disabled")
	ErrNotFound = errors.New("storage: object not found")
)

// Store is the object storage contract used by the marketplace.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// NewKey builds "<prefix>/<uuid><ext>" keeping the lower-cased extension of filename.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	key := uuid.NewString() + ext
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// Disabled refuses uploads; used when no OSS credentials are configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, io.Reader, string) error { return ErrDisabled }
func (Disabled) PublicURL(string) string                                { return "" }
func (Disabled) Delete(context.Context, string) error                   { return nil }

// IsEnabled reports whether s accepts uploads.
func IsEnabled(s Store) bool {
	if s == nil {
		return false
	}
	_, off := s.(Disabled)
	return !off
}
