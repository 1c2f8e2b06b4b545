// Package storage provides the image-hosting relay that makes generated frames
// publicly fetchable. It defines the Publisher interface (port) and
// implementations for local disk, S3 and freeimage.host.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned when an object name is empty or escapes its directory.
var ErrInvalidName = errors.New("storage: invalid object name")

// Publisher stores an object and returns a URL anyone can fetch it from.
type Publisher interface {
	// Publish stores data under name and returns its public URL.
	// contentType may be empty when unknown.
	Publish(ctx context.Context, name, contentType string, data io.Reader) (url string, err error)
}

// validName accepts a single path element without traversal.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
