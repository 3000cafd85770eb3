// Package photos stores uploaded plant photos and computes their BlurHash
// placeholders.
package photos

import (
	"context"
	"errors"
)

// Driver names a photo backend.
type Driver string

// Photo drivers.
const (
	DriverDataURI Driver = "datauri"
	DriverFS      Driver = "fs"
	DriverS3      Driver = "s3"
)

// ErrNotFound is returned when a stored photo does not exist.
var ErrNotFound = errors.New("photo not found")

// ErrUnsupported is returned by backends that cannot serve an operation.
var ErrUnsupported = errors.New("operation not supported by photo driver")

// Backend persists photo bytes under a key.
type Backend interface {
	Driver() Driver
	// Put stores data and returns the reference saved on the plant.
	Put(ctx context.Context, key string, data []byte, contentType string) (ref string, err error)
	// Get returns the stored bytes and their content type.
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

// ServePrefix is the URL prefix under which fs and s3 photos are served.
const ServePrefix = "/api/v1/photos/"
