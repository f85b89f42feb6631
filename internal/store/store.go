// Package store defines the key/value persistence used for wizard state.
package store

import (
	"context"

	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
)

// ErrNotFound is returned by Get when the key holds no value. Implementations
// return an error that matches it with errors.Is.
var ErrNotFound = apperrors.ErrNotFound

// Store is a byte-oriented key/value store with no durability guarantee.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
