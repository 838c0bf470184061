// Package tokenstore keeps session credentials: a small key to string map
// with save, get, delete, clear-all and has operations.
//
// Three backends are provided: Memory for tests and throwaway sessions,
// File for an age-encrypted file on the local disk, and Redis for
// deployments that share a session across processes.
package tokenstore

import "context"

// Well-known keys written by the auth gateway.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserSession  = "user_session"
)

// Store is a key/value store for credentials.
// Deleting a missing key is not an error.
type Store interface {
	Save(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
	Has(ctx context.Context, key string) (bool, error)
}
