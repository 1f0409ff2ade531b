// Package blob implements the Blob capability (§6.3): an external
// persistence collaborator providing put/get/delete/exists over opaque
// paths, with an atomic put contract the core relies on but never
// implements itself.
package blob

import "context"

// Store is the capability contract. Put must be atomic with respect to
// concurrent Get/Exists callers (e.g. write-temp-then-rename); the core
// assumes this without verifying it.
type Store interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
