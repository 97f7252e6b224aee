package tokenstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore provides read-only access to a record stored in an environment
// variable. Suitable for inspecting an externally managed record, but not
// for token exchange (which must write the refreshed record back).
type EnvStore struct {
	envKey string
}

// Compile-time check to ensure EnvStore implements RecordStore
var _ RecordStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
// Returns error if the variable name is empty or not set in the environment.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	if _, exists := os.LookupEnv(envKey); !exists {
		return nil, fmt.Errorf("environment variable %s not set", envKey)
	}

	return &EnvStore{
		envKey: envKey,
	}, nil
}

// Read returns the record bytes from the environment variable.
func (e *EnvStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := os.Getenv(e.envKey)
	if data == "" {
		return nil, fmt.Errorf("%w: environment variable %s is empty", ErrNotFound, e.envKey)
	}
	return []byte(data), nil
}

// Write is not supported for environment variables (they are read-only).
func (e *EnvStore) Write(ctx context.Context, data []byte) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	return Receipt{}, fmt.Errorf("environment variable storage is read-only")
}

// Location returns the environment variable name.
func (e *EnvStore) Location() string {
	return "$" + e.envKey
}
