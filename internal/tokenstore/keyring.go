package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the record in the OS-native credential store (macOS
// Keychain, Windows Credential Manager, Linux Secret Service). The credential
// store handles access restriction itself, so writes never degrade.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements RecordStore
var _ RecordStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore using the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the record bytes from the system keyring.
func (k *KeyringStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w: keyring service %s, user %s", ErrNotFound, k.service, k.user)
		}
		return nil, err
	}

	if data == "" {
		return nil, fmt.Errorf("%w: empty keyring entry for service %s, user %s", ErrNotFound, k.service, k.user)
	}

	return []byte(data), nil
}

// Write persists the record to the system keyring, overwriting any existing
// entry.
func (k *KeyringStore) Write(ctx context.Context, data []byte) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	return Receipt{}, keyring.Set(k.service, k.user, string(data))
}

// Location describes the keyring entry.
func (k *KeyringStore) Location() string {
	return fmt.Sprintf("keyring:%s/%s", k.service, k.user)
}
