package picus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/threatflow/picusauth/internal/tokenstore"
)

// defaultTokenLifetime is assumed when the auth endpoint reports no expiry.
const defaultTokenLifetime = time.Hour

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the token record for one Picus API identity: it loads the
// record from its store, exchanges the refresh token for access tokens, and
// flushes every successful exchange back to the store. The store is the
// source of truth; the Manager never caches state between operations.
type Manager struct {
	store  tokenstore.RecordStore
	client *Client
	now    func() time.Time
}

// NewManager creates a Manager over the given store and API client.
func NewManager(store tokenstore.RecordStore, client *Client, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing record store")
	}
	if client == nil {
		return nil, fmt.Errorf("missing API client")
	}

	m := &Manager{
		store:  store,
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Location describes where the record lives, for diagnostics.
func (m *Manager) Location() string {
	return m.store.Location()
}

// BaseURL returns the API base URL the manager talks to.
func (m *Manager) BaseURL() string {
	return m.client.BaseURL()
}

// LoadResult is a loaded record plus advisory age information.
type LoadResult struct {
	Record *TokenRecord
	// AgeDays is the whole days since the record was written; valid only
	// when AgeKnown is true.
	AgeDays  int
	AgeKnown bool
	// Stale flags a refresh token past the rotation threshold. Advisory
	// only; a stale token is still used.
	Stale bool
}

// Load reads and validates the record. Fails with tokenstore.ErrNotFound if
// no record exists and ErrInvalidRecord if the refresh token is missing or
// still the placeholder.
func (m *Manager) Load(ctx context.Context) (*LoadResult, error) {
	data, err := m.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading record from %s: %w", m.store.Location(), err)
	}

	record, err := unmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("parsing record from %s: %w", m.store.Location(), err)
	}

	if !record.HasUsableRefreshToken() {
		return nil, fmt.Errorf("%w (state: %s)", ErrInvalidRecord, record.RefreshState())
	}

	result := &LoadResult{Record: record}
	now := m.now()
	result.AgeDays, result.AgeKnown = record.AgeDays(now)
	result.Stale = record.Stale(now)
	if result.Stale {
		slog.WarnContext(ctx, "refresh token is older than 6 months and may need regeneration",
			"age_days", result.AgeDays)
	}

	return result, nil
}

// Save persists the record, stamping it with the current write time. The
// returned receipt may carry a non-fatal hardening warning from the store.
func (m *Manager) Save(ctx context.Context, record *TokenRecord) (tokenstore.Receipt, error) {
	now := m.now()
	record.Timestamp = now.UnixMilli()
	record.CreatedAt = now.Format(time.RFC3339)

	data, err := marshalRecord(record)
	if err != nil {
		return tokenstore.Receipt{}, fmt.Errorf("serializing record: %w", err)
	}

	receipt, err := m.store.Write(ctx, data)
	if err != nil {
		return tokenstore.Receipt{}, fmt.Errorf("writing record to %s: %w", m.store.Location(), err)
	}
	if receipt.Warning != nil {
		slog.WarnContext(ctx, "record saved without confirmed restricted permissions",
			"location", m.store.Location(), "warning", receipt.Warning)
	}

	return receipt, nil
}

// Authenticate exchanges the record's refresh token for an access token and
// persists the updated record. The refresh token itself is never changed.
// If the endpoint reports no expiry, one hour from now is assumed. Nothing
// is persisted on failure.
func (m *Manager) Authenticate(ctx context.Context, record *TokenRecord) (*TokenRecord, tokenstore.Receipt, error) {
	if !record.HasUsableRefreshToken() {
		return nil, tokenstore.Receipt{}, ErrNoRefreshToken
	}

	accessToken, expireAt, err := m.client.Authenticate(ctx, record.RefreshToken)
	if err != nil {
		return nil, tokenstore.Receipt{}, err
	}

	if expireAt == 0 {
		expireAt = m.now().Add(defaultTokenLifetime).Unix()
	}

	updated := &TokenRecord{
		RefreshToken: record.RefreshToken,
		AccessToken:  accessToken,
		ExpiresAt:    expireAt,
	}
	receipt, err := m.Save(ctx, updated)
	if err != nil {
		return nil, tokenstore.Receipt{}, err
	}

	return updated, receipt, nil
}

// Probe issues one authenticated read against the agents endpoint and
// returns the agent count. Fails with ErrNoAccessToken, without touching the
// network, when no access token is set.
func (m *Manager) Probe(ctx context.Context, accessToken string) (int, error) {
	if accessToken == "" {
		return 0, ErrNoAccessToken
	}
	return m.client.Probe(ctx, accessToken)
}

// Status reports the record's token state as of now. Pure bookkeeping, no
// I/O.
func (m *Manager) Status(record *TokenRecord) StatusSnapshot {
	return Status(record, m.now())
}

// CreateExample writes a placeholder record for the operator to fill in.
func (m *Manager) CreateExample(ctx context.Context) (tokenstore.Receipt, error) {
	record := &TokenRecord{
		RefreshToken: PlaceholderRefreshToken,
		Instructions: []string{
			"Replace your_refresh_token_here with your actual Picus refresh token",
			"Get your token from Picus Security Console > API Settings",
			"This file will be automatically updated with access tokens",
		},
	}
	return m.Save(ctx, record)
}
