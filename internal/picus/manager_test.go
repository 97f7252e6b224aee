package picus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflow/picusauth/internal/tokenstore"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, handler http.Handler) (*Manager, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "picus-tokens.json")
	store, err := tokenstore.NewFileStore(path)
	require.NoError(t, err)

	manager, err := NewManager(store, NewClient(server.URL), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return manager, path
}

func writeRecord(t *testing.T, path string, record *TokenRecord) {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestManagerLoad(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		manager, _ := newTestManager(t, http.NotFoundHandler())
		_, err := manager.Load(context.Background())
		assert.ErrorIs(t, err, tokenstore.ErrNotFound)
	})

	t.Run("placeholder is invalid", func(t *testing.T) {
		manager, path := newTestManager(t, http.NotFoundHandler())
		writeRecord(t, path, &TokenRecord{RefreshToken: PlaceholderRefreshToken})

		_, err := manager.Load(context.Background())
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("missing refresh token is invalid", func(t *testing.T) {
		manager, path := newTestManager(t, http.NotFoundHandler())
		writeRecord(t, path, &TokenRecord{AccessToken: "at"})

		_, err := manager.Load(context.Background())
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("reports age and staleness", func(t *testing.T) {
		manager, path := newTestManager(t, http.NotFoundHandler())
		writeRecord(t, path, &TokenRecord{
			RefreshToken: "rt123",
			Timestamp:    testNow.Add(-200 * 24 * time.Hour).UnixMilli(),
		})

		result, err := manager.Load(context.Background())
		require.NoError(t, err)
		assert.True(t, result.AgeKnown)
		assert.Equal(t, 200, result.AgeDays)
		assert.True(t, result.Stale)
	})

	t.Run("no timestamp means unknown age", func(t *testing.T) {
		manager, path := newTestManager(t, http.NotFoundHandler())
		writeRecord(t, path, &TokenRecord{RefreshToken: "rt123"})

		result, err := manager.Load(context.Background())
		require.NoError(t, err)
		assert.False(t, result.AgeKnown)
		assert.False(t, result.Stale)
	})
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t, http.NotFoundHandler())

	record := &TokenRecord{
		RefreshToken: "rt123",
		AccessToken:  "AT1",
		ExpiresAt:    testNow.Unix() + 3600,
	}
	_, err := manager.Save(context.Background(), record)
	require.NoError(t, err)

	result, err := manager.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt123", result.Record.RefreshToken)
	assert.Equal(t, "AT1", result.Record.AccessToken)
	assert.Equal(t, testNow.Unix()+3600, result.Record.ExpiresAt)
	assert.Equal(t, testNow.UnixMilli(), result.Record.Timestamp)
	assert.Equal(t, testNow.Format(time.RFC3339), result.Record.CreatedAt)
}

func TestManagerAuthenticate(t *testing.T) {
	t.Run("success persists the updated record", func(t *testing.T) {
		manager, path := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "AT1", "expire_at": 1749000000})
		}))

		updated, _, err := manager.Authenticate(context.Background(), &TokenRecord{RefreshToken: "rt123"})
		require.NoError(t, err)
		assert.Equal(t, "rt123", updated.RefreshToken)
		assert.Equal(t, "AT1", updated.AccessToken)
		assert.Equal(t, int64(1749000000), updated.ExpiresAt)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		persisted, err := unmarshalRecord(data)
		require.NoError(t, err)
		assert.Equal(t, updated, persisted)
	})

	t.Run("missing expiry defaults to one hour", func(t *testing.T) {
		manager, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "AT1"})
		}))

		updated, _, err := manager.Authenticate(context.Background(), &TokenRecord{RefreshToken: "rt123"})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, updated.ExpiresAt, testNow.Unix()+3599)
		assert.LessOrEqual(t, updated.ExpiresAt, testNow.Unix()+3601)
	})

	t.Run("no refresh token aborts before the network", func(t *testing.T) {
		var calls atomic.Int64
		manager, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))

		_, _, err := manager.Authenticate(context.Background(), &TokenRecord{})
		assert.ErrorIs(t, err, ErrNoRefreshToken)

		_, _, err = manager.Authenticate(context.Background(), &TokenRecord{RefreshToken: PlaceholderRefreshToken})
		assert.ErrorIs(t, err, ErrNoRefreshToken)

		assert.Zero(t, calls.Load())
	})

	t.Run("rejection persists nothing", func(t *testing.T) {
		manager, path := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad token", http.StatusUnauthorized)
		}))

		_, _, err := manager.Authenticate(context.Background(), &TokenRecord{RefreshToken: "rt123"})

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestManagerProbe(t *testing.T) {
	t.Run("no access token means no network call", func(t *testing.T) {
		var calls atomic.Int64
		manager, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))

		_, err := manager.Probe(context.Background(), "")
		assert.ErrorIs(t, err, ErrNoAccessToken)
		assert.Zero(t, calls.Load())
	})

	t.Run("counts agents", func(t *testing.T) {
		manager, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"id": 1}}})
		}))

		count, err := manager.Probe(context.Background(), "AT1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestManagerCreateExample(t *testing.T) {
	manager, path := newTestManager(t, http.NotFoundHandler())

	_, err := manager.CreateExample(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	record, err := unmarshalRecord(data)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderRefreshToken, record.RefreshToken)
	assert.NotEmpty(t, record.Instructions)

	// The example record is unusable until the operator edits it
	_, err = manager.Load(context.Background())
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
