package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflow/picusauth/internal/picus"
	"github.com/threatflow/picusauth/internal/tokenstore"
)

// picusHandler fakes the two API endpoints the tool touches.
func picusHandler(t *testing.T, agents int) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "rt123" {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":     "AT1",
			"expire_at": time.Now().Add(time.Hour).Unix(),
		})
	})
	mux.HandleFunc("GET /v1/agents", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer AT1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data := make([]map[string]any, agents)
		for i := range data {
			data[i] = map[string]any{"id": i}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	return mux
}

func newTestApp(t *testing.T, handler http.Handler) (*App, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "picus-tokens.json")
	cfg := &Config{
		API:     APIConfig{BaseURL: server.URL},
		Storage: StorageConfig{Type: StorageTypeFile, File: path},
	}
	require.NoError(t, cfg.ApplyDefaults())

	application, err := New(cfg)
	require.NoError(t, err)
	return application, path
}

func seedRecord(t *testing.T, path string, record *picus.TokenRecord) {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestAppStatus(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 0))
	seedRecord(t, path, &picus.TokenRecord{
		RefreshToken: "rt123",
		AccessToken:  "AT1",
		ExpiresAt:    time.Now().Add(30 * time.Minute).Unix(),
		Timestamp:    time.Now().UnixMilli(),
	})

	report, err := application.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, picus.RefreshTokenSet, report.Snapshot.RefreshToken)
	assert.True(t, report.Snapshot.AccessTokenValid)
	assert.Equal(t, path, report.Location)
	assert.True(t, report.AgeKnown)
	assert.Equal(t, 0, report.AgeDays)
}

func TestAppStatusNotFound(t *testing.T) {
	application, _ := newTestApp(t, picusHandler(t, 0))

	_, err := application.Status(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestAppTest(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 2))
	seedRecord(t, path, &picus.TokenRecord{RefreshToken: "rt123"})

	report, err := application.Test(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AT1", report.Auth.Record.AccessToken)
	require.NotNil(t, report.Probe)
	assert.NoError(t, report.Probe.Err)
	assert.Equal(t, 2, report.Probe.AgentCount)
}

func TestAppTestRejectedExchange(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 0))
	seedRecord(t, path, &picus.TokenRecord{RefreshToken: "wrong"})

	_, err := application.Test(context.Background())

	var authErr *picus.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	// The failed exchange must not have touched the record
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "access_token")
}

func TestAppDefault(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 1))
	seedRecord(t, path, &picus.TokenRecord{RefreshToken: "rt123"})

	report, err := application.Default(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Status)
	require.NotNil(t, report.Auth)
	require.NotNil(t, report.Probe)
	assert.Equal(t, 1, report.Probe.AgentCount)
}

func TestAppSetup(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 3))

	report, err := application.Setup(context.Background(), "rt123")
	require.NoError(t, err)
	assert.Equal(t, "AT1", report.Auth.Record.AccessToken)
	assert.Equal(t, 3, report.Probe.AgentCount)

	// The supplied refresh token is now the persisted one
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var persisted picus.TokenRecord
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, "rt123", persisted.RefreshToken)
	assert.Equal(t, "AT1", persisted.AccessToken)
}

func TestAppSetupRejectedTokenPersistsNothing(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 0))

	_, err := application.Setup(context.Background(), "wrong")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAppCreateExample(t *testing.T) {
	application, path := newTestApp(t, picusHandler(t, 0))

	report, err := application.CreateExample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, report.Location)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), picus.PlaceholderRefreshToken)
	assert.Contains(t, string(data), "_instructions")
}
