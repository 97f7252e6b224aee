package tokensource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/threatflow/picusauth/internal/picus"
)

// expirySkew is how long before the recorded expiry a token is treated as
// expired, so callers never receive a token about to lapse mid-request.
const expirySkew = 30 * time.Second

// TokenSource serves Picus access tokens through the oauth2.TokenSource
// interface. The record is read lazily on the first Token call; expired
// tokens are re-exchanged through the manager, which persists the result.
type TokenSource struct {
	manager *picus.Manager
	now     func() time.Time

	mu     sync.Mutex
	record *picus.TokenRecord
}

// Compile-time check to ensure TokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*TokenSource)(nil)

// New creates a TokenSource over the given manager. No I/O is performed
// until the first Token call.
func New(manager *picus.Manager) *TokenSource {
	return &TokenSource{
		manager: manager,
		now:     time.Now,
	}
}

// Token returns a valid access token, loading the record and exchanging the
// refresh token as needed. Safe for concurrent use.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	// oauth2.TokenSource.Token() has no context parameter (legacy interface
	// limitation), so storage and network calls run on the background context.
	ctx := context.Background()

	if ts.record == nil {
		loaded, err := ts.manager.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading token record: %w", err)
		}
		ts.record = loaded.Record
	}

	if tok := ts.validToken(); tok != nil {
		return tok, nil
	}

	updated, _, err := ts.manager.Authenticate(ctx, ts.record)
	if err != nil {
		return nil, fmt.Errorf("exchanging refresh token: %w", err)
	}
	ts.record = updated

	if tok := ts.validToken(); tok != nil {
		return tok, nil
	}
	return nil, fmt.Errorf("exchange produced an already-expired token (expires_at %d)", ts.record.ExpiresAt)
}

// validToken returns the cached token if it is still comfortably inside its
// lifetime, nil otherwise. Caller holds the lock.
func (ts *TokenSource) validToken() *oauth2.Token {
	if ts.record.AccessToken == "" {
		return nil
	}
	expiry := time.Unix(ts.record.ExpiresAt, 0)
	if ts.now().After(expiry.Add(-expirySkew)) {
		return nil
	}
	return &oauth2.Token{
		AccessToken: ts.record.AccessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}
}
