package picus

import (
	"encoding/json"
	"time"
)

const (
	// PlaceholderRefreshToken is the sentinel written by CreateExample and
	// rejected everywhere else until the operator replaces it.
	PlaceholderRefreshToken = "your_refresh_token_here"

	// staleAfter is the advisory age threshold for refresh tokens. Picus
	// refresh tokens are typically rotated every six months.
	staleAfter = 180 * 24 * time.Hour
)

// TokenRecord is the persisted token document. It is the sole source of
// truth for the integration; in-memory copies are caches rebuilt on Load.
type TokenRecord struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
	// ExpiresAt is the Unix timestamp (seconds) after which AccessToken is
	// invalid. Written together with AccessToken, never alone.
	ExpiresAt int64 `json:"expires_at,omitempty"`
	// Timestamp records when the record was last written, in Unix
	// milliseconds. Used only for advisory age reporting.
	Timestamp int64  `json:"timestamp"`
	CreatedAt string `json:"created_at"`
	// Instructions is only present in the example record written by
	// CreateExample.
	Instructions []string `json:"_instructions,omitempty"`
}

// RefreshTokenState classifies the refresh token slot of a record.
type RefreshTokenState string

const (
	RefreshTokenUnset       RefreshTokenState = "unset"
	RefreshTokenPlaceholder RefreshTokenState = "placeholder"
	RefreshTokenSet         RefreshTokenState = "set"
)

// RefreshState reports whether the refresh token is usable.
func (r *TokenRecord) RefreshState() RefreshTokenState {
	switch r.RefreshToken {
	case "":
		return RefreshTokenUnset
	case PlaceholderRefreshToken:
		return RefreshTokenPlaceholder
	default:
		return RefreshTokenSet
	}
}

// HasUsableRefreshToken reports whether the record can be authenticated with.
func (r *TokenRecord) HasUsableRefreshToken() bool {
	return r.RefreshState() == RefreshTokenSet
}

// AgeDays returns the whole days since the record was last written, and
// whether an age could be computed at all (records written by hand may lack
// a timestamp).
func (r *TokenRecord) AgeDays(now time.Time) (int, bool) {
	if r.Timestamp == 0 {
		return 0, false
	}
	written := time.UnixMilli(r.Timestamp)
	return int(now.Sub(written).Hours() / 24), true
}

// Stale reports whether the refresh token is older than the advisory
// rotation threshold. Advisory only, never blocks an operation.
func (r *TokenRecord) Stale(now time.Time) bool {
	if r.Timestamp == 0 {
		return false
	}
	return now.Sub(time.UnixMilli(r.Timestamp)) > staleAfter
}

// StatusSnapshot is a pure report of the record's token state at a given
// instant. No I/O is involved in producing it.
type StatusSnapshot struct {
	RefreshToken     RefreshTokenState
	AccessTokenSet   bool
	AccessTokenValid bool
	// RemainingSeconds until expiry; meaningful only when AccessTokenValid.
	RemainingSeconds int64
	ExpiresAt        int64
}

// Status computes the snapshot for a record as of now.
func Status(r *TokenRecord, now time.Time) StatusSnapshot {
	s := StatusSnapshot{
		RefreshToken: r.RefreshState(),
		ExpiresAt:    r.ExpiresAt,
	}
	if r.AccessToken == "" {
		return s
	}
	s.AccessTokenSet = true
	if now.Unix() < r.ExpiresAt {
		s.AccessTokenValid = true
		s.RemainingSeconds = r.ExpiresAt - now.Unix()
	}
	return s
}

// marshalRecord serializes a record the way the token file expects it:
// indented, human-readable JSON.
func marshalRecord(r *TokenRecord) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func unmarshalRecord(data []byte) (*TokenRecord, error) {
	r := &TokenRecord{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}
