// Package picus implements the token lifecycle for the Picus Security API:
// a persisted record holding a long-lived refresh token, exchange of that
// token for short-lived access tokens, and a connectivity probe against the
// agents endpoint.
//
// The Manager owns the record for one API identity. Its store is the source
// of truth: every successful exchange is flushed back before the updated
// record is returned, and nothing is persisted on failure. All operations
// are single-shot with one bounded request each; there are no retries and no
// background refresh.
package picus
