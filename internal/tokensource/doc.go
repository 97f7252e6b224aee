// Package tokensource adapts the Picus token manager to oauth2.TokenSource
// so the integration can be embedded in other programs.
//
// The Picus API is not standard OAuth2 (the token endpoint takes a bare JSON
// refresh_token and answers with token/expire_at), so the adapter drives the
// exchange through the manager instead of oauth2.Config and only exposes the
// result through the standard interface:
//
//	ts := tokensource.New(manager)
//	client := oauth2.NewClient(ctx, ts) // authorized *http.Client
package tokensource
