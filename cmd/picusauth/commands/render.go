package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/threatflow/picusauth/internal/app"
	"github.com/threatflow/picusauth/internal/picus"
)

// Rendering of structured reports into operator-facing console text. Core
// operations never print; everything human-readable lives here.

func renderStatus(w io.Writer, r *app.StatusReport) {
	fmt.Fprintln(w, "Token status")

	switch r.Snapshot.RefreshToken {
	case picus.RefreshTokenSet:
		fmt.Fprintln(w, "  refresh token: set")
	case picus.RefreshTokenPlaceholder:
		fmt.Fprintln(w, "  refresh token: placeholder (update the record with your real token)")
	default:
		fmt.Fprintln(w, "  refresh token: not set")
	}

	switch {
	case !r.Snapshot.AccessTokenSet:
		fmt.Fprintln(w, "  access token:  not set")
	case r.Snapshot.AccessTokenValid:
		fmt.Fprintf(w, "  access token:  valid (expires in %dm%ds)\n",
			r.Snapshot.RemainingSeconds/60, r.Snapshot.RemainingSeconds%60)
	default:
		fmt.Fprintln(w, "  access token:  expired")
	}

	if r.AgeKnown {
		fmt.Fprintf(w, "  record age:    %d days", r.AgeDays)
		if r.Stale {
			fmt.Fprint(w, " (older than 6 months, consider regenerating the refresh token)")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  base URL:      %s\n", r.BaseURL)
	fmt.Fprintf(w, "  record:        %s\n", r.Location)
}

func renderAuth(w io.Writer, r *app.AuthReport) {
	fmt.Fprintln(w, "Authentication successful")
	fmt.Fprintf(w, "  access token: %s\n", truncateToken(r.Record.AccessToken))
	fmt.Fprintf(w, "  expires:      %s\n", time.Unix(r.Record.ExpiresAt, 0).Format(time.RFC3339))
	if r.Warning != nil {
		fmt.Fprintf(w, "  warning:      saved without confirmed restricted permissions (%v)\n", r.Warning)
	}
}

func renderProbe(w io.Writer, r *app.ProbeReport) {
	if r.Err == nil {
		fmt.Fprintf(w, "API probe successful: found %d Picus agents\n", r.AgentCount)
		return
	}

	fmt.Fprintf(w, "API probe failed: %v\n", r.Err)
	switch {
	case errors.Is(r.Err, picus.ErrTokenExpiredOrInvalid):
		fmt.Fprintln(w, "  the access token may be expired or invalid")
	case errors.Is(r.Err, picus.ErrInsufficientPermission):
		fmt.Fprintln(w, "  the token lacks permission for this API endpoint")
	}
}

// renderOperationError prints user-facing guidance for a failed load or
// exchange and is the single place the error taxonomy is translated for the
// operator.
func renderOperationError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var authErr *picus.AuthError
	switch {
	case errors.As(err, &authErr):
		switch authErr.StatusCode {
		case http.StatusUnauthorized:
			fmt.Fprintln(w, "  the refresh token is likely invalid or expired; regenerate it in the Picus Console")
		case http.StatusForbidden:
			fmt.Fprintln(w, "  the refresh token lacks permission for the token endpoint")
		}
	case errors.Is(err, picus.ErrTimeout):
		fmt.Fprintln(w, "  request timed out; check network connectivity")
	case errors.Is(err, picus.ErrConnectionFailed):
		fmt.Fprintln(w, "  connection failed; check the base URL and network")
	case errors.Is(err, picus.ErrInvalidRecord):
		fmt.Fprintln(w, "  update the refresh_token in the record, or run `picusauth setup`")
	}
}

func truncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
