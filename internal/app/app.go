package app

import (
	"context"
	"fmt"

	"github.com/threatflow/picusauth/internal/picus"
)

// App wires configuration, record storage and the API client into the
// one-shot operations the CLI exposes. Operations return structured reports;
// rendering them is the command layer's job.
type App struct {
	cfg     *Config
	manager *picus.Manager
}

// New creates a new App instance.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Storage.NewRecordStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create record store: %w", err)
	}

	client := picus.NewClient(cfg.API.BaseURL, picus.WithTimeout(cfg.API.Timeout))

	manager, err := picus.NewManager(store, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	return &App{
		cfg:     cfg,
		manager: manager,
	}, nil
}

// Manager exposes the underlying token manager, e.g. for building an
// oauth2.TokenSource over it.
func (a *App) Manager() *picus.Manager {
	return a.manager
}

// StatusReport describes the stored record's token state.
type StatusReport struct {
	Snapshot picus.StatusSnapshot
	BaseURL  string
	Location string
	AgeDays  int
	AgeKnown bool
	Stale    bool
}

// Status loads the record and reports its token state.
func (a *App) Status(ctx context.Context) (*StatusReport, error) {
	loaded, err := a.manager.Load(ctx)
	if err != nil {
		return nil, err
	}
	return a.statusReport(loaded), nil
}

func (a *App) statusReport(loaded *picus.LoadResult) *StatusReport {
	return &StatusReport{
		Snapshot: a.manager.Status(loaded.Record),
		BaseURL:  a.manager.BaseURL(),
		Location: a.manager.Location(),
		AgeDays:  loaded.AgeDays,
		AgeKnown: loaded.AgeKnown,
		Stale:    loaded.Stale,
	}
}

// AuthReport describes a successful token exchange.
type AuthReport struct {
	Record *picus.TokenRecord
	// Warning carries a non-fatal storage hardening failure; the record was
	// still persisted.
	Warning error
}

// ProbeReport describes the outcome of the connectivity probe. A failed
// probe does not invalidate an already-persisted access token, so the error
// rides in the report instead of aborting the operation that ran it.
type ProbeReport struct {
	AgentCount int
	Err        error
}

// TestReport is the outcome of the authenticate-then-probe sequence.
type TestReport struct {
	Load  *picus.LoadResult
	Auth  *AuthReport
	Probe *ProbeReport
}

// Test loads the record, exchanges the refresh token and probes the API.
// Load or exchange failures abort; a probe failure is reported but leaves
// the freshly persisted token in place.
func (a *App) Test(ctx context.Context) (*TestReport, error) {
	loaded, err := a.manager.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &TestReport{Load: loaded}
	if err := a.authenticateAndProbe(ctx, loaded.Record, report); err != nil {
		return nil, err
	}
	return report, nil
}

// DefaultReport is the outcome of the flagless invocation: always a status
// snapshot, plus the test sequence when a usable refresh token is present.
type DefaultReport struct {
	Status *StatusReport
	Auth   *AuthReport
	Probe  *ProbeReport
}

// Default reports status and, if the record is usable, runs the test
// sequence.
func (a *App) Default(ctx context.Context) (*DefaultReport, error) {
	loaded, err := a.manager.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &DefaultReport{Status: a.statusReport(loaded)}
	if !loaded.Record.HasUsableRefreshToken() {
		return report, nil
	}

	test := &TestReport{}
	if err := a.authenticateAndProbe(ctx, loaded.Record, test); err != nil {
		return report, err
	}
	report.Auth = test.Auth
	report.Probe = test.Probe
	return report, nil
}

// SetupReport is the outcome of the setup flow for a freshly supplied
// refresh token.
type SetupReport struct {
	Auth  *AuthReport
	Probe *ProbeReport
}

// Setup replaces the stored record with one holding the supplied refresh
// token, then verifies it end to end. The record is only persisted if the
// exchange succeeds.
func (a *App) Setup(ctx context.Context, refreshToken string) (*SetupReport, error) {
	record := &picus.TokenRecord{RefreshToken: refreshToken}

	test := &TestReport{}
	if err := a.authenticateAndProbe(ctx, record, test); err != nil {
		return nil, err
	}
	return &SetupReport{Auth: test.Auth, Probe: test.Probe}, nil
}

func (a *App) authenticateAndProbe(ctx context.Context, record *picus.TokenRecord, report *TestReport) error {
	updated, receipt, err := a.manager.Authenticate(ctx, record)
	if err != nil {
		return err
	}
	report.Auth = &AuthReport{Record: updated, Warning: receipt.Warning}

	count, err := a.manager.Probe(ctx, updated.AccessToken)
	report.Probe = &ProbeReport{AgentCount: count, Err: err}
	return nil
}

// CreateExampleReport describes the written placeholder record.
type CreateExampleReport struct {
	Location string
	Warning  error
}

// CreateExample writes the placeholder record for the operator to fill in.
func (a *App) CreateExample(ctx context.Context) (*CreateExampleReport, error) {
	receipt, err := a.manager.CreateExample(ctx)
	if err != nil {
		return nil, err
	}
	return &CreateExampleReport{
		Location: a.manager.Location(),
		Warning:  receipt.Warning,
	}, nil
}
