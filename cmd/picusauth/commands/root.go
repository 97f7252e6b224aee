package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/threatflow/picusauth/internal/app"
	"github.com/threatflow/picusauth/internal/observability"
	"github.com/threatflow/picusauth/internal/tokenstore"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "picusauth",
		Usage: "Picus Security API token helper",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "log-export",
				Usage: "telemetry log export (none|stdout|otlp_http|otlp_grpc)",
				Value: string(app.DefaultConfigLogExport),
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Picus API base URL",
				Value: app.DefaultConfigBaseURL,
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "token record file path",
				Value: app.DefaultConfigTokenFile,
			},
		},
		Commands: []*cli.Command{
			statusCommand(),
			testCommand(),
			setupCommand(),
			createExampleCommand(),
		},
		Action: defaultAction,
	}

	return cmd.Run(ctx, args)
}

// setUp loads configuration and installs the logger. The returned shutdown
// func flushes any telemetry export and must run before the process exits.
func setUp(cmd *cli.Command) (*app.Config, observability.ShutdownFunc, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat), string(cfg.LogExport))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	return cfg, shutdown, nil
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "print the stored record's token state",
		Action: statusAction,
	}
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	report, err := application.Status(ctx)
	if err != nil {
		return operationFailed(cmd, err)
	}

	renderStatus(cmd.Writer, report)
	return nil
}

func testCommand() *cli.Command {
	return &cli.Command{
		Name:   "test",
		Usage:  "exchange the refresh token and probe the API",
		Action: testAction,
	}
}

func testAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	fmt.Fprintln(cmd.Writer, "Testing Picus API integration...")
	report, err := application.Test(ctx)
	if err != nil {
		return operationFailed(cmd, err)
	}

	renderAuth(cmd.Writer, report.Auth)
	renderProbe(cmd.Writer, report.Probe)
	if report.Probe.Err != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "interactively configure and verify a refresh token",
		Action: setupAction,
	}
}

func setupAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	p := newPrompter(cmd.Reader, cmd.Writer)

	fmt.Fprintln(cmd.Writer, "Picus token setup")
	fmt.Fprintf(cmd.Writer, "Current base URL: %s\n", cfg.API.BaseURL)
	newURL, err := p.line("Enter Picus API URL (press Enter to keep current): ")
	if err != nil {
		return fmt.Errorf("reading base URL: %w", err)
	}
	if newURL != "" {
		cfg.API.BaseURL = strings.TrimRight(newURL, "/")
	}

	fmt.Fprintln(cmd.Writer, "\nYou need a refresh token from your Picus Security Console:")
	fmt.Fprintln(cmd.Writer, "  1. Log into the console")
	fmt.Fprintln(cmd.Writer, "  2. Go to API Settings or Admin > API Management")
	fmt.Fprintln(cmd.Writer, "  3. Generate or copy your refresh token")
	token, err := p.secret("\nEnter your refresh token: ")
	if err != nil {
		return fmt.Errorf("reading refresh token: %w", err)
	}
	if token == "" {
		fmt.Fprintln(cmd.Writer, "No token provided, setup cancelled")
		return cli.Exit("", 1)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	report, err := application.Setup(ctx, token)
	if err != nil {
		renderOperationError(cmd.Writer, err)
		fmt.Fprintln(cmd.Writer, "Setup failed - please check your token and try again")
		return cli.Exit("", 1)
	}

	renderAuth(cmd.Writer, report.Auth)
	renderProbe(cmd.Writer, report.Probe)
	if report.Probe.Err != nil {
		// The exchanged token is already persisted; a failed probe is a
		// warning here, not a setup failure.
		fmt.Fprintln(cmd.Writer, "Authentication worked but the API probe failed; this may be a permission or network issue")
	} else {
		fmt.Fprintln(cmd.Writer, "Setup completed successfully")
	}
	return nil
}

func createExampleCommand() *cli.Command {
	return &cli.Command{
		Name:   "create-example",
		Usage:  "write a placeholder token record to fill in",
		Action: createExampleAction,
	}
}

func createExampleAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	report, err := application.CreateExample(ctx)
	if err != nil {
		return operationFailed(cmd, err)
	}

	fmt.Fprintf(cmd.Writer, "Example token record created: %s\n", report.Location)
	fmt.Fprintln(cmd.Writer, "Update the refresh_token with your real token before use")
	if report.Warning != nil {
		fmt.Fprintf(cmd.Writer, "warning: saved without confirmed restricted permissions (%v)\n", report.Warning)
	}
	return nil
}

// defaultAction prints status and, when a usable refresh token is present,
// runs the authenticate-then-probe sequence.
func defaultAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	report, err := application.Default(ctx)
	if report != nil && report.Status != nil {
		renderStatus(cmd.Writer, report.Status)
	}
	if err != nil {
		return operationFailed(cmd, err)
	}

	if report.Auth != nil {
		renderAuth(cmd.Writer, report.Auth)
	}
	if report.Probe != nil {
		renderProbe(cmd.Writer, report.Probe)
		if report.Probe.Err != nil {
			return cli.Exit("", 1)
		}
	}
	return nil
}

// operationFailed renders guidance for a failed operation and converts it
// into a bare exit-code-1 error (the guidance is the user-facing output).
func operationFailed(cmd *cli.Command, err error) error {
	if errors.Is(err, tokenstore.ErrNotFound) {
		fmt.Fprintf(cmd.Writer, "Error: %v\n", err)
		fmt.Fprintln(cmd.Writer, "  use `picusauth create-example` to create a token record, or `picusauth setup` for interactive setup")
		return cli.Exit("", 1)
	}

	renderOperationError(cmd.Writer, err)
	return cli.Exit("", 1)
}
