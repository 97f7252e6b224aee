// Package observability configures the process-wide logger.
//
// Logging goes through log/slog everywhere. By default records render to
// stderr as text or JSON; optionally the same records can be exported
// through the OpenTelemetry log bridge (stdout exporter for inspection,
// OTLP over HTTP or gRPC for a collector).
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const loggerName = "picusauth"

// ShutdownFunc flushes any buffered log export. Call it before the process
// exits.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Instrument installs the process-wide default slog logger.
//
// format selects the stderr rendering (text|json); export selects an
// optional OpenTelemetry export path (none|stdout|otlp_http|otlp_grpc).
// When an export path is active, records flow through the otelslog bridge
// and the returned ShutdownFunc must be called to flush them.
func Instrument(level slog.Level, format, export string) (ShutdownFunc, error) {
	if export == "" || export == "none" {
		handler, err := newHandler(level, format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return noopShutdown, nil
	}

	exporter, err := newExporter(export)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(loggerName),
	))
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	// minsev drops records below the configured level before they reach the
	// exporter; the bridge itself forwards everything.
	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(res),
	)

	slog.SetDefault(otelslog.NewLogger(loggerName, otelslog.WithLoggerProvider(provider)))
	return provider.Shutdown, nil
}

func newHandler(level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	case "", "text":
		return slog.NewTextHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func newExporter(export string) (sdklog.Exporter, error) {
	switch export {
	case "stdout":
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	case "otlp_http":
		return otlploghttp.New(context.Background())
	case "otlp_grpc":
		return otlploggrpc.New(context.Background())
	default:
		return nil, fmt.Errorf("unsupported log export: %s", export)
	}
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
