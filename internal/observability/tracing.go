package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/wsn-simulator/internal/logging"
)

// TracingName is the instrumentation scope of simulator spans.
const TracingName = "github.com/signalsfoundry/wsn-simulator"

// Span exporters.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const (
	defaultServiceName  = "wsn-simulator"
	defaultOTLPEndpoint = "localhost:4317"
	shutdownTimeout     = 5 * time.Second
)

// Environment variables overlaid by ApplyEnv.
const (
	EnvTracingEnabled = "WSN_TRACING_ENABLED"
	EnvTracingExport  = "WSN_TRACING_EXPORTER"
	EnvTracingService = "WSN_TRACING_SERVICE_NAME"
	EnvTracingRatio   = "WSN_TRACING_SAMPLE_RATIO"
	EnvOTLPEndpoint   = "WSN_OTLP_ENDPOINT"
)

// TracingConfig is the tracing block of a simulation config file.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Exporter    string  `yaml:"exporter" json:"exporter"`
	Endpoint    string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`

	// Output receives stdout exporter spans; defaults to os.Stdout.
	Output io.Writer `yaml:"-" json:"-"`
}

// DefaultTracingConfig is disabled tracing that would export every step
// span to stdout once enabled.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: defaultServiceName,
		Exporter:    ExporterStdout,
		SampleRatio: 1,
	}
}

// ApplyEnv overlays the WSN_TRACING_* variables found by lookup (normally
// os.LookupEnv) onto c. Malformed values are errors rather than silently
// ignored.
func (c TracingConfig) ApplyEnv(lookup func(string) (string, bool)) (TracingConfig, error) {
	var errs []error
	if v, ok := lookup(EnvTracingEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTracingEnabled, err))
		}
		c.Enabled = enabled
	}
	if v, ok := lookup(EnvTracingExport); ok && v != "" {
		c.Exporter = v
	}
	if v, ok := lookup(EnvTracingService); ok && v != "" {
		c.ServiceName = v
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok && v != "" {
		c.Endpoint = v
	}
	if v, ok := lookup(EnvTracingRatio); ok && v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTracingRatio, err))
		}
		c.SampleRatio = ratio
	}
	if err := errors.Join(errs...); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate checks the exporter name and the sampling ratio.
func (c TracingConfig) Validate() error {
	var errs []error
	switch c.exporter() {
	case ExporterStdout, ExporterOTLP:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is not one of %s, %s", c.Exporter, ExporterStdout, ExporterOTLP))
	}
	if !(c.SampleRatio >= 0 && c.SampleRatio <= 1) {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %g", c.SampleRatio))
	}
	return errors.Join(errs...)
}

func (c TracingConfig) exporter() string {
	switch e := strings.ToLower(strings.TrimSpace(c.Exporter)); e {
	case "":
		return ExporterStdout
	case "otlpgrpc":
		return ExporterOTLP
	default:
		return e
	}
}

// Tracing owns the process-wide tracer provider installed by
// StartTracing.
type Tracing struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// StartTracing validates cfg, installs a tracer provider and text map
// propagators globally, and returns a handle for the step tracer and the
// final flush. Disabled tracing installs a noop provider.
func StartTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*Tracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		t := &Tracing{provider: noop.NewTracerProvider()}
		otel.SetTracerProvider(t.provider)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug(ctx, "tracing disabled")
		return t, nil
	}

	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s span exporter: %w", cfg.exporter(), err)
	}
	service := cfg.ServiceName
	if service == "" {
		service = defaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", service),
		attribute.String("service.namespace", "wsn"),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.exporter()),
		logging.String("service_name", service),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return &Tracing{provider: tp, shutdown: tp.Shutdown}, nil
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.exporter() == ExporterOTLP {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	return stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithoutTimestamps(),
	)
}

// Tracer returns the tracer step spans are opened on.
func (t *Tracing) Tracer() trace.Tracer {
	return t.provider.Tracer(TracingName)
}

// Shutdown flushes buffered spans, bounded by a timeout. Failures are
// logged.
func (t *Tracing) Shutdown(ctx context.Context, log logging.Logger) {
	if t == nil || t.shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := t.shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}
