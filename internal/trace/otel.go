package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/agentcore/orchestrator/pkg/core"
)

// OTelConfig configures the OpenTelemetry-backed Tracer kind, grounded
// on the teacher's observability.TraceConfig.
type OTelConfig struct {
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	Endpoint     string  `yaml:"endpoint"` // OTLP collector endpoint; empty disables export
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// OTel emits one span per TraceEvent by opening and immediately closing
// a zero-duration span stamped with the event's fields — the core has
// no notion of "span start" / "span end" boundaries of its own (spec's
// TraceEvent is a flat record, not a start/end pair), so each event
// becomes its own span named after the event, with SpanID, ParentSpanID,
// Kind and Metadata recorded as span attributes.
type OTel struct {
	tracer oteltrace.Tracer
}

// NewOTel builds an OTel tracer and a shutdown func. If cfg.Endpoint is
// empty, spans are recorded against the global (no-op by default)
// TracerProvider, mirroring the teacher's "no endpoint → no-op" fallback.
func NewOTel(cfg OTelConfig) (*OTel, func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return &OTel{tracer: otel.Tracer(serviceNameOrDefault(cfg.ServiceName))}, func(context.Context) error { return nil }, nil
	}

	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1.0
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, nil, core.InternalError("otel exporter: " + err.Error())
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", serviceNameOrDefault(cfg.ServiceName)),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return &OTel{tracer: provider.Tracer(serviceNameOrDefault(cfg.ServiceName))}, provider.Shutdown, nil
}

func serviceNameOrDefault(name string) string {
	if name == "" {
		return "agentcore-orchestrator"
	}
	return name
}

func (o *OTel) Trace(e core.TraceEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("span_id", e.SpanID),
		attribute.String("parent_span_id", e.ParentSpanID),
		attribute.String("kind", string(e.Kind)),
	}
	for k, v := range e.Metadata {
		attrs = append(attrs, attribute.String(k, v.ToString()))
	}

	_, span := o.tracer.Start(context.Background(), e.Name, oteltrace.WithAttributes(attrs...))
	if e.Error != nil {
		span.RecordError(errorFromInfo(e.Error))
		span.SetStatus(codes.Error, e.Error.Message)
	}
	span.End()
}

type traceErr struct{ msg string }

func (t traceErr) Error() string { return t.msg }

func errorFromInfo(info *core.TraceErrorInfo) error {
	return traceErr{msg: info.Message}
}

var _ core.Tracer = (*OTel)(nil)
