// Package telemetry records tool calls as OpenTelemetry metrics and spans.
// Without an installed SDK the global providers are no-ops.
package telemetry

import (
	"context"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/toolset"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope for meters and tracers.
const ScopeName = "github.com/atlanticdynamic/builtinmcp"

const (
	MetricInvocations = "builtinmcp.tool.invocations"
	MetricLatency     = "builtinmcp.tool.latency"
	SpanToolCall      = "tool.call"
)

// ToolObserver implements toolset.Observer.
type ToolObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

var _ toolset.Observer = (*ToolObserver)(nil)

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
// A nil tracer disables spans.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		MetricInvocations,
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		MetricLatency,
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &ToolObserver{
		tracer:      tracer,
		invocations: invocations,
		latency:     latency,
	}, nil
}

// NewGlobalToolObserver binds to the global meter and tracer providers.
func NewGlobalToolObserver() (*ToolObserver, error) {
	return NewToolObserver(otel.Meter(ScopeName), otel.Tracer(ScopeName))
}

// ObserveInvoke records one finished call. The span is backdated to the call
// start so its duration matches the latency histogram.
func (o *ToolObserver) ObserveInvoke(ctx context.Context, obs toolset.Observation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("server", obs.Server),
		attribute.String("tool_name", obs.Tool),
		attribute.Bool("success", obs.Success()),
	}
	if !obs.Success() {
		attrs = append(attrs, attribute.String("error_class", obs.Class.String()))
	}

	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, obs.Duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	end := time.Now()
	_, span := o.tracer.Start(ctx, SpanToolCall,
		trace.WithTimestamp(end.Add(-obs.Duration)),
		trace.WithAttributes(append(attrs, attribute.String("call_id", obs.CallID))...),
	)
	if obs.Success() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, obs.Class.String())
	}
	span.End(trace.WithTimestamp(end))
}
