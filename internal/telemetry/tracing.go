package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const careTracerName = "plant-care/internal/service"

func CareTracer() trace.Tracer {
	return otel.Tracer(careTracerName)
}

// StartJobSpan opens a span around one job executed by the work queue.
func StartJobSpan(ctx context.Context, job string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return CareTracer().Start(ctx, "plantcare."+job, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
