package liveness

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "votebooth/liveness"

type span struct {
	span trace.Span
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, *span) {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, s := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &span{span: s}
}

func (s *span) end(err error, attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
