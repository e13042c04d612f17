package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/furry-store/state"
)

const defaultTracerName = "github.com/odvcencio/furry-store"

type traceConfig struct {
	provider trace.TracerProvider
	name     string
	attrs    []attribute.KeyValue
}

// TraceOption configures the tracing middleware.
type TraceOption func(*traceConfig)

// WithTracerProvider sets the provider. Default: the global provider.
func WithTracerProvider(provider trace.TracerProvider) TraceOption {
	return func(c *traceConfig) {
		c.provider = provider
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *traceConfig) {
		c.name = name
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) TraceOption {
	return func(c *traceConfig) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// Trace wraps every transition in a span named "store.set <name>". The span
// covers listener notification, so nested transitions made by listeners
// become separate spans.
func Trace[T any](opts ...TraceOption) state.Middleware[T] {
	config := traceConfig{name: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	return func(set state.SetFunc[T], get state.GetFunc[T], api *state.Store[T]) state.SetFunc[T] {
		provider := config.provider
		if provider == nil {
			provider = otel.GetTracerProvider()
		}
		tracer := provider.Tracer(config.name)
		base := append([]attribute.KeyValue{
			attribute.String("store.name", api.Name()),
			attribute.String("store.id", api.ID().String()),
		}, config.attrs...)

		return func(partial state.Partial[T], replace bool) error {
			_, span := tracer.Start(context.Background(), "store.set "+api.Name(),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(base...),
				trace.WithAttributes(
					attribute.String("store.partial", state.KindOf(partial)),
					attribute.Bool("store.replace", replace),
				),
			)
			defer span.End()

			prev := get()
			if err := set(partial, replace); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetAttributes(
				attribute.Bool("store.changed", get() != prev),
				attribute.Int("store.listeners", api.ListenerCount()),
			)
			return nil
		}
	}
}
