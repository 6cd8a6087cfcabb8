package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTraceScope = "swiftsnip-api"

// StartSpan creates a child span for fine-grained timing inside a request.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(defaultTraceScope)
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// SnippetAttrs labels spans that touch one snippet.
func SnippetAttrs(id, language string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("snippet.id", id)}
	if language != "" {
		attrs = append(attrs, attribute.String("snippet.language", language))
	}
	return attrs
}

// ListAttrs labels list spans with the query shape, never the search text itself.
func ListAttrs(scope string, searching bool, tags, languages int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("snippets.scope", scope),
		attribute.Bool("snippets.search", searching),
		attribute.Int("snippets.tags", tags),
		attribute.Int("snippets.languages", languages),
	}
}

// RunAttrs labels sandbox executions.
func RunAttrs(runID string, codeBytes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.Int("run.code_bytes", codeBytes),
	}
}
