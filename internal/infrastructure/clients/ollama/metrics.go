package ollama

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type llmMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var (
	llmMetricsOnce sync.Once
	llmMetricsOK   bool
	llmMetricsVals llmMetrics
)

func ensureLLMMetrics() bool {
	llmMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/moviegrounds/backend/ollama")

		requestCount, err := meter.Int64Counter(
			"ai.ollama.request.count",
			metric.WithDescription("Number of Ollama requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.ollama.request.duration",
			metric.WithDescription("Ollama request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.ollama.request.errors",
			metric.WithDescription("Number of Ollama request errors"),
		)
		if err != nil {
			return
		}

		llmMetricsVals = llmMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
		}
		llmMetricsOK = true
	})
	return llmMetricsOK
}

func recordLLMMetric(ctx context.Context, model, operation string, statusCode int, duration time.Duration, err error) {
	if !ensureLLMMetrics() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "ollama"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operation),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	llmMetricsVals.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	llmMetricsVals.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		llmMetricsVals.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
