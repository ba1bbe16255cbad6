package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

var countGauge, _ = otel.Meter("waimai.telemetry").Int64Gauge("report_count")

// SlogAPI implements API using log/slog, counts are mirrored into an
// otel gauge so they reach the metrics exporter when one is configured.
type SlogAPI struct{}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(*out, fmt.Sprintf("params.%d", i), p)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	pairs := []any{"id", id}
	s.formatParams(&pairs, params)
	slog.Error("broken component", pairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	pairs := []any{"id", id}
	s.formatParams(&pairs, params)
	slog.Warn("warning", pairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	pairs := []any{}
	s.formatParams(&pairs, params)
	slog.Debug(message, pairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
	countGauge.Record(
		context.Background(), count,
		metric.WithAttributes(attribute.String("id", id)),
	)
}
