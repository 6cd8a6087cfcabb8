package telemetry

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SessionCounter reports the number of live sessions.
type SessionCounter func(ctx context.Context) (int64, error)

// InitAppMetrics registers gauges for the database pool and active sessions.
// Either source may be nil.
func InitAppMetrics(serviceName string, pool *pgxpool.Pool, sessions SessionCounter) error {
	meter := otel.Meter(serviceName)

	poolConns, err := meter.Int64ObservableGauge(
		"swiftsnip_db_pool_connections",
		metric.WithDescription("Conexoes do pool do banco por estado"),
	)
	if err != nil {
		return err
	}

	activeSessions, err := meter.Int64ObservableGauge(
		"swiftsnip_sessions_active",
		metric.WithDescription("Sessoes ativas"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		if pool != nil {
			stat := pool.Stat()
			o.ObserveInt64(poolConns, int64(stat.AcquiredConns()), metric.WithAttributes(attribute.String("state", "acquired")))
			o.ObserveInt64(poolConns, int64(stat.IdleConns()), metric.WithAttributes(attribute.String("state", "idle")))
			o.ObserveInt64(poolConns, int64(stat.TotalConns()), metric.WithAttributes(attribute.String("state", "total")))
		}
		if sessions != nil {
			n, err := sessions(ctx)
			if err != nil {
				LogWarn(ctx, "active sessions gauge failed", LogErr(err))
				return nil
			}
			o.ObserveInt64(activeSessions, n)
		}
		return nil
	}, poolConns, activeSessions)
	return err
}

var (
	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
)

func initRunInstruments(serviceName string) error {
	meter := otel.Meter(serviceName)

	var err error
	runsTotal, err = meter.Int64Counter(
		"swiftsnip_runs_total",
		metric.WithDescription("Execucoes de codigo no sandbox por resultado"),
	)
	if err != nil {
		return err
	}
	runDuration, err = meter.Float64Histogram(
		"swiftsnip_run_duration_seconds",
		metric.WithDescription("Duracao das execucoes no sandbox"),
		metric.WithUnit("s"),
	)
	return err
}

// RecordRun counts one sandbox execution. outcome is ok, error, timeout or truncated.
// It is a no-op until InitMetrics has run.
func RecordRun(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if runsTotal != nil {
		runsTotal.Add(ctx, 1, attrs)
	}
	if runDuration != nil {
		runDuration.Record(ctx, d.Seconds(), attrs)
	}
}
