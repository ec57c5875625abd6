package otelobs

import "go.opentelemetry.io/otel/metric"

// Metrics holds the counters an EventLoop reports against per iteration.
type Metrics struct {
	IterationsTotal     metric.Int64Counter
	ConsecutiveFailures metric.Int64UpDownCounter
	CumulativeCostUSD   metric.Float64Counter
	CheckpointFailures  metric.Int64Counter
}

// NewMetrics creates all metric instruments from meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.IterationsTotal, err = meter.Int64Counter("ralph.iterations",
		metric.WithDescription("Total event loop iterations executed"),
	)
	if err != nil {
		return nil, err
	}

	m.ConsecutiveFailures, err = meter.Int64UpDownCounter("ralph.consecutive_failures",
		metric.WithDescription("Current consecutive iteration failure count"),
	)
	if err != nil {
		return nil, err
	}

	m.CumulativeCostUSD, err = meter.Float64Counter("ralph.cost.cumulative_usd",
		metric.WithDescription("Cumulative reported executor cost in USD"),
		metric.WithUnit("{USD}"),
	)
	if err != nil {
		return nil, err
	}

	m.CheckpointFailures, err = meter.Int64Counter("ralph.checkpoint.failures",
		metric.WithDescription("Checkpoint hook failures (non-fatal)"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
