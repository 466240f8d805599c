package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/carball-mp/server/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	goals        metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	m := meter()
	ticks, err := m.Int64Counter("session.ticks",
		metric.WithDescription("Simulation ticks run"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}
	tickDuration, err := m.Float64Histogram("session.tick.duration",
		metric.WithDescription("Wall time spent in one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	goals, err := m.Int64Counter("session.goals",
		metric.WithDescription("Goals scored"),
		metric.WithUnit("{goal}"),
	)
	if err != nil {
		return nil, err
	}
	return &instruments{ticks: ticks, tickDuration: tickDuration, goals: goals}, nil
}
