package bulk

import (
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

var pLog = log.New(os.Stdout, "PROMTH: ", log.Ldate|log.Ltime)

type Metrics struct {
	Rows     *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goScim",
				Subsystem: "bulk",
				Name:      "rows_total",
				Help:      "Input rows processed, by outcome",
			},
			[]string{"outcome"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goScim",
				Subsystem: "bulk",
				Name:      "row_failures_total",
				Help:      "Failed rows, by step and error kind",
			},
			[]string{"step", "kind"},
		),
	}
	// Pre-initialize so every outcome appears in the output, even at zero.
	for _, o := range Outcomes {
		m.Rows.WithLabelValues(string(o))
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Rows, m.Failures} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
					continue
				}
				pLog.Println("WARNING: instrumentation error:" + err.Error())
			}
		}
	}
	return m
}

func (m *Metrics) row(outcome Outcome) {
	if m != nil {
		m.Rows.WithLabelValues(string(outcome)).Inc()
	}
}

func (m *Metrics) failure(step string, kind string) {
	if m != nil {
		m.Failures.WithLabelValues(step, kind).Inc()
	}
}
