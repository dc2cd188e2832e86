package client

import (
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

var pLog = log.New(os.Stdout, "PROMTH: ", log.Ldate|log.Ltime)

// Stats holds the client's request instrumentation. A nil *Stats records nothing.
type Stats struct {
	Requests    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	RateLimited prometheus.Counter
	RetryWait   prometheus.Counter
}

func NewStats(reg prometheus.Registerer) *Stats {
	stats := &Stats{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goScim",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "SCIM requests sent, by method and response status",
			},
			[]string{"method", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "goScim",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Duration of SCIM requests, excluding rate limit waits",
			},
			[]string{"method"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "goScim",
				Subsystem: "client",
				Name:      "rate_limited_total",
				Help:      "Responses with status 429",
			},
		),
		RetryWait: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "goScim",
				Subsystem: "client",
				Name:      "retry_wait_seconds_total",
				Help:      "Time spent waiting on Retry-After",
			},
		),
	}
	if reg != nil {
		registerCollector(reg, stats.Requests)
		registerCollector(reg, stats.Duration)
		registerCollector(reg, stats.RateLimited)
		registerCollector(reg, stats.RetryWait)
	}
	return stats
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) {
	err := reg.Register(collector)
	if err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		pLog.Println("WARNING: instrumentation error:" + err.Error())
	}
}
