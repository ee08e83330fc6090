package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CeresMetrics struct {
	Node *NodeMetrics
}

type NodeMetrics struct {
	Writes   metrics.Counter
	Outcomes metrics.Counter
}

func NewCeresMetrics(prometheusAddr string) *CeresMetrics {

	m := &CeresMetrics{}

	if prometheusAddr == "" {
		m.Node = &NodeMetrics{
			Writes:   discard.NewCounter(),
			Outcomes: discard.NewCounter(),
		}
	} else {
		m.Node = &NodeMetrics{
			Writes: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "ceres",
				Subsystem: "node",
				Name:      "writes_total",
				Help:      "Number of successful local record writes",
			}, nil),
			Outcomes: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "ceres",
				Subsystem: "node",
				Name:      "received_operations_total",
				Help:      "Number of received replicated operations by outcome",
			}, []string{"outcome"}),
		}
	}

	return m
}

func runPromHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return
	}

	http.Handle("/metrics", promhttp.Handler())

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
