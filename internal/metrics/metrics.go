// Package metrics exposes the service counters in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so that several instances can coexist in tests.
type Metrics struct {
	Registry        *prometheus.Registry
	SignIns         *prometheus.CounterVec
	TokensIssued    *prometheus.CounterVec
	TokensRedeemed  *prometheus.CounterVec
	MailsDispatched *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SignIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kazzla",
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kazzla",
			Name:      "tokens_issued_total",
			Help:      "Single-use tokens issued by scheme.",
		}, []string{"scheme"}),
		TokensRedeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kazzla",
			Name:      "tokens_redeemed_total",
			Help:      "Token redemption attempts by scheme and outcome.",
		}, []string{"scheme", "outcome"}),
		MailsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kazzla",
			Name:      "mails_dispatched_total",
			Help:      "Mails handed to the transport by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SignIns,
		m.TokensIssued,
		m.TokensRedeemed,
		m.MailsDispatched,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
