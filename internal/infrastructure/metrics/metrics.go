// Package metrics holds the identity service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains the counters recorded by the identity flows and the
// notification worker
type Metrics struct {
	Signups       *prometheus.CounterVec
	OTPIssued     *prometheus.CounterVec
	OTPVerified   *prometheus.CounterVec
	SignIns       *prometheus.CounterVec
	Lockouts      prometheus.Counter
	Notifications *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
}

// New creates the identity metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Signups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_signups_total",
				Help: "Signup attempts by outcome",
			},
			[]string{"outcome"},
		),
		OTPIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_otp_issued_total",
				Help: "Verification codes issued by purpose and channel",
			},
			[]string{"purpose", "channel"},
		),
		OTPVerified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_otp_verifications_total",
				Help: "Verification code submissions by outcome",
			},
			[]string{"outcome"},
		),
		SignIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_signins_total",
				Help: "Sign-in attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		Lockouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_lockouts_total",
				Help: "Accounts placed under a sign-in lockout",
			},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_notifications_submitted_total",
				Help: "Notification submissions to the sink by template and result",
			},
			[]string{"template", "result"},
		),
		Deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_notifications_delivered_total",
				Help: "Notification deliveries attempted by the worker by channel and result",
			},
			[]string{"channel", "result"},
		),
	}

	reg.MustRegister(
		m.Signups,
		m.OTPIssued,
		m.OTPVerified,
		m.SignIns,
		m.Lockouts,
		m.Notifications,
		m.Deliveries,
	)
	return m
}

// NewRegistry returns a registry with the Go and process collectors plus the
// identity metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry, New(registry)
}

// NewNop returns metrics registered nowhere
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Outcome converts an error to a label value
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}
