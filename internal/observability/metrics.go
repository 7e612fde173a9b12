// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// sessionsSwept and sessionsRevoked are package-level counters so the auth
// service can record session garbage collection without holding a Server.
var (
	sessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workstation_sessions_swept_total",
			Help: "Total number of expired sessions removed by opportunistic sweeps",
		},
	)
	sessionsRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workstation_sessions_revoked_total",
			Help: "Total number of sessions revoked by reason",
		},
		[]string{"reason"},
	)
)

// RecordSessionsSwept adds to the swept-session counter. Called after a
// sweep that removed at least one expired session.
func RecordSessionsSwept(n int64) {
	sessionsSwept.Add(float64(n))
}

// RecordSessionsRevoked adds to the revoked-session counter. Called when a
// password change or reset purges a user's sessions.
func RecordSessionsRevoked(reason string, n int64) {
	sessionsRevoked.WithLabelValues(reason).Add(float64(n))
}

// Metrics contains custom Prometheus metrics for the workstation service.
type Metrics struct {
	LoginsTotal           *prometheus.CounterVec
	RegistrationsTotal    *prometheus.CounterVec
	TokenValidationsTotal *prometheus.CounterVec
	SessionsIssuedTotal   prometheus.Counter
}

// NewMetrics creates and registers the workstation metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workstation_logins_total",
				Help: "Total number of login attempts by status",
			},
			[]string{"status"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workstation_registrations_total",
				Help: "Total number of registration attempts by status",
			},
			[]string{"status"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workstation_token_validations_total",
				Help: "Total number of token validations by status",
			},
			[]string{"status"},
		),
		SessionsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "workstation_sessions_issued_total",
				Help: "Total number of sessions issued by login and registration",
			},
		),
	}

	reg.MustRegister(m.LoginsTotal)
	reg.MustRegister(m.RegistrationsTotal)
	reg.MustRegister(m.TokenValidationsTotal)
	reg.MustRegister(m.SessionsIssuedTotal)
	reg.MustRegister(sessionsSwept)
	reg.MustRegister(sessionsRevoked)

	return m
}
