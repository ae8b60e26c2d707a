package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignInAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_signin_attempts_total",
			Help: "Total number of sign-in attempts",
		},
		[]string{"status", "method"}, // status: success/failure, method: assertion/google
	)

	SignOuts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_signout_total",
			Help: "Total number of sign-outs",
		},
	)

	ProfileSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_profile_saves_total",
			Help: "Total number of profile saves",
		},
		[]string{"status", "kind"}, // kind: created/updated
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "membership_request_duration_seconds",
			Help:    "Time spent processing requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
