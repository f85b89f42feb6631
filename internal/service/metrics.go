package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_wizard_steps_completed_total",
			Help: "Wizard steps passed by advancing",
		},
		[]string{"step"},
	)

	stepRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_wizard_step_rejections_total",
			Help: "Advance attempts blocked by invalid fields",
		},
		[]string{"step"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_wizard_submissions_total",
			Help: "Finished checkout submissions by payment method and status",
		},
		[]string{"payment_method", "status"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkout_wizard_active_sessions",
			Help: "Wizards currently held in memory",
		},
	)
)
