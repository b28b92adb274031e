package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Total number of reviews submitted for moderation",
	})

	reviewsModerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_moderated_total",
		Help: "Total number of moderation actions applied to reviews",
	}, []string{"action"})

	reportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_reports_total",
		Help: "Total number of reports filed against reviews",
	}, []string{"reason"})

	reportsAdjudicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_reports_adjudicated_total",
		Help: "Total number of reports adjudicated by an admin",
	}, []string{"decision"})

	recomputeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_aggregate_recompute_failures_total",
		Help: "Company aggregate recomputes that failed after a committed moderation write",
	}, []string{"trigger"})
)

// Recompute triggers.
const (
	triggerApprove        = "approve"
	triggerReject         = "reject"
	triggerReportApproved = "report_approved"
)
