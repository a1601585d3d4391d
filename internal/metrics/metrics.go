package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubmissionsTotal counts attendance submissions by final outcome.
var SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qrattend_submissions_total",
	Help: "Attendance submissions by outcome.",
}, []string{"outcome"})

// ValidationsTotal counts location validation verdicts by reason.
var ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qrattend_location_validations_total",
	Help: "Location validation verdicts by reason.",
}, []string{"reason"})

// AuditWritesTotal counts validation-log writes by status.
var AuditWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qrattend_audit_writes_total",
	Help: "Validation log writes by status.",
}, []string{"status"})
