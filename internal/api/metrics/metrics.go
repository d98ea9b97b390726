// Package metrics defines and registers all custom Prometheus metrics for the
// LMS API. It is the single source of truth for metric names, labels, and
// help strings. Metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lms"

// ── Credential lifecycle ──────────────────────────────────────────────────────

// RegistrationsTotal counts sign-up attempts.
// Label:
//   - result: "created", "duplicate", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "unverified" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// EmailVerificationsTotal counts OTP submissions.
// Label:
//   - result: "verified", "invalid" or "error"
var EmailVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_verifications_total",
		Help:      "Total number of email verification attempts, by result.",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts password recovery steps.
// Labels:
//   - stage: "requested" or "completed"
//   - result: "ok", "rejected" or "error"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and completions, by result.",
	},
	[]string{"stage", "result"},
)

// ── Notifications ─────────────────────────────────────────────────────────────

// NotificationsTotal counts outbound emails by delivery outcome.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of outbound notifications, by delivery result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the number of messages waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDeliveryDuration measures how long a single delivery takes.
var NotificationDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_delivery_duration_seconds",
		Help:      "Duration of a single notification delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Content ───────────────────────────────────────────────────────────────────

// ContentCreatedTotal counts newly created dashboard content.
// Label:
//   - kind: "announcement", "lesson", "promotion_task" or "resource"
var ContentCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "content_created_total",
		Help:      "Total number of content items created, by kind.",
	},
	[]string{"kind"},
)

// TaskSubmissionsTotal counts promotion task submissions.
// Label:
//   - result: "accepted", "rejected" or "error"
var TaskSubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_submissions_total",
		Help:      "Total number of promotion task submissions, by result.",
	},
	[]string{"result"},
)
