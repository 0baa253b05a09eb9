package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reminder_bot",
			Name:      "reminders_scheduled_total",
			Help:      "Reminders armed with an in-process timer.",
		},
	)

	remindersDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reminder_bot",
			Name:      "reminders_delivered_total",
			Help:      "Fired reminders by delivery outcome.",
		},
		[]string{"outcome"},
	)

	remindersDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reminder_bot",
			Name:      "reminders_dropped_total",
			Help:      "Reminders deleted without delivery because they were already due.",
		},
	)

	remindersCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reminder_bot",
			Name:      "reminders_cancelled_total",
			Help:      "Reminders cancelled by users.",
		},
	)

	remindersPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reminder_bot",
			Name:      "reminders_pending",
			Help:      "Armed timers waiting to fire.",
		},
	)

	resolveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reminder_bot",
			Name:      "resolve_failures_total",
			Help:      "Reminder texts rejected by the time resolver.",
		},
		[]string{"reason"},
	)
)
