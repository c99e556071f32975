package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"dustbinpro/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dustbinpro_portal"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	domainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events published, by type.",
		},
		[]string{"type"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking submissions rejected because the day already holds an active booking.",
		},
	)

	noticeTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notice_tasks_total",
			Help:      "Outbox task attempts by type and outcome.",
		},
		[]string{"task_type", "outcome"},
	)

	outboxTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_tasks",
			Help:      "Outbox tasks by status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, domainEvents, bookingConflicts, noticeTasks, outboxTasks)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncEvent(eventType string) {
	domainEvents.WithLabelValues(eventType).Inc()
}

// CountEvents counts every portal event published on bus.
func CountEvents(bus *events.EventBus) {
	bus.SubscribeAll(func(e *events.Event) error {
		IncEvent(e.Type)
		return nil
	}, events.EventBookingCreated, events.EventBookingCancelled, events.EventPaymentRecorded, events.EventSupportTicketOpen)
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

// IncNoticeTask counts one delivery attempt; outcome is completed, retry or failed.
func IncNoticeTask(taskType, outcome string) {
	noticeTasks.WithLabelValues(taskType, outcome).Inc()
}

func SetOutboxTasks(counts map[string]int) {
	outboxTasks.Reset()
	for status, n := range counts {
		outboxTasks.WithLabelValues(status).Set(float64(n))
	}
}
