// Package metrics collects and exposes Prometheus metrics for the API and
// the outbox worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records all Taskdeck metrics on one registry.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	loginFailures    prometheus.Counter
	ticketCollisions prometheus.Counter
	ticketsIssued    prometheus.Counter
	outboxPublished  prometheus.Counter
	outboxFailed     prometheus.Counter
	outboxDeadLetter prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskdeck_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_login_failures_total",
			Help: "Failed credential logins.",
		}),
		ticketCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_ticket_collisions_total",
			Help: "Ticket number insert races that forced a reallocation.",
		}),
		ticketsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_tickets_issued_total",
			Help: "Ticket numbers issued to new tasks.",
		}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_outbox_published_total",
			Help: "Outbox events published downstream.",
		}),
		outboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_outbox_failed_total",
			Help: "Outbox publish attempts that failed and will retry.",
		}),
		outboxDeadLetter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_outbox_dead_lettered_total",
			Help: "Outbox events parked after exhausting retries.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.loginFailures,
		c.ticketCollisions,
		c.ticketsIssued,
		c.outboxPublished,
		c.outboxFailed,
		c.outboxDeadLetter,
	)

	return c
}

// RecordHTTPRequest records one completed request. route is the chi route
// pattern, not the raw path, to keep cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLoginFailure records one rejected credential login.
func (c *Collector) RecordLoginFailure() { c.loginFailures.Inc() }

// RecordTicketCollision records one lost ticket-insert race.
func (c *Collector) RecordTicketCollision() { c.ticketCollisions.Inc() }

// RecordTicketIssued records one ticket number handed out.
func (c *Collector) RecordTicketIssued() { c.ticketsIssued.Inc() }

// RecordOutboxPublished records one event published by the worker.
func (c *Collector) RecordOutboxPublished() { c.outboxPublished.Inc() }

// RecordOutboxFailure records one failed publish attempt.
func (c *Collector) RecordOutboxFailure() { c.outboxFailed.Inc() }

// RecordOutboxDeadLettered records one event parked permanently.
func (c *Collector) RecordOutboxDeadLettered() { c.outboxDeadLetter.Inc() }

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
