package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	entries         *prometheus.CounterVec
	projectsCreated prometheus.Counter
	events          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "spreadsheet_uploads_total",
			Help:      "Spreadsheet uploads by parse result.",
		}, []string{"result"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "entries_total",
			Help:      "Attendance entry writes by status.",
		}, []string{"status"}),
		projectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "projects_created_total",
			Help:      "Projects created.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "events_consumed_total",
			Help:      "Change events consumed by type.",
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.uploads, m.entries, m.projectsCreated, m.events} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMock returns collectors registered nowhere, for tests.
func NewMock() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}

// Middleware records count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordUpload counts one upload, parsed or not.
func (m *Metrics) RecordUpload(parsed bool) {
	result := "ok"
	if !parsed {
		result = "error"
	}
	m.uploads.WithLabelValues(result).Inc()
}

// RecordEntry counts an entry write with its reported status.
func (m *Metrics) RecordEntry(status string) {
	m.entries.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordProjectCreated() {
	m.projectsCreated.Inc()
}

func (m *Metrics) RecordEvent(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}
