// Package metrics exports session and table measurements to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/endorses/gridsync/internal/pkg/session"
)

var _ session.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics of a client. It implements
// session.Recorder.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	SentEvents        prometheus.Counter
	CoalescedEvents   prometheus.Counter
	EventsReceived    *prometheus.CounterVec
	Busy              prometheus.Gauge
	Offline           prometheus.Gauge
	ReconnectAttempts *prometheus.CounterVec
	FatalMessages     *prometheus.CounterVec
	PollingStatus     *prometheus.GaugeVec
	TableRows         *prometheus.GaugeVec
}

var pollingStatuses = []string{
	session.PollingStopped.String(),
	session.PollingRunning.String(),
	session.PollingFailure.String(),
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_requests_total",
		Help: "Total number of session requests by kind and result",
	}, []string{"kind", "result"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridsync_request_duration_seconds",
		Help:    "Round trip time of session requests",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
	}, []string{"kind"})

	eventsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridsync_events_sent_total",
		Help: "Total number of events sent to the server",
	})

	eventsCoalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridsync_events_coalesced_total",
		Help: "Total number of queued events superseded before sending",
	})

	eventsReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_events_received_total",
		Help: "Total number of events received from the server",
	}, []string{"type"})

	busy := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridsync_busy",
		Help: "Whether the busy indicator is shown (0/1)",
	})

	offline := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridsync_offline",
		Help: "Whether the session is offline (0/1)",
	})

	reconnects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_reconnect_attempts_total",
		Help: "Total number of reconnect attempts by result",
	}, []string{"result"})

	fatal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridsync_fatal_messages_total",
		Help: "Total number of fatal server messages shown, by error code",
	}, []string{"code"})

	polling := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridsync_polling_status",
		Help: "Background polling status (1 for the current status)",
	}, []string{"status"})

	tableRows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridsync_table_rows",
		Help: "Rows of a table by state",
	}, []string{"table", "state"})

	reg.MustRegister(requests, requestDuration, eventsSent, eventsCoalesced, eventsReceived,
		busy, offline, reconnects, fatal, polling, tableRows)

	m := &Metrics{
		Requests:          requests,
		RequestDuration:   requestDuration,
		SentEvents:        eventsSent,
		CoalescedEvents:   eventsCoalesced,
		EventsReceived:    eventsReceived,
		Busy:              busy,
		Offline:           offline,
		ReconnectAttempts: reconnects,
		FatalMessages:     fatal,
		PollingStatus:     polling,
		TableRows:         tableRows,
	}
	m.SetPollingStatus(session.PollingStopped.String())
	return m
}

func (m *Metrics) RequestFinished(kind, result string, d time.Duration) {
	m.Requests.WithLabelValues(kind, result).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) EventsSent(n int) {
	m.SentEvents.Add(float64(n))
}

func (m *Metrics) EventsCoalesced(n int) {
	m.CoalescedEvents.Add(float64(n))
}

func (m *Metrics) EventReceived(eventType string) {
	m.EventsReceived.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SetBusy(busy bool) {
	m.Busy.Set(boolToFloat(busy))
}

func (m *Metrics) SetOffline(offline bool) {
	m.Offline.Set(boolToFloat(offline))
}

func (m *Metrics) ReconnectAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.ReconnectAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) FatalMessage(code int) {
	m.FatalMessages.WithLabelValues(strconv.Itoa(code)).Inc()
}

// SetPollingStatus marks status as the current one
func (m *Metrics) SetPollingStatus(status string) {
	for _, s := range pollingStatuses {
		m.PollingStatus.WithLabelValues(s).Set(boolToFloat(s == status))
	}
}

// TableCounts is a snapshot of a table's row counts
type TableCounts struct {
	Total    int
	Filtered int
	Selected int
	Checked  int
}

// SetTableRows publishes the row counts of the table with the given id
func (m *Metrics) SetTableRows(table string, c TableCounts) {
	m.TableRows.WithLabelValues(table, "total").Set(float64(c.Total))
	m.TableRows.WithLabelValues(table, "filtered").Set(float64(c.Filtered))
	m.TableRows.WithLabelValues(table, "selected").Set(float64(c.Selected))
	m.TableRows.WithLabelValues(table, "checked").Set(float64(c.Checked))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
