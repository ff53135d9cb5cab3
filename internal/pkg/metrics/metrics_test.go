package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endorses/gridsync/internal/pkg/session"
)

func TestMetrics_Recorder(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RequestFinished("user", session.ResultOK, 20*time.Millisecond)
	m.RequestFinished("user", session.ResultOK, 30*time.Millisecond)
	m.RequestFinished("poll", session.ResultOffline, time.Second)
	m.EventsSent(3)
	m.EventsCoalesced(2)
	m.EventReceived("rowsInserted")
	m.SetBusy(true)
	m.SetOffline(true)
	m.SetOffline(false)
	m.ReconnectAttempt(false)
	m.ReconnectAttempt(true)
	m.FatalMessage(20)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Requests.WithLabelValues("user", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("poll", "offline")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SentEvents))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CoalescedEvents))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsReceived.WithLabelValues("rowsInserted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Busy))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Offline))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconnectAttempts.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconnectAttempts.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FatalMessages.WithLabelValues("20")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

func TestMetrics_PollingStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PollingStatus.WithLabelValues("stopped")))

	m.SetPollingStatus(session.PollingFailure.String())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.PollingStatus.WithLabelValues("stopped")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.PollingStatus.WithLabelValues("running")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PollingStatus.WithLabelValues("failure")))
}

func TestMetrics_TableRows(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetTableRows("5", TableCounts{Total: 10, Filtered: 4, Selected: 1, Checked: 2})

	assert.Equal(t, float64(10), testutil.ToFloat64(m.TableRows.WithLabelValues("5", "total")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.TableRows.WithLabelValues("5", "filtered")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TableRows.WithLabelValues("5", "selected")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TableRows.WithLabelValues("5", "checked")))
}

func TestMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	// Vec families only show up once a child exists
	m.RequestFinished("user", session.ResultOK, time.Millisecond)
	m.EventReceived("x")
	m.ReconnectAttempt(true)
	m.FatalMessage(5)
	m.SetTableRows("t", TableCounts{})

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 11)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["gridsync_requests_total"])
	assert.True(t, names["gridsync_polling_status"])
	assert.True(t, names["gridsync_table_rows"])
}

func TestExporter_Handler(t *testing.T) {
	e := NewExporter(0)
	m := NewMetrics(e.Registry())
	m.EventsSent(7)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gridsync_events_sent_total 7")
	assert.Contains(t, string(body), "go_goroutines")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "not enabled")
}
