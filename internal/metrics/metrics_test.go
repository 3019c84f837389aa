package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RecordRun(t *testing.T) {
	m := NewManager()

	m.RecordRun("attrition", OutcomeOK, 120, 50*time.Millisecond)
	m.RecordRun("attrition", OutcomeInvalid, 0, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("attrition", OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("attrition", OutcomeInvalid)), 0)
	assert.InDelta(t, 120, testutil.ToFloat64(m.rowsProcessed.WithLabelValues("attrition")), 0)
}

func TestManager_Counters(t *testing.T) {
	m := NewManager()

	m.RecordTiers(2, 3, 5)
	m.RecordAnomalies(1, 4, 2)
	m.RecordCommentFallback("attendance")
	m.RecordCommentCost("attrition", 0.0015)
	m.RecordCommentCost("attrition", 0)
	m.RecordHTTPRequest("/api/v1/attrition", http.MethodPost, http.StatusOK)

	assert.InDelta(t, 3, testutil.ToFloat64(m.riskTiers.WithLabelValues("Medium")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.anomaliesFlagged.WithLabelValues("long_shift")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.commentFallbacks.WithLabelValues("attendance")), 0)
	assert.InDelta(t, 0.0015, testutil.ToFloat64(m.commentCost.WithLabelValues("attrition")), 1e-12)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/attrition", "POST", "200")), 0)
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.RecordRun("attrition", OutcomeOK, 1, time.Second)
		m.RecordTiers(1, 1, 1)
		m.RecordAnomalies(1, 1, 1)
		m.RecordCommentFallback("attrition")
		m.RecordCommentCost("attrition", 1)
		m.RecordHTTPRequest("/", "GET", 200)
	})
}

func TestManager_Handler(t *testing.T) {
	m := NewManager(WithNamespace("test"))
	m.RecordRun("attendance", OutcomeOK, 10, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `test_analysis_runs_total{kind="attendance",outcome="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestManagers_AreIndependent(t *testing.T) {
	a, b := NewManager(), NewManager()
	a.RecordCommentFallback("attrition")

	assert.InDelta(t, 0, testutil.ToFloat64(b.commentFallbacks.WithLabelValues("attrition")), 0)
}
