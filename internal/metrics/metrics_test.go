package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)

	assert.NotNil(t, r.GenerationDuration)
	assert.NotNil(t, r.PathQueriesTotal)
	assert.NotNil(t, r.HTTPRequestsTotal)
	assert.NotNil(t, r.GetPrometheusRegistry())
}

func TestRecordPathQuery(t *testing.T) {
	r := NewRegistry()

	r.RecordPathQuery("found", 2*time.Millisecond, 40)
	r.RecordPathQuery("found", 3*time.Millisecond, 60)
	r.RecordPathQuery("no_path", time.Millisecond, 10)

	counter, err := r.PathQueriesTotal.GetMetricWithLabelValues("found")
	require.NoError(t, err)

	var metric dto.Metric
	require.NoError(t, counter.Write(&metric))
	assert.Equal(t, 2.0, metric.GetCounter().GetValue())
}

func TestRecordGraph(t *testing.T) {
	r := NewRegistry()
	r.RecordGraph(100, 180, 1, 99)

	var metric dto.Metric
	require.NoError(t, r.GraphEdges.Write(&metric))
	assert.Equal(t, 180.0, metric.GetGauge().GetValue())
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry

	assert.NotPanics(t, func() {
		r.RecordGenerationStep("mst", time.Second)
		r.RecordGraph(1, 2, 3, 4)
		r.RecordAugmentation(1, 2)
		r.RecordPathQuery("found", time.Second, 1)
		r.RecordHTTPRequest("GET", "/health", "200", time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordAugmentation(5, 2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "roadnet_augment_edges_added_total 5"), body)
	assert.True(t, strings.Contains(body, "roadnet_augment_crossing_rejects_total 2"), body)
}
