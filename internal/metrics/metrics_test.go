package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CacheLookup("pack-sections", true)
	m.Retry("read")
	m.Submission()
	m.ClientConnected()
	m.ClientDisconnected()
	m.EventDropped()
	m.Swept("packs", 3)
	m.ObserveRequest("GET", "/api/packs/{id}", "200", time.Millisecond)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Submission()
	m.CacheLookup("board-packs", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"boardpacks_report_submissions_total 1",
		`boardpacks_query_cache_lookups_total{result="miss",scope="board-packs"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
