package promexporter

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pior/homeworks"
	"github.com/pior/homeworks/protocol"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	stats   homeworks.ClientStats
	state   protocol.State
	breaker gobreaker.State
	hasCB   bool
}

func (f *fakeSource) Stats() homeworks.ClientStats { return f.stats }
func (f *fakeSource) State() protocol.State         { return f.state }
func (f *fakeSource) CircuitBreakerState() (gobreaker.State, bool) {
	return f.breaker, f.hasCB
}

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestExporter_Stats(t *testing.T) {
	source := &fakeSource{
		stats: homeworks.ClientStats{
			BytesRead:  1024,
			Lines:      12,
			Events:     10,
			Warnings:   2,
			Connects:   3,
			DialErrors: 4,
		},
		state:   protocol.StateReady,
		breaker: gobreaker.StateOpen,
		hasCB:   true,
	}
	e := NewExporter(source)

	body := scrape(t, e)
	assert.Contains(t, body, "homeworks_read_bytes_total 1024\n")
	assert.Contains(t, body, "homeworks_lines_total 12\n")
	assert.Contains(t, body, "homeworks_decoded_events_total 10\n")
	assert.Contains(t, body, "homeworks_warnings_total 2\n")
	assert.Contains(t, body, "homeworks_connects_total 3\n")
	assert.Contains(t, body, "homeworks_dial_errors_total 4\n")
	assert.Contains(t, body, "homeworks_ready 1\n")
	assert.Contains(t, body, "homeworks_connection_state 3\n")
	assert.Contains(t, body, "homeworks_circuit_breaker_state 2\n")

	// Values are read at scrape time
	source.stats.Lines = 13
	source.state = protocol.StateLost
	body = scrape(t, e)
	assert.Contains(t, body, "homeworks_lines_total 13\n")
	assert.Contains(t, body, "homeworks_ready 0\n")
}

func TestExporter_NoCircuitBreaker(t *testing.T) {
	e := NewExporter(&fakeSource{})
	assert.Contains(t, scrape(t, e), "homeworks_circuit_breaker_state -1\n")
}

func TestClientMetrics_RecordEvent(t *testing.T) {
	e := NewExporter(&fakeSource{})
	m := e.ClientMetrics()

	m.RecordEvent(protocol.Event{Kind: protocol.KindLightLevelChanged, Tag: "DL"})
	m.RecordEvent(protocol.Event{Kind: protocol.KindLightLevelChanged, Tag: "DL"})
	m.RecordEvent(protocol.Event{Kind: protocol.KindButtonPressed, Tag: "KBP"})

	body := scrape(t, e)
	assert.Contains(t, body, `homeworks_events_total{kind="light_changed"} 2`)
	assert.Contains(t, body, `homeworks_events_total{kind="button_pressed"} 1`)
	assert.Contains(t, body, `homeworks_events_total{kind="keypad_led_changed"} 0`)
}

func TestClientMetrics_CircuitBreakerTransition(t *testing.T) {
	e := NewExporter(&fakeSource{})

	settings := homeworks.NewCircuitBreakerSettings("test", 1, 0)
	settings.OnStateChange = e.ClientMetrics().RecordCircuitBreakerTransition
	settings.OnStateChange("test", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Contains(t, scrape(t, e), `homeworks_circuit_breaker_transitions_total{from="closed",to="open"} 1`)
}
