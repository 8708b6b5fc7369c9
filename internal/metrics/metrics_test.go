package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTool_ShouldIncrementCounter(t *testing.T) {
	before := testutil.ToFloat64(ToolCalls.WithLabelValues("get_current_time", "ok"))
	ObserveTool("get_current_time", "ok", 5*time.Millisecond)
	after := testutil.ToFloat64(ToolCalls.WithLabelValues("get_current_time", "ok"))
	if after != before+1 {
		t.Errorf("want %v, got %v", before+1, after)
	}
}

func TestObserveAPI_ShouldLabelByStatusClass(t *testing.T) {
	ObserveAPI("available_times", StatusClass(503), time.Second)
	if got := testutil.ToFloat64(APIRequests.WithLabelValues("available_times", "5xx")); got < 1 {
		t.Errorf("expected at least one 5xx sample, got %v", got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{0: "error", 200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 500: "5xx"}
	for code, want := range tests {
		if got := StatusClass(code); got != want {
			t.Errorf("StatusClass(%d): want %q, got %q", code, want, got)
		}
	}
}

func TestHandler_ShouldExposeCollectors(t *testing.T) {
	ObserveLLM("ok", 100*time.Millisecond)
	AgentTurns.WithLabelValues("chat_conversational", "answer").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"vla_llm_calls_total", "vla_agent_turns_total", "vla_llm_duration_seconds"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestInjectionFlags_ShouldBeRegistered(t *testing.T) {
	before := testutil.ToFloat64(InjectionFlags)
	InjectionFlags.Inc()
	if got := testutil.ToFloat64(InjectionFlags); got != before+1 {
		t.Errorf("want %v, got %v", before+1, got)
	}
	if n, err := testutil.GatherAndCount(DefaultRegistry, "vla_injection_flags_total"); err != nil || n != 1 {
		t.Errorf("want collector registered, got n=%d err=%v", n, err)
	}
}
