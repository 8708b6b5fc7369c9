// Package metrics exposes Prometheus collectors for tool calls, LLM calls,
// agent turns and scheduling API requests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry holds every collector of this package. It is separate from
// the global prometheus registry so tests can gather it in isolation.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ToolCalls, ToolDuration,
		LLMCalls, LLMDuration,
		AgentTurns,
		APIRequests, APIDuration,
		InjectionFlags,
	)
}

// ToolCalls counts tool invocations by outcome status.
var ToolCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vla_tool_calls_total",
		Help: "Tool invocations by tool and status.",
	},
	[]string{"tool", "status"}, // ok | clarify | rejected | failed
)

var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vla_tool_duration_seconds",
		Help:    "Tool invocation latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

var LLMCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vla_llm_calls_total",
		Help: "LLM round-trips by result.",
	},
	[]string{"result"}, // ok | error | timeout
)

var LLMDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "vla_llm_duration_seconds",
		Help:    "LLM round-trip latency in seconds.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	},
)

// AgentTurns counts completed conversation turns by agent kind and outcome.
var AgentTurns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vla_agent_turns_total",
		Help: "Agent turns by agent kind and outcome.",
	},
	[]string{"agent", "outcome"}, // answer | max_iterations | error
)

var APIRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vla_scheduling_api_requests_total",
		Help: "Scheduling API requests by operation and HTTP status class.",
	},
	[]string{"operation", "status"},
)

var APIDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vla_scheduling_api_duration_seconds",
		Help:    "Scheduling API latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// InjectionFlags counts prospect messages flagged as possible prompt injection.
var InjectionFlags = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "vla_injection_flags_total",
		Help: "Prospect messages flagged as possible prompt injection.",
	},
)

// ObserveTool records one tool call.
func ObserveTool(tool, status string, elapsed time.Duration) {
	ToolCalls.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveLLM records one LLM round-trip.
func ObserveLLM(result string, elapsed time.Duration) {
	LLMCalls.WithLabelValues(result).Inc()
	LLMDuration.Observe(elapsed.Seconds())
}

// ObserveAPI records one scheduling API request. status is the HTTP status
// class ("2xx", "4xx", "5xx") or "error" when no response arrived.
func ObserveAPI(operation, status string, elapsed time.Duration) {
	APIRequests.WithLabelValues(operation, status).Inc()
	APIDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// StatusClass maps an HTTP status code to its label value.
func StatusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	}
	return "5xx"
}

// Handler serves DefaultRegistry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
