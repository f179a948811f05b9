package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/actscript/pkg/domain"
)

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessions   prometheus.Counter
	acts       *prometheus.CounterVec
	messages   *prometheus.CounterVec
	answers    *prometheus.CounterVec
	tokens     *prometheus.CounterVec
	completed  prometheus.Counter
	operations *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actscript_sessions_started_total",
			Help: "Total number of sessions initialized",
		}),
		acts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actscript_acts_played_total",
			Help: "Total number of acts executed",
		}, []string{"act"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actscript_messages_built_total",
			Help: "Total number of messages produced by acts",
		}, []string{"role"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actscript_answers_total",
			Help: "Total number of messages recorded from callers",
		}, []string{"role"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actscript_tokens_total",
			Help: "Token usage reported to the cost ledger",
		}, []string{"kind"}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actscript_sessions_completed_total",
			Help: "Total number of sessions that reached the end of their queue",
		}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actscript_operation_duration_seconds",
			Help:    "Duration of host operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.registry.MustRegister(m.sessions, m.acts, m.messages, m.answers, m.tokens, m.completed, m.operations)
	return m
}

// Registry exposes the registry, e.g. for tests or extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() *domain.LifecycleHooks {
	hooks := domain.NewLifecycleHooks()
	hooks.OnMessages(domain.HookAfterInit, func(v []domain.Message, _ *domain.State, _ *domain.ScenarioData) []domain.Message {
		m.sessions.Inc()
		return nil
	})
	hooks.OnMessages(domain.HookAfterBuild, func(v []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		m.acts.WithLabelValues(state.Act).Inc()
		for _, msg := range v {
			m.messages.WithLabelValues(msg.Role).Inc()
		}
		return nil
	})
	hooks.OnMessages(domain.HookBeforePushMessage, func(v []domain.Message, _ *domain.State, _ *domain.ScenarioData) []domain.Message {
		for _, msg := range v {
			m.answers.WithLabelValues(msg.Role).Inc()
		}
		return nil
	})
	hooks.OnMessages(domain.HookBeforeNext, func(v []domain.Message, state *domain.State, _ *domain.ScenarioData) []domain.Message {
		// the call that drains the queue ends the session
		if len(state.Queue) == 0 && state.Act != "" {
			m.completed.Inc()
		}
		return nil
	})
	return hooks
}

// ObserveCost adds a usage record to the token counters.
func (m *Metrics) ObserveCost(item domain.CostItem) {
	m.tokens.WithLabelValues("prompt").Add(float64(item.PromptTokens))
	m.tokens.WithLabelValues("completion").Add(float64(item.CompletionTokens))
}

// ObserveOperation records how long a host operation took.
func (m *Metrics) ObserveOperation(operation string, seconds float64) {
	m.operations.WithLabelValues(operation).Observe(seconds)
}
