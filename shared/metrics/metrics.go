// Package metrics exposes Prometheus collectors for the bot service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the bot's collectors and the registry they live in.
type Manager struct {
	namespace string
	subsystem string
	registry  *prometheus.Registry

	commands       *prometheus.CounterVec
	teamBuilds     *prometheus.CounterVec
	draftPicks     *prometheus.CounterVec
	ratingRefresh  *prometheus.CounterVec
	refreshLatency prometheus.Histogram
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithRegistry registers the collectors on the given registry instead of a fresh one.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates the collectors. Each Manager gets its own registry by default so
// tests can create as many as they like.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "rllv",
		subsystem: "bot",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.commands = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_total",
		Help:      "Chat commands handled, by command and outcome.",
	}, []string{"command", "outcome"})
	m.teamBuilds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "team_builds_total",
		Help:      "Team builds started, by method and team size.",
	}, []string{"method", "team_size"})
	m.draftPicks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "draft_picks_total",
		Help:      "Captain draft picks, by source (captain or auto).",
	}, []string{"source"})
	m.ratingRefresh = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_refresh_total",
		Help:      "Ranking API lookups, by outcome.",
	}, []string{"outcome"})
	m.refreshLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_refresh_duration_seconds",
		Help:      "Duration of a full rating refresh pass.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCommand counts one handled command.
func (m *Manager) ObserveCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}

// ObserveTeamBuild counts one started build.
func (m *Manager) ObserveTeamBuild(method, teamSize string) {
	if m == nil {
		return
	}
	m.teamBuilds.WithLabelValues(method, teamSize).Inc()
}

// ObserveDraftPick counts one applied pick.
func (m *Manager) ObserveDraftPick(source string) {
	if m == nil {
		return
	}
	m.draftPicks.WithLabelValues(source).Inc()
}

// ObserveRatingRefresh counts one ranking lookup.
func (m *Manager) ObserveRatingRefresh(outcome string) {
	if m == nil {
		return
	}
	m.ratingRefresh.WithLabelValues(outcome).Inc()
}

// ObserveRefreshPass records how long a refresh pass took.
func (m *Manager) ObserveRefreshPass(seconds float64) {
	if m == nil {
		return
	}
	m.refreshLatency.Observe(seconds)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
