package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SectionLabel = "section"
	StatusLabel  = "status"
	KindLabel    = "kind"
	Outcome      = "outcome"
	Succeeded    = "succeeded"
	Failed       = "failed"
	Skipped      = "skipped"
)

type MetricsProvider interface {
	HandleMetrics() error
}

// SessionCounter reports how many editor sessions are open.
type SessionCounter interface {
	Len() int
}

type metricsSessions struct {
	counter SessionCounter
}

func NewMetricsSessions(counter SessionCounter) MetricsProvider {
	return &metricsSessions{counter}
}

func (m *metricsSessions) HandleMetrics() error {
	sessionCount.Set(float64(m.counter.Len()))
	return nil
}

type MetricsNil struct{}

func NewMetricsNil() MetricsProvider {
	return &MetricsNil{}
}

func (*MetricsNil) HandleMetrics() error {
	return nil
}

// To add new metrics:
// 1. Register new metrics in Register() below.
// 2. Add appropriate metric updates in HandleMetrics (or elsewhere instead).
var (
	sessionCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "editor_sessions",
			Help: "Number of open editor sessions",
		},
	)

	commitCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_section_commits_total",
			Help: "Monotonic count of section commits by resulting status",
		},
		[]string{SectionLabel, StatusLabel},
	)

	sectionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "editor_section_status",
			Help: "Number of sessions whose section is in the given status",
		},
		[]string{SectionLabel, StatusLabel},
	)

	templateParseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "editor_template_parse_failures_total",
			Help: "Monotonic count of example templates that failed to parse",
		},
	)

	importCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_manifest_imports_total",
			Help: "Monotonic count of imported manifest documents by kind",
		},
		[]string{KindLabel, Outcome},
	)

	validationSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "editor_validation_duration_seconds",
			Help:       "The duration of a full document validation",
			Objectives: map[float64]float64{0.95: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{Outcome},
	)

	sectionStatuses = newSectionStatusStore()
)

// sectionStatusStore remembers the last status reported for each session
// section so the gauge can move it from one status to the next. Read and
// write access are protected by mutex.
type sectionStatusStore struct {
	statuses     map[sectionKey]string
	statusesLock sync.RWMutex
}

type sectionKey struct {
	session string
	section string
}

func newSectionStatusStore() *sectionStatusStore {
	return &sectionStatusStore{
		statuses: make(map[sectionKey]string),
	}
}

// swap records status and returns the previous one.
func (s *sectionStatusStore) swap(key sectionKey, status string) (string, bool) {
	s.statusesLock.Lock()
	defer s.statusesLock.Unlock()
	prev, ok := s.statuses[key]
	s.statuses[key] = status
	return prev, ok
}

func (s *sectionStatusStore) readValue(key sectionKey) (string, bool) {
	s.statusesLock.RLock()
	defer s.statusesLock.RUnlock()
	val, ok := s.statuses[key]
	return val, ok
}

// forget drops every section of session and returns their last statuses.
func (s *sectionStatusStore) forget(session string) map[string]string {
	s.statusesLock.Lock()
	defer s.statusesLock.Unlock()
	out := map[string]string{}
	for k, v := range s.statuses {
		if k.session == session {
			out[k.section] = v
			delete(s.statuses, k)
		}
	}
	return out
}

// Collectors returns every editor metric.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		sessionCount,
		commitCount,
		sectionStatus,
		templateParseFailures,
		importCount,
		validationSummary,
	}
}

func Register() {
	for _, c := range Collectors() {
		prometheus.MustRegister(c)
	}
}

func EmitCommit(section, status string) {
	commitCount.WithLabelValues(section, status).Inc()
}

// EmitSectionStatus moves the section of session into status.
func EmitSectionStatus(session, section, status string) {
	prev, ok := sectionStatuses.swap(sectionKey{session: session, section: section}, status)
	if ok {
		if prev == status {
			return
		}
		sectionStatus.WithLabelValues(section, prev).Dec()
	}
	sectionStatus.WithLabelValues(section, status).Inc()
}

// SectionStatus returns the last status recorded for a session section.
func SectionStatus(session, section string) (string, bool) {
	return sectionStatuses.readValue(sectionKey{session: session, section: section})
}

// DeleteSessionMetrics removes a closed session from the status gauge.
func DeleteSessionMetrics(session string) {
	for section, status := range sectionStatuses.forget(session) {
		sectionStatus.WithLabelValues(section, status).Dec()
	}
}

func EmitTemplateParseFailure() {
	templateParseFailures.Inc()
}

func EmitImport(kind, outcome string) {
	importCount.WithLabelValues(kind, outcome).Inc()
}

func RegisterValidationSuccess(duration time.Duration) {
	validationSummary.WithLabelValues(Succeeded).Observe(duration.Seconds())
}

func RegisterValidationFailure(duration time.Duration) {
	validationSummary.WithLabelValues(Failed).Observe(duration.Seconds())
}
