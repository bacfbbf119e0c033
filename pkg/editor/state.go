// Package editor holds the state of one operator editing session and the
// page workflows that change it.
package editor

import (
	"github.com/sirupsen/logrus"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/editor/summary"
	"github.com/operator-framework/csv-editor/pkg/metrics"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

// State is the operator document being edited together with its form
// errors and section statuses. Pages work on copies and store them back;
// the stored document is never mutated in place.
type State struct {
	id       string
	operator *csv.Document
	errs     validation.Errors
	statuses *status.Tracker
	engine   *validation.Engine
	logger   logrus.FieldLogger
}

// Option configures a State.
type Option func(*State)

// WithID names the state in logs and metrics.
func WithID(id string) Option {
	return func(s *State) {
		s.id = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *State) {
		s.logger = logger
	}
}

// WithEngine replaces the default validation engine.
func WithEngine(engine *validation.Engine) Option {
	return func(s *State) {
		s.engine = engine
	}
}

// NewState returns an empty editing state.
func NewState(options ...Option) *State {
	s := &State{
		operator: csv.New(),
		errs:     validation.Errors{},
		statuses: status.NewTracker(),
		engine:   validation.Default,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.WithField("session", s.id)
	return s
}

// ID returns the state id.
func (s *State) ID() string {
	return s.id
}

// Operator returns the stored document. Callers must not mutate it.
func (s *State) Operator() *csv.Document {
	return s.operator
}

// SetOperator replaces the stored document.
func (s *State) SetOperator(doc *csv.Document) {
	if doc == nil {
		doc = csv.New()
	}
	s.operator = doc
}

// FormErrors returns the stored form errors.
func (s *State) FormErrors() validation.Errors {
	return s.errs
}

// SetFormErrors replaces the stored form errors.
func (s *State) SetFormErrors(errs validation.Errors) {
	if errs == nil {
		errs = validation.Errors{}
	}
	s.errs = errs
}

// SectionStatus returns the status of a section.
func (s *State) SectionStatus(section status.Section) status.Status {
	return s.statuses.Get(section)
}

// SetSectionStatus overrides the status of a section.
func (s *State) SetSectionStatus(section status.Section, st status.Status) {
	s.statuses.Set(section, st)
	s.emitStatus(section)
}

// SectionStatuses returns every section status.
func (s *State) SectionStatuses() map[status.Section]status.Status {
	return s.statuses.All()
}

// Reset drops the document, the errors and every status.
func (s *State) Reset() {
	s.operator = csv.New()
	s.errs = validation.Errors{}
	s.statuses.Reset()
	for _, section := range status.Sections {
		s.emitStatus(section)
	}
	s.logger.Debug("editor state reset")
}

// Engine returns the validation engine.
func (s *State) Engine() *validation.Engine {
	return s.engine
}

// Valid reports whether the stored document passes every validation rule.
func (s *State) Valid() bool {
	return s.engine.ValidateDocument(s.operator)
}

// Failures lists every failing field of the stored document.
func (s *State) Failures() []validation.Failure {
	return s.engine.Failures(s.operator)
}

// Summary condenses the stored document.
func (s *State) Summary() (*summary.Operator, error) {
	return summary.Summarize(s.operator)
}

// YAML renders the stored document.
func (s *State) YAML() ([]byte, error) {
	return s.operator.YAML()
}

// commit stores doc, revalidates paths and recomputes the status of section
// from fields.
func (s *State) commit(section status.Section, doc *csv.Document, fields []string, paths ...string) status.Status {
	s.operator = doc
	s.errs = s.engine.ValidateMany(doc, s.errs, paths...)
	st := s.statuses.Commit(section, s.errs, fields)
	metrics.EmitCommit(string(section), string(st))
	s.emitStatus(section)
	s.logger.WithFields(logrus.Fields{
		"section": section,
		"paths":   paths,
		"status":  st,
	}).Debug("section committed")
	return st
}

// apply validates every field of section and marks it complete when none
// fails.
func (s *State) apply(section status.Section, fields []string) status.Status {
	s.errs = s.engine.ValidateMany(s.operator, s.errs, fields...)
	if s.errs.Any(fields...) {
		s.statuses.Set(section, status.Errors)
	} else {
		s.statuses.MarkComplete(section)
	}
	s.emitStatus(section)
	return s.statuses.Get(section)
}

func (s *State) emitStatus(section status.Section) {
	if s.id == "" {
		return
	}
	metrics.EmitSectionStatus(s.id, string(section), string(s.statuses.Get(section)))
}
