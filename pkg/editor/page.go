package editor

import (
	"github.com/operator-framework/csv-editor/pkg/editor/status"
)

// page is the part every section page shares: the visit that guards the
// section status and the fields that decide it.
type page struct {
	state   *State
	section status.Section
	fields  []string
	visit   *status.Visit
	closed  bool
}

func (s *State) newPage(section status.Section, fields []string) page {
	return page{
		state:   s,
		section: section,
		fields:  fields,
		visit:   s.statuses.Enter(section, s.operator),
	}
}

// Section returns the section the page edits.
func (p *page) Section() status.Section {
	return p.section
}

// Status returns the current status of the section.
func (p *page) Status() status.Status {
	return p.state.SectionStatus(p.section)
}

// Fields returns the paths that decide the section status.
func (p *page) Fields() []string {
	return append([]string(nil), p.fields...)
}

// Apply validates every field of the section and marks it complete when
// none fails.
func (p *page) Apply() status.Status {
	return p.state.apply(p.section, p.fields)
}

// Exit leaves the page. A section entered empty returns to empty when the
// document did not change during the visit. Exit reports whether the status
// was rolled back; later calls do nothing.
func (p *page) Exit() bool {
	if p.closed {
		return false
	}
	p.closed = true
	rolledBack := p.visit.Exit(p.state.operator)
	if rolledBack {
		p.state.emitStatus(p.section)
	}
	return rolledBack
}
