// Package status tracks the completion state of each editor section.
package status

import (
	"fmt"
	"sort"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

// Status is the completion state of a section.
type Status string

const (
	Empty    Status = "empty"
	Pending  Status = "pending"
	Complete Status = "complete"
	Errors   Status = "errors"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case Empty, Pending, Complete, Errors:
		return true
	}
	return false
}

// Section names a group of fields edited together.
type Section string

const (
	Metadata           Section = "metadata"
	OwnedCRDs          Section = "owned-crds"
	RequiredCRDs       Section = "required-crds"
	Deployments        Section = "deployments"
	Permissions        Section = "permissions"
	ClusterPermissions Section = "cluster-permissions"
	InstallModes       Section = "install-modes"
)

// Sections lists every section in editor order.
var Sections = []Section{
	Metadata,
	OwnedCRDs,
	RequiredCRDs,
	Deployments,
	Permissions,
	ClusterPermissions,
	InstallModes,
}

// ParseSection validates a section name.
func ParseSection(name string) (Section, error) {
	for _, s := range Sections {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", name)
}

// Tracker holds the status of every section. The zero value is not usable;
// call NewTracker.
type Tracker struct {
	statuses map[Section]Status
}

// NewTracker returns a tracker with every section empty.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// Reset returns every section to empty.
func (t *Tracker) Reset() {
	t.statuses = make(map[Section]Status, len(Sections))
	for _, s := range Sections {
		t.statuses[s] = Empty
	}
}

// Get returns the status of a section. Unknown sections are empty.
func (t *Tracker) Get(s Section) Status {
	if st, ok := t.statuses[s]; ok {
		return st
	}
	return Empty
}

// Set overrides the status of a section.
func (t *Tracker) Set(s Section, st Status) {
	t.statuses[s] = st
}

// All returns a copy of every status.
func (t *Tracker) All() map[Section]Status {
	out := make(map[Section]Status, len(t.statuses))
	for k, v := range t.statuses {
		out[k] = v
	}
	return out
}

// Commit recomputes a section after a field commit: errors when any of
// fields holds an error, pending otherwise. Completion is judged by the
// owning page through MarkComplete.
func (t *Tracker) Commit(s Section, errs validation.Errors, fields []string) Status {
	st := Pending
	if errs.Any(fields...) {
		st = Errors
	}
	t.statuses[s] = st
	return st
}

// MarkComplete sets a section complete.
func (t *Tracker) MarkComplete(s Section) {
	t.statuses[s] = Complete
}

// Visit records the state of a section when the user entered it.
type Visit struct {
	tracker     *Tracker
	section     Section
	entry       Status
	fingerprint uint64
	hashed      bool
}

// Enter starts a visit of a section.
func (t *Tracker) Enter(s Section, doc *csv.Document) *Visit {
	v := &Visit{tracker: t, section: s, entry: t.Get(s)}
	if fp, err := doc.Fingerprint(); err == nil {
		v.fingerprint, v.hashed = fp, true
	}
	return v
}

// EntryStatus returns the status the section had when the visit started.
func (v *Visit) EntryStatus() Status {
	return v.entry
}

// Exit ends the visit. A section entered empty goes back to empty when the
// document did not change and the section was not completed meanwhile.
// Exit reports whether the status was rolled back.
func (v *Visit) Exit(doc *csv.Document) bool {
	if v.entry != Empty || v.tracker.Get(v.section) == Complete {
		return false
	}
	if !v.unchanged(doc) {
		return false
	}
	v.tracker.statuses[v.section] = Empty
	return true
}

func (v *Visit) unchanged(doc *csv.Document) bool {
	if !v.hashed {
		return false
	}
	fp, err := doc.Fingerprint()
	return err == nil && fp == v.fingerprint
}

// String renders the statuses sorted by section name, for logs.
func (t *Tracker) String() string {
	keys := make([]string, 0, len(t.statuses))
	for k := range t.statuses {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%s", k, t.statuses[Section(k)])
	}
	return out
}
