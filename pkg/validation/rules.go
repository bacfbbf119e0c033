// Package validation checks fields of an operator document against a
// declarative rule table.
package validation

import (
	"regexp"
	"sort"
	"strings"
)

// RequiredMessage is returned for required fields that hold no value.
const RequiredMessage = "This field is required"

// FieldError describes why a field failed validation. Fields holding lists
// report per-row problems in Items; a nil entry marks a valid row.
type FieldError struct {
	Message string      `json:"message,omitempty"`
	Items   []*RowError `json:"items,omitempty"`
}

// RowError is the problem found in one row of a list field.
type RowError struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	var msgs []string
	for _, item := range e.Items {
		if item == nil {
			continue
		}
		if item.Key != "" {
			msgs = append(msgs, item.Key)
		}
		if item.Value != "" {
			msgs = append(msgs, item.Value)
		}
	}
	return strings.Join(msgs, "; ")
}

// Message returns a FieldError carrying a single message.
func Message(msg string) *FieldError {
	return &FieldError{Message: msg}
}

// ValidatorFunc checks the value of a field. Its result is reported as is.
type ValidatorFunc func(value interface{}) *FieldError

// Rule is the check applied to one field path. When several kinds are set,
// a failing Regex is reported first. Otherwise a Validator decides, and
// Required applies only to rules without one.
type Rule struct {
	Required          bool
	Regex             *regexp.Regexp
	RegexErrorMessage string
	Validator         ValidatorFunc

	// MaxLength is an input hint for front ends; it is not enforced.
	MaxLength int
}

// Entry is a node of a rule table: an optional rule for the path itself and
// the entries of nested paths.
type Entry struct {
	Rule   *Rule
	Fields Table
}

// Table maps path segments to entries.
type Table map[string]Entry

// Keys returns the table keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup finds the entry of a dotted path.
func (t Table) Lookup(segments []string) (Entry, bool) {
	cur := t
	var (
		e  Entry
		ok bool
	)
	for _, seg := range segments {
		if cur == nil {
			return Entry{}, false
		}
		e, ok = cur[seg]
		if !ok {
			return Entry{}, false
		}
		cur = e.Fields
	}
	return e, ok && len(segments) > 0
}

// Paths lists every dotted path declared by the table, depth first.
func (t Table) Paths() []string {
	var out []string
	var walk func(prefix string, tbl Table)
	walk = func(prefix string, tbl Table) {
		for _, k := range tbl.Keys() {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			out = append(out, p)
			walk(p, tbl[k].Fields)
		}
	}
	walk("", t)
	return out
}
