package validation

import (
	"reflect"
	"sort"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/lib/docpath"
)

// Engine validates documents against a rule table.
type Engine struct {
	table Table
}

// NewEngine returns an engine for table.
func NewEngine(table Table) *Engine {
	return &Engine{table: table}
}

// Default validates against DefaultTable.
var Default = NewEngine(DefaultTable())

// Table returns the rules the engine applies.
func (e *Engine) Table() Table {
	return e.table
}

// Rule returns the rule declared for path, or nil.
func (e *Engine) Rule(path string) *Rule {
	p, err := docpath.Parse(path)
	if err != nil {
		return nil
	}
	segments := make([]string, len(p))
	for i, s := range p {
		segments[i] = s.Key
	}
	entry, ok := e.table.Lookup(segments)
	if !ok {
		return nil
	}
	return entry.Rule
}

// Validate checks the field at path. Paths without a rule are always valid.
func (e *Engine) Validate(doc *csv.Document, path string) *FieldError {
	rule := e.Rule(path)
	if rule == nil {
		return nil
	}
	value := doc.Get(path)

	// A matching regex falls through to the validator and required checks.
	if rule.Regex != nil && !rule.Regex.MatchString(stringify(value)) {
		return Message(rule.RegexErrorMessage)
	}
	if rule.Validator != nil {
		return rule.Validator(value)
	}
	if rule.Required && IsEmpty(value) {
		return Message(RequiredMessage)
	}
	return nil
}

// ValidateMany validates each path and returns a copy of errs updated with
// the results. errs itself is left untouched.
func (e *Engine) ValidateMany(doc *csv.Document, errs Errors, paths ...string) Errors {
	out := errs.Clone()
	for _, p := range paths {
		out.Set(p, e.Validate(doc, p))
	}
	return out
}

// ValidateDocument reports whether every rule in the table passes. An empty
// document is never valid.
func (e *Engine) ValidateDocument(doc *csv.Document) bool {
	if doc.Empty() {
		return false
	}
	for _, p := range e.table.Paths() {
		if e.Validate(doc, p) != nil {
			return false
		}
	}
	return true
}

// Failure is a failed field.
type Failure struct {
	Path  string      `json:"path"`
	Error *FieldError `json:"error"`
}

// Failures lists every failing field in table order.
func (e *Engine) Failures(doc *csv.Document) []Failure {
	var out []Failure
	for _, p := range e.table.Paths() {
		if err := e.Validate(doc, p); err != nil {
			out = append(out, Failure{Path: p, Error: err})
		}
	}
	return out
}

// FieldMissing reports whether a required field is absent or holds the
// empty string. Empty sequences and mappings are not missing.
func (e *Engine) FieldMissing(doc *csv.Document, path string) bool {
	rule := e.Rule(path)
	if rule == nil || !rule.Required {
		return false
	}
	return doc.Get(path, "") == ""
}

// Validate checks path with the default engine.
func Validate(doc *csv.Document, path string) *FieldError {
	return Default.Validate(doc, path)
}

// ValidateMany validates paths with the default engine.
func ValidateMany(doc *csv.Document, errs Errors, paths ...string) Errors {
	return Default.ValidateMany(doc, errs, paths...)
}

// ValidateDocument validates doc with the default engine.
func ValidateDocument(doc *csv.Document) bool {
	return Default.ValidateDocument(doc)
}

// FieldMissing checks path with the default engine.
func FieldMissing(doc *csv.Document, path string) bool {
	return Default.FieldMissing(doc, path)
}

// IsEmpty reports whether value is absent, an empty string or an empty
// collection.
func IsEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Errors is a tree of field errors shaped like the document it describes.
type Errors map[string]interface{}

// Get returns the error stored at path.
func (e Errors) Get(path string) *FieldError {
	fe, _ := docpath.Get(map[string]interface{}(e), path).(*FieldError)
	return fe
}

// Set stores err at path, or clears the path when err is nil.
func (e Errors) Set(path string, err *FieldError) {
	if err == nil {
		docpath.Delete(map[string]interface{}(e), path)
		return
	}
	// Unparseable paths have no rule and therefore never carry an error.
	_ = docpath.Set(map[string]interface{}(e), path, err)
}

// Any reports whether one of paths holds an error.
func (e Errors) Any(paths ...string) bool {
	for _, p := range paths {
		if e.Get(p) != nil {
			return true
		}
	}
	return false
}

// Paths lists the paths holding an error, sorted.
func (e Errors) Paths() []string {
	var out []string
	var walk func(prefix docpath.Path, node map[string]interface{})
	walk = func(prefix docpath.Path, node map[string]interface{}) {
		for k, v := range node {
			p := prefix.Child(k)
			switch t := v.(type) {
			case *FieldError:
				out = append(out, p.String())
			case map[string]interface{}:
				walk(p, t)
			}
		}
	}
	walk(nil, e)
	sort.Strings(out)
	return out
}

// Clone copies the tree. Field errors are shared; they are never mutated.
func (e Errors) Clone() Errors {
	return Errors(cloneTree(e))
}

func cloneTree(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]interface{}); ok {
			out[k] = cloneTree(sub)
			continue
		}
		out[k] = v
	}
	return out
}

// HasErrors reports whether errs holds an error for one of paths.
func HasErrors(errs Errors, paths ...string) bool {
	return errs.Any(paths...)
}
