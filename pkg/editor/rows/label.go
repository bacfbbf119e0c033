package rows

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// Label row fields accepted by LabelRow.Set.
const (
	FieldKey   = "key"
	FieldValue = "value"
)

// LabelFields names the document fields a label row maps to when rows are
// stored as a list of objects.
type LabelFields struct {
	Key   string
	Value string
}

var (
	// KeyValueFields store rows as {key, value}.
	KeyValueFields = LabelFields{Key: "key", Value: "value"}
	// LinkFields store rows as {name, url}.
	LinkFields = LabelFields{Key: "name", Value: "url"}
	// MaintainerFields store rows as {name, email}.
	MaintainerFields = LabelFields{Key: "name", Value: "email"}
)

// LabelRow is one key/value row.
type LabelRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`

	// qualified requires Key to be a qualified Kubernetes name before the
	// row counts as complete.
	qualified bool
}

// NewLabelRow returns a blank row for plain key/value lists.
func NewLabelRow() *LabelRow {
	return &LabelRow{}
}

// NewQualifiedLabelRow returns a blank row whose key must be a qualified
// name, as label and selector keys are.
func NewQualifiedLabelRow() *LabelRow {
	return &LabelRow{qualified: true}
}

// Set implements Row.
func (r *LabelRow) Set(field string, value interface{}) error {
	s, ok := value.(string)
	if !ok && value != nil {
		return fmt.Errorf("%s: expected a string, got %T", field, value)
	}
	switch field {
	case FieldKey:
		r.Key = s
	case FieldValue:
		r.Value = s
	default:
		return fmt.Errorf("unknown label field %q", field)
	}
	return nil
}

// KeyErrors lists why the key is not acceptable. It is always empty for
// rows that do not require qualified keys.
func (r *LabelRow) KeyErrors() []string {
	if !r.qualified || r.Key == "" {
		return nil
	}
	return validation.IsQualifiedName(r.Key)
}

// Complete implements Row.
func (r *LabelRow) Complete() bool {
	return strings.TrimSpace(r.Key) != "" && strings.TrimSpace(r.Value) != "" && len(r.KeyErrors()) == 0
}

// Blank implements Row.
func (r *LabelRow) Blank() bool {
	return r.Key == "" && r.Value == ""
}

// NewLabelList starts a list of plain key/value rows.
func NewLabelList(rows []*LabelRow, onUpdate func([]*LabelRow)) *List[*LabelRow] {
	return NewList(NewLabelRow, rows, onUpdate)
}

// NewQualifiedLabelList starts a list of label or selector rows.
func NewQualifiedLabelList(rows []*LabelRow, onUpdate func([]*LabelRow)) *List[*LabelRow] {
	for _, r := range rows {
		r.qualified = true
	}
	return NewList(NewQualifiedLabelRow, rows, onUpdate)
}

// LabelsToMap folds complete rows into a map. Later rows win on duplicate
// keys.
func LabelsToMap(rows []*LabelRow) map[string]interface{} {
	out := map[string]interface{}{}
	for _, r := range rows {
		if r.Complete() {
			out[r.Key] = r.Value
		}
	}
	return out
}

// LabelsFromMap turns a stored map into rows sorted by key. Non-string
// values are rendered with fmt.
func LabelsFromMap(value interface{}) []*LabelRow {
	m, _ := value.(map[string]interface{})
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*LabelRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, &LabelRow{Key: k, Value: text(m[k]), qualified: true})
	}
	return out
}

// LabelsToList renders complete rows as a list of objects.
func LabelsToList(rows []*LabelRow, fields LabelFields) []interface{} {
	out := []interface{}{}
	for _, r := range rows {
		if r.Complete() {
			out = append(out, map[string]interface{}{fields.Key: r.Key, fields.Value: r.Value})
		}
	}
	return out
}

// LabelsFromList reads a stored list of objects.
func LabelsFromList(value interface{}, fields LabelFields) []*LabelRow {
	items, _ := value.([]interface{})
	out := make([]*LabelRow, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, &LabelRow{Key: text(obj[fields.Key]), Value: text(obj[fields.Value])})
	}
	return out
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}
