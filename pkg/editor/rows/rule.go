package rows

import (
	"fmt"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/operator-framework/csv-editor/pkg/lib/codec"
)

// CoreGroup is how the core API group ("") is typed into a rule row.
const CoreGroup = `""`

// Rule row fields accepted by RuleRow.Set.
const (
	FieldAPIGroups = "apiGroups"
	FieldResources = "resources"
	FieldVerbs     = "verbs"
)

// RuleRow is one RBAC rule being edited. APIGroups is the comma separated
// text typed by the user.
type RuleRow struct {
	APIGroups string   `json:"apiGroups"`
	Resources []string `json:"resources"`
	Verbs     []string `json:"verbs"`
}

// NewRuleRow returns a blank rule row.
func NewRuleRow() *RuleRow {
	return &RuleRow{Resources: []string{}, Verbs: []string{}}
}

// Set implements Row. Resources and verbs accept string lists or comma
// separated text.
func (r *RuleRow) Set(field string, value interface{}) error {
	switch field {
	case FieldAPIGroups:
		s, ok := value.(string)
		if !ok {
			list, err := toStrings(value)
			if err != nil {
				return fmt.Errorf("%s: %v", field, err)
			}
			s = strings.Join(list, ", ")
		}
		r.APIGroups = s
	case FieldResources, FieldVerbs:
		list, err := toStrings(value)
		if err != nil {
			return fmt.Errorf("%s: %v", field, err)
		}
		if field == FieldResources {
			r.Resources = list
		} else {
			r.Verbs = list
		}
	default:
		return fmt.Errorf("unknown rule field %q", field)
	}
	return nil
}

// SelectResource adds a resource honouring the wildcard.
func (r *RuleRow) SelectResource(resource string) {
	r.Resources = Select(r.Resources, resource, Wildcard)
}

// SelectVerb adds a verb honouring the wildcard.
func (r *RuleRow) SelectVerb(verb string) {
	r.Verbs = Select(r.Verbs, verb, Wildcard)
}

// Complete implements Row: api groups, resources and verbs are all set.
func (r *RuleRow) Complete() bool {
	return r != nil && strings.TrimSpace(r.APIGroups) != "" && len(r.Resources) > 0 && len(r.Verbs) > 0
}

// Blank implements Row. A nil row is blank.
func (r *RuleRow) Blank() bool {
	return r == nil || strings.TrimSpace(r.APIGroups) == "" && len(r.Resources) == 0 && len(r.Verbs) == 0
}

// PolicyRule converts the row. The text `""` names the core group.
func (r *RuleRow) PolicyRule() rbacv1.PolicyRule {
	groups := []string{}
	for _, g := range codec.SplitList(r.APIGroups, ",") {
		if g == CoreGroup {
			g = ""
		}
		groups = append(groups, g)
	}
	return rbacv1.PolicyRule{
		APIGroups: groups,
		Resources: append([]string{}, r.Resources...),
		Verbs:     append([]string{}, r.Verbs...),
	}
}

// RuleRowFromPolicyRule is the inverse of PolicyRule.
func RuleRowFromPolicyRule(rule rbacv1.PolicyRule) *RuleRow {
	groups := make([]string, len(rule.APIGroups))
	for i, g := range rule.APIGroups {
		if g == "" {
			g = CoreGroup
		}
		groups[i] = g
	}
	row := NewRuleRow()
	row.APIGroups = strings.Join(groups, ", ")
	row.Resources = append(row.Resources, rule.Resources...)
	row.Verbs = append(row.Verbs, rule.Verbs...)
	return row
}

// DecodeRules reads a rules list stored in a document.
func DecodeRules(value interface{}) ([]rbacv1.PolicyRule, error) {
	var rules []rbacv1.PolicyRule
	if value == nil {
		return rules, nil
	}
	if err := codec.Decode(value, &rules); err != nil {
		return nil, fmt.Errorf("error decoding rules: %v", err)
	}
	return rules, nil
}

// RuleRowsFromDocument converts a stored rules list into rows.
func RuleRowsFromDocument(value interface{}) ([]*RuleRow, error) {
	rules, err := DecodeRules(value)
	if err != nil {
		return nil, err
	}
	out := make([]*RuleRow, 0, len(rules))
	for _, rule := range rules {
		out = append(out, RuleRowFromPolicyRule(rule))
	}
	return out, nil
}

// RulesValue renders rows for storage in a document. Blank rows are left
// out; partially filled rows are kept so no typed input is lost.
func RulesValue(rows []*RuleRow) []interface{} {
	out := []interface{}{}
	for _, r := range rows {
		if r.Blank() {
			continue
		}
		rule := r.PolicyRule()
		out = append(out, map[string]interface{}{
			"apiGroups": stringsValue(rule.APIGroups),
			"resources": stringsValue(rule.Resources),
			"verbs":     stringsValue(rule.Verbs),
		})
	}
	return out
}

// NewRuleList starts a rule list editor.
func NewRuleList(rows []*RuleRow, onUpdate func([]*RuleRow)) *List[*RuleRow] {
	return NewList(NewRuleRow, rows, onUpdate)
}

func stringsValue(list []string) []interface{} {
	out := make([]interface{}, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

func toStrings(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, v...), nil
	case string:
		return codec.SplitList(v, ","), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, got %T element", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", value)
}
