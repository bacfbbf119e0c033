package editor

import (
	"fmt"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/rows"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/lib/docpath"
)

// PermissionsList returns the document list edited by a permissions
// section.
func PermissionsList(section status.Section) (docpath.Path, error) {
	switch section {
	case status.Permissions:
		return csv.Permissions, nil
	case status.ClusterPermissions:
		return csv.ClusterPermission, nil
	}
	return nil, fmt.Errorf("section %s does not hold permissions", section)
}

// PermissionsPage edits the rules granted to each service account of a
// permissions list. Rules are edited as rule rows; a row reaches the
// document once it is complete.
type PermissionsPage struct {
	page
	list  docpath.Path
	lists map[string]*rows.List[*rows.RuleRow]
}

// EnterPermissions opens the permissions or cluster permissions page.
func (s *State) EnterPermissions(section status.Section) (*PermissionsPage, error) {
	list, err := PermissionsList(section)
	if err != nil {
		return nil, err
	}
	return &PermissionsPage{
		page:  s.newPage(section, []string{list.String()}),
		list:  list,
		lists: map[string]*rows.List[*rows.RuleRow]{},
	}, nil
}

// ServiceAccounts lists the service accounts of the page in order.
func (p *PermissionsPage) ServiceAccounts() []string {
	var names []string
	for _, item := range p.entries() {
		if e, ok := item.(map[string]interface{}); ok {
			name, _ := e["serviceAccountName"].(string)
			names = append(names, name)
		}
	}
	return names
}

// AddServiceAccount appends a service account with no rules.
func (p *PermissionsPage) AddServiceAccount(name string) (status.Status, error) {
	if p.index(name) >= 0 {
		return p.Status(), fmt.Errorf("service account %q already exists", name)
	}
	entries := append(p.entries(), map[string]interface{}{
		"serviceAccountName": name,
		"rules":              []interface{}{},
	})
	return p.store(entries)
}

// RemoveServiceAccount drops a service account and its rules.
func (p *PermissionsPage) RemoveServiceAccount(name string) (status.Status, error) {
	i := p.index(name)
	if i < 0 {
		return p.Status(), fmt.Errorf("service account %q not found", name)
	}
	entries := p.entries()
	entries = append(entries[:i:i], entries[i+1:]...)
	delete(p.lists, name)
	return p.store(entries)
}

// Rules returns the rule row editor of a service account. Each commit of the
// editor writes its rows back as the account's rules.
func (p *PermissionsPage) Rules(serviceAccount string) (*rows.List[*rows.RuleRow], error) {
	if l, ok := p.lists[serviceAccount]; ok {
		return l, nil
	}
	i := p.index(serviceAccount)
	if i < 0 {
		return nil, fmt.Errorf("service account %q not found", serviceAccount)
	}
	value, _ := p.state.operator.Lookup(csv.Rules(p.list, i))
	current, err := rows.RuleRowsFromDocument(value)
	if err != nil {
		return nil, err
	}
	l := rows.NewRuleList(current, func(updated []*rows.RuleRow) {
		if _, err := p.UpdateRules(serviceAccount, updated); err != nil {
			p.state.logger.WithError(err).WithField("serviceAccount", serviceAccount).Warn("rules not stored")
		}
	})
	p.lists[serviceAccount] = l
	return l, nil
}

// UpdateRules stores rule rows as the rules of a service account.
func (p *PermissionsPage) UpdateRules(serviceAccount string, ruleRows []*rows.RuleRow) (status.Status, error) {
	i := p.index(serviceAccount)
	if i < 0 {
		return p.Status(), fmt.Errorf("service account %q not found", serviceAccount)
	}
	doc := p.state.operator.DeepCopy()
	path := csv.Rules(p.list, i)
	if err := doc.SetPath(path, rows.RulesValue(ruleRows)); err != nil {
		return p.Status(), err
	}
	return p.state.commit(p.section, doc, p.fields, path.String()), nil
}

func (p *PermissionsPage) store(entries []interface{}) (status.Status, error) {
	doc := p.state.operator.DeepCopy()
	if err := doc.SetPath(p.list, entries); err != nil {
		return p.Status(), err
	}
	return p.state.commit(p.section, doc, p.fields, p.list.String()), nil
}

func (p *PermissionsPage) entries() []interface{} {
	v, _ := p.state.operator.Lookup(p.list)
	items, _ := v.([]interface{})
	return append([]interface{}(nil), items...)
}

func (p *PermissionsPage) index(serviceAccount string) int {
	for i, name := range p.ServiceAccounts() {
		if name == serviceAccount {
			return i
		}
	}
	return -1
}
