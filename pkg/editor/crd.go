package editor

import (
	"errors"
	"fmt"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/editor/templates"
	"github.com/operator-framework/csv-editor/pkg/lib/docpath"
	"github.com/operator-framework/csv-editor/pkg/metrics"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

var (
	// ErrCRDNotFound is returned when a CRD page refers to a CRD that left
	// the document.
	ErrCRDNotFound = errors.New("crd not found")

	// ErrNotCRDSection is returned for sections that do not hold CRDs.
	ErrNotCRDSection = errors.New("section does not hold crds")
)

// CRD fields edited by the CRD page.
const (
	CRDName              = "name"
	CRDDisplayName       = "displayName"
	CRDDescription       = "description"
	CRDGroup             = "group"
	CRDKind              = "kind"
	CRDVersion           = "version"
	CRDResources         = "resources"
	CRDSpecDescriptors   = "specDescriptors"
	CRDStatusDescriptors = "statusDescriptors"
	CRDActionDescriptors = "actionDescriptors"
)

// CRDList returns the document list edited by a CRD section.
func CRDList(section status.Section) (docpath.Path, error) {
	switch section {
	case status.OwnedCRDs:
		return csv.OwnedCRDs, nil
	case status.RequiredCRDs:
		return csv.RequiredCRDs, nil
	}
	return nil, ErrNotCRDSection
}

// ObjectType names the CRDs of a section for display.
func ObjectType(section status.Section) string {
	if section == status.RequiredCRDs {
		return "Required CRD"
	}
	return "Owned CRD"
}

// PlaceholderName is the name given to a CRD created from the list page
// before the user names it.
func PlaceholderName(section status.Section) string {
	return "Add " + ObjectType(section)
}

// CRDPage edits one owned or required CRD, found by name.
type CRDPage struct {
	page
	list     docpath.Path
	name     string
	created  bool
	template *templates.Editor
}

// EnterCRD opens the CRD called name in section, creating it when the list
// has no CRD of that name.
func (s *State) EnterCRD(section status.Section, name string) (*CRDPage, error) {
	list, err := CRDList(section)
	if err != nil {
		return nil, err
	}
	p := &CRDPage{
		page: s.newPage(section, []string{list.String()}),
		list: list,
		name: name,
	}
	if p.index(s.operator) < 0 {
		doc := s.operator.DeepCopy()
		crds, _ := doc.Lookup(list)
		items, _ := crds.([]interface{})
		items = append(items, map[string]interface{}{CRDName: name})
		if err := doc.SetPath(list, items); err != nil {
			return nil, err
		}
		s.SetOperator(doc)
		p.created = true
		s.logger.WithField("crd", name).Debug("crd created")
	}
	p.template = templates.NewEditor(s.operator, p.Kind())
	return p, nil
}

// Name returns the name of the edited CRD.
func (p *CRDPage) Name() string {
	return p.name
}

// Kind returns the kind of the edited CRD.
func (p *CRDPage) Kind() string {
	v, _ := p.Field(CRDKind).(string)
	return v
}

// FocusName reports whether the CRD was created by entering the page with
// the placeholder name, so its name input should take focus.
func (p *CRDPage) FocusName() bool {
	return p.created && p.name == PlaceholderName(p.section)
}

// CRD returns the edited CRD object.
func (p *CRDPage) CRD() (map[string]interface{}, error) {
	i := p.index(p.state.operator)
	if i < 0 {
		return nil, ErrCRDNotFound
	}
	obj, _ := p.state.operator.Lookup(p.list.Index(i))
	crd, _ := obj.(map[string]interface{})
	return crd, nil
}

// Field returns a field of the edited CRD, or nil.
func (p *CRDPage) Field(field string) interface{} {
	crd, err := p.CRD()
	if err != nil {
		return nil
	}
	return docpath.Get(crd, field)
}

// FieldPath returns the document path of a field of the edited CRD.
func (p *CRDPage) FieldPath(field string) (string, error) {
	i := p.index(p.state.operator)
	if i < 0 {
		return "", ErrCRDNotFound
	}
	sub, err := docpath.Parse(field)
	if err != nil {
		return "", err
	}
	return p.list.Index(i).Join(sub).String(), nil
}

// Update sets a field of the edited CRD in a copy of the document and
// stores it. Renaming the CRD keeps the page on it; changing its kind points
// the template editor at the example of the new kind.
func (p *CRDPage) Update(field string, value interface{}) (status.Status, error) {
	path, err := p.FieldPath(field)
	if err != nil {
		return p.Status(), err
	}
	doc := p.state.operator.DeepCopy()
	if err := doc.Set(path, value); err != nil {
		return p.Status(), err
	}
	if field == CRDName {
		name, _ := value.(string)
		p.name = name
	}
	st := p.state.commit(p.section, doc, p.fields, path)
	if field == CRDKind {
		p.template = templates.NewEditor(p.state.operator, p.Kind())
	}
	return st, nil
}

// UpdateResources replaces the resources of the CRD.
func (p *CRDPage) UpdateResources(resources []interface{}) (status.Status, error) {
	return p.Update(CRDResources, resources)
}

// UpdateSpecDescriptors replaces the spec descriptors of the CRD.
func (p *CRDPage) UpdateSpecDescriptors(descriptors []interface{}) (status.Status, error) {
	return p.Update(CRDSpecDescriptors, descriptors)
}

// UpdateStatusDescriptors replaces the status descriptors of the CRD.
func (p *CRDPage) UpdateStatusDescriptors(descriptors []interface{}) (status.Status, error) {
	return p.Update(CRDStatusDescriptors, descriptors)
}

// UpdateActionDescriptors replaces the action descriptors of the CRD.
func (p *CRDPage) UpdateActionDescriptors(descriptors []interface{}) (status.Status, error) {
	return p.Update(CRDActionDescriptors, descriptors)
}

// Validate revalidates one field of the CRD and stores the result in the
// form errors.
func (p *CRDPage) Validate(field string) (*validation.FieldError, error) {
	path, err := p.FieldPath(field)
	if err != nil {
		return nil, err
	}
	p.state.errs = p.state.engine.ValidateMany(p.state.operator, p.state.errs, path)
	return p.state.errs.Get(path), nil
}

// Template returns the editor of the example of the CRD kind.
func (p *CRDPage) Template() *templates.Editor {
	return p.template
}

// ChangeTemplate replaces the example text. Text that parses is stored in
// the document; otherwise the text and its error stay on the editor and the
// document is left as it was.
func (p *CRDPage) ChangeTemplate(text string) bool {
	doc := p.state.operator.DeepCopy()
	if !p.template.Change(doc, text) {
		metrics.EmitTemplateParseFailure()
		p.state.logger.WithField("kind", p.template.Kind()).Debugf("example rejected: %s", p.template.Error())
		return false
	}
	p.state.commit(p.section, doc, p.fields, csv.AnnotationExamples.String())
	return true
}

func (p *CRDPage) index(doc *csv.Document) int {
	crds, _ := doc.Lookup(p.list)
	items, _ := crds.([]interface{})
	for i, item := range items {
		crd, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _ := crd[CRDName].(string); name == p.name {
			return i
		}
	}
	return -1
}

// RemoveCRD drops the CRD called name from section.
func (s *State) RemoveCRD(section status.Section, name string) error {
	list, err := CRDList(section)
	if err != nil {
		return err
	}
	p := &CRDPage{page: page{state: s, section: section}, list: list, name: name}
	i := p.index(s.operator)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCRDNotFound, name)
	}
	doc := s.operator.DeepCopy()
	doc.Delete(list.Index(i).String())
	s.commit(section, doc, []string{list.String()}, list.String())
	return nil
}

// CRDNames lists the names of the CRDs of section.
func (s *State) CRDNames(section status.Section) []string {
	list, err := CRDList(section)
	if err != nil {
		return nil
	}
	crds, _ := s.operator.Lookup(list)
	items, _ := crds.([]interface{})
	names := make([]string, 0, len(items))
	for _, item := range items {
		if crd, ok := item.(map[string]interface{}); ok {
			name, _ := crd[CRDName].(string)
			names = append(names, name)
		}
	}
	return names
}

// ApplyCRDs validates a CRD section and marks it complete when it has no
// errors.
func (s *State) ApplyCRDs(section status.Section) (status.Status, error) {
	list, err := CRDList(section)
	if err != nil {
		return s.SectionStatus(section), err
	}
	return s.apply(section, []string{list.String()}), nil
}
