package editor

import (
	"strings"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/rows"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/lib/docpath"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

// MetadataFields are the paths whose errors decide the metadata status.
var MetadataFields = []string{
	csv.SpecDisplayName.String(),
	csv.AnnotationDesc.String(),
	csv.SpecDescription.String(),
	csv.SpecMaturity.String(),
	csv.SpecVersion.String(),
	csv.SpecReplaces.String(),
	csv.SpecMinKube.String(),
	csv.AnnotationCapability.String(),
	csv.SpecInstallModes.String(),
	csv.SpecLabels.String(),
	csv.SpecMatchLabels.String(),
	csv.AnnotationCategories.String(),
	csv.SpecKeywords.String(),
	csv.SpecIcon.String(),
	csv.AnnotationImage.String(),
	csv.SpecLinks.String(),
	csv.SpecMaintainers.String(),
}

// MetadataPage edits the general operator metadata. Field edits go to a
// working copy; a commit validates the field and stores the copy.
type MetadataPage struct {
	page
	base    *csv.Document
	working *csv.Document
}

// EnterMetadata opens the metadata page and validates its fields.
func (s *State) EnterMetadata() *MetadataPage {
	p := &MetadataPage{
		page:    s.newPage(status.Metadata, MetadataFields),
		base:    s.operator,
		working: s.operator.DeepCopy(),
	}
	s.errs = s.engine.ValidateMany(s.operator, s.errs, MetadataFields...)
	return p
}

// Working returns the working copy.
func (p *MetadataPage) Working() *csv.Document {
	return p.working
}

// Sync refreshes the working copy when the stored document was replaced
// since the copy was taken. Uncommitted edits are dropped in that case.
func (p *MetadataPage) Sync() {
	if p.state.operator != p.base {
		p.base = p.state.operator
		p.working = p.state.operator.DeepCopy()
	}
}

// Update changes a field of the working copy without committing it.
func (p *MetadataPage) Update(path string, value interface{}) error {
	return p.working.Set(path, value)
}

// Commit validates path on the working copy and stores a copy of it. The
// section turns to errors when any metadata field fails and to pending
// otherwise.
func (p *MetadataPage) Commit(path string) status.Status {
	st := p.state.commit(p.section, p.working.DeepCopy(), p.fields, path)
	p.base = p.state.operator
	return st
}

// UpdateCapability sets and commits the capability level.
func (p *MetadataPage) UpdateCapability(capability string) (status.Status, error) {
	return p.updateAndCommit(csv.AnnotationCapability, capability)
}

// UpdateCategories stores the selected categories as comma separated text.
func (p *MetadataPage) UpdateCategories(categories []string) (status.Status, error) {
	return p.updateAndCommit(csv.AnnotationCategories, strings.Join(categories, ", "))
}

// UpdateKeywords stores the keywords list.
func (p *MetadataPage) UpdateKeywords(keywords []string) (status.Status, error) {
	return p.updateAndCommit(csv.SpecKeywords, keywords)
}

// UpdateLabels folds complete label rows into spec.labels.
func (p *MetadataPage) UpdateLabels(labels []*rows.LabelRow) (status.Status, error) {
	return p.updateAndCommit(csv.SpecLabels, rows.LabelsToMap(labels))
}

// UpdateSelectors folds complete rows into spec.selector.matchLabels.
func (p *MetadataPage) UpdateSelectors(selectors []*rows.LabelRow) (status.Status, error) {
	return p.updateAndCommit(csv.SpecMatchLabels, rows.LabelsToMap(selectors))
}

// UpdateLinks stores complete rows as spec.links.
func (p *MetadataPage) UpdateLinks(links []*rows.LabelRow) (status.Status, error) {
	return p.updateAndCommit(csv.SpecLinks, rows.LabelsToList(links, rows.LinkFields))
}

// UpdateMaintainers stores complete rows as spec.maintainers.
func (p *MetadataPage) UpdateMaintainers(maintainers []*rows.LabelRow) (status.Status, error) {
	return p.updateAndCommit(csv.SpecMaintainers, rows.LabelsToList(maintainers, rows.MaintainerFields))
}

// UpdateIcon replaces the icon and stores the working copy without
// validating it, as image uploads do.
func (p *MetadataPage) UpdateIcon(data, mediaType string) error {
	icon := []interface{}{map[string]interface{}{"base64data": data, "mediatype": mediaType}}
	if err := p.working.SetPath(csv.SpecIcon, icon); err != nil {
		return err
	}
	p.state.SetOperator(p.working.DeepCopy())
	return nil
}

// LabelRows returns the rows of a label-like field for editing. Map fields
// (labels and selectors) yield qualified rows.
func (p *MetadataPage) LabelRows(field docpath.Path) []*rows.LabelRow {
	value, _ := p.working.Lookup(field)
	switch field.String() {
	case csv.SpecLinks.String():
		return rows.LabelsFromList(value, rows.LinkFields)
	case csv.SpecMaintainers.String():
		return rows.LabelsFromList(value, rows.MaintainerFields)
	}
	return rows.LabelsFromMap(value)
}

// VisibleErrors hides the errors of fields the user has not touched yet
// when the section was entered empty.
func (p *MetadataPage) VisibleErrors() validation.Errors {
	errs := p.state.errs
	if p.visit.EntryStatus() != status.Empty {
		return errs
	}
	out := validation.Errors{}
	for _, f := range p.fields {
		if fe := errs.Get(f); fe != nil && p.state.operator.Get(f) != nil {
			out.Set(f, fe)
		}
	}
	return out
}

func (p *MetadataPage) updateAndCommit(path docpath.Path, value interface{}) (status.Status, error) {
	if err := p.working.SetPath(path, value); err != nil {
		return p.Status(), err
	}
	return p.Commit(path.String()), nil
}
