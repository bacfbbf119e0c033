package editor

import (
	"fmt"

	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"

	"github.com/operator-framework/csv-editor/pkg/catalog"
	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/lib/codec"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

// InstallModesPage edits which install modes the operator supports. The
// document always receives every install mode type, in catalog order.
type InstallModesPage struct {
	page
}

// EnterInstallModes opens the install modes page.
func (s *State) EnterInstallModes() *InstallModesPage {
	return &InstallModesPage{page: s.newPage(status.InstallModes, []string{csv.SpecInstallModes.String()})}
}

// Modes returns every install mode type with its stored support flag.
// Types missing from the document are unsupported.
func (p *InstallModesPage) Modes() ([]operatorsv1alpha1.InstallMode, error) {
	var stored []operatorsv1alpha1.InstallMode
	if v, ok := p.state.operator.Lookup(csv.SpecInstallModes); ok && v != nil {
		if err := codec.Decode(v, &stored); err != nil {
			return nil, fmt.Errorf("error decoding install modes: %v", err)
		}
	}
	supported := map[operatorsv1alpha1.InstallModeType]bool{}
	for _, m := range stored {
		supported[m.Type] = m.Supported
	}
	out := make([]operatorsv1alpha1.InstallMode, 0, len(catalog.InstallModes))
	for _, m := range catalog.InstallModes {
		out = append(out, operatorsv1alpha1.InstallMode{Type: m.Type, Supported: supported[m.Type]})
	}
	return out, nil
}

// SetSupported changes the support flag of one install mode type.
func (p *InstallModesPage) SetSupported(mode operatorsv1alpha1.InstallModeType, supported bool) (status.Status, error) {
	modes, err := p.Modes()
	if err != nil {
		return p.Status(), err
	}
	found := false
	value := make([]interface{}, 0, len(modes))
	for _, m := range modes {
		if m.Type == mode {
			m.Supported = supported
			found = true
		}
		value = append(value, map[string]interface{}{"type": string(m.Type), "supported": m.Supported})
	}
	if !found {
		return p.Status(), fmt.Errorf("unknown install mode %q", mode)
	}
	doc := p.state.operator.DeepCopy()
	if err := doc.SetPath(csv.SpecInstallModes, value); err != nil {
		return p.Status(), err
	}
	return p.state.commit(p.section, doc, p.fields, csv.SpecInstallModes.String()), nil
}

// Global reports whether the operator supports AllNamespaces.
func (p *InstallModesPage) Global() bool {
	modes, err := p.Modes()
	if err != nil {
		return false
	}
	for _, m := range modes {
		if m.Type == operatorsv1alpha1.InstallModeTypeAllNamespaces {
			return m.Supported
		}
	}
	return false
}

// Apply marks the section complete when at least one install mode is
// supported and as having errors otherwise.
func (p *InstallModesPage) Apply() status.Status {
	modes, err := p.Modes()
	if err == nil {
		for _, m := range modes {
			if m.Supported {
				return p.page.Apply()
			}
		}
	}
	p.state.errs = p.state.errs.Clone()
	p.state.errs.Set(csv.SpecInstallModes.String(), validation.Message(NoInstallModeMessage))
	p.state.SetSectionStatus(p.section, status.Errors)
	return status.Errors
}

// NoInstallModeMessage is reported when no install mode is supported.
const NoInstallModeMessage = "At least one install mode must be supported."
