// Package summary condenses an operator document into the flat record that
// listing and preview views display.
package summary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/operator-framework/csv-editor/pkg/catalog"
	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/templates"
	"github.com/operator-framework/csv-editor/pkg/lib/codec"
)

const notAvailable = "Name Not Available"

var preReleaseSeparator = regexp.MustCompile(`(?i)-(beta|alpha)`)

// CRD is the summary of an owned CRD.
type CRD struct {
	Name        string                 `json:"name"`
	Kind        string                 `json:"kind"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Example     map[string]interface{} `json:"yamlExample,omitempty"`
}

// Operator is the summary of an operator document.
type Operator struct {
	ID                string                          `json:"id"`
	Name              string                          `json:"name"`
	DisplayName       string                          `json:"displayName"`
	ImageURL          string                          `json:"imgUrl"`
	LongDescription   string                          `json:"longDescription"`
	Description       string                          `json:"description"`
	Provider          string                          `json:"provider,omitempty"`
	Version           string                          `json:"version"`
	VersionForCompare string                          `json:"versionForCompare"`
	SemVer            *semver.Version                 `json:"-"`
	CapabilityLevel   string                          `json:"capabilityLevel"`
	Links             []operatorsv1alpha1.AppLink     `json:"links,omitempty"`
	Maintainers       []operatorsv1alpha1.Maintainer  `json:"maintainers,omitempty"`
	Repository        string                          `json:"repository,omitempty"`
	Categories        []string                        `json:"categories,omitempty"`
	CreatedAt         *metav1.Time                    `json:"createdAt,omitempty"`
	ContainerImage    string                          `json:"containerImage,omitempty"`
	CRDs              []CRD                           `json:"customResourceDefinitions"`
	InstallModes      []operatorsv1alpha1.InstallMode `json:"installModes,omitempty"`
	Global            bool                            `json:"globalOperator"`
}

type annotations struct {
	Capabilities   string       `json:"capabilities"`
	Categories     []string     `json:"categories"`
	Description    string       `json:"description"`
	Repository     string       `json:"repository"`
	CreatedAt      *metav1.Time `json:"createdAt"`
	ContainerImage string       `json:"containerImage"`
}

type spec struct {
	DisplayName  string                          `json:"displayName"`
	Description  string                          `json:"description"`
	Version      string                          `json:"version"`
	Icon         []operatorsv1alpha1.Icon        `json:"icon"`
	Provider     operatorsv1alpha1.AppLink       `json:"provider"`
	Links        []operatorsv1alpha1.AppLink     `json:"links"`
	Maintainers  []operatorsv1alpha1.Maintainer  `json:"maintainers"`
	InstallModes []operatorsv1alpha1.InstallMode `json:"installModes"`
	CRDs         struct {
		Owned []map[string]interface{} `json:"owned"`
	} `json:"customresourcedefinitions"`
}

// Summarize builds the summary of doc. Fields of the wrong shape are
// reported as an error; absent fields are left empty.
func Summarize(doc *csv.Document) (*Operator, error) {
	var a annotations
	if err := codec.Decode(doc.Get(csv.Annotations.String(), map[string]interface{}{}), &a); err != nil {
		return nil, fmt.Errorf("error reading annotations: %v", err)
	}
	var s spec
	if err := codec.Decode(doc.Get(csv.Spec.String(), map[string]interface{}{}), &s); err != nil {
		return nil, fmt.Errorf("error reading spec: %v", err)
	}

	name := doc.GetString(csv.MetadataName.String())
	out := &Operator{
		ID:                ID(name),
		Name:              name,
		DisplayName:       firstNonEmpty(s.DisplayName, name),
		LongDescription:   firstNonEmpty(s.Description, a.Description),
		Description:       a.Description,
		Provider:          s.Provider.Name,
		Version:           s.Version,
		VersionForCompare: VersionForCompare(s.Version),
		CapabilityLevel:   catalog.NormalizeCapability(a.Capabilities),
		Links:             s.Links,
		Maintainers:       s.Maintainers,
		Repository:        a.Repository,
		Categories:        a.Categories,
		CreatedAt:         a.CreatedAt,
		ContainerImage:    a.ContainerImage,
		InstallModes:      s.InstallModes,
		Global:            Global(s.InstallModes),
		CRDs:              []CRD{},
	}
	if v, err := semver.ParseTolerant(s.Version); err == nil {
		out.SemVer = &v
	}
	if len(s.Icon) > 0 {
		out.ImageURL = fmt.Sprintf("data:%s;base64,%s", s.Icon[0].MediaType, s.Icon[0].Data)
	}

	for _, owned := range s.CRDs.Owned {
		crd := CRD{
			Name:        stringOr(owned["name"], notAvailable),
			Kind:        stringOr(owned["kind"], ""),
			DisplayName: stringOr(owned["displayName"], notAvailable),
			Description: stringOr(owned["description"], "No description available"),
		}
		if example, ok := templates.Example(doc, crd.Kind); ok && crd.Kind != "" {
			crd.Example = example
		}
		out.CRDs = append(out.CRDs, crd)
	}
	return out, nil
}

// ID derives an operator id from a versioned name such as
// "etcdoperator.v0.9.4". Names without a dot are their own id.
func ID(name string) string {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// VersionForCompare drops the dash in front of beta and alpha suffixes.
func VersionForCompare(version string) string {
	return preReleaseSeparator.ReplaceAllStringFunc(version, func(m string) string {
		return strings.ToLower(m[1:])
	})
}

// Global reports whether the operator supports the AllNamespaces mode.
func Global(modes []operatorsv1alpha1.InstallMode) bool {
	for _, m := range modes {
		if m.Type == operatorsv1alpha1.InstallModeTypeAllNamespaces && m.Supported {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
