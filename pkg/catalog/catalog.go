// Package catalog holds the fixed option lists offered by the editor.
package catalog

import (
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
)

// Resources lists the resource types offered for RBAC rules.
var Resources = []string{
	"*",
	"bindings",
	"configmaps",
	"endpoints",
	"events",
	"limitranges",
	"namespaces",
	"persistentvolumeclaims",
	"pods",
	"pods/attach",
	"pods/exec",
	"pods/log",
	"pods/portforward",
	"pods/proxy",
	"pods/status",
	"replicationcontrollers",
	"replicationcontrollers/scale",
	"secrets",
	"serviceaccounts",
	"services",
	"services/proxy",
}

// Verbs lists the RBAC verbs offered for rules.
var Verbs = []string{"*", "create", "delete", "deletecollection", "get", "list", "patch", "update", "watch"}

// Categories lists the operator categories.
var Categories = []string{
	"AI/Machine Learning",
	"Big Data",
	"Cloud Provider",
	"Database",
	"Integration & Delivery",
	"Logging & Tracing",
	"Monitoring",
	"Networking",
	"OpenShift Optional",
	"Security",
	"Storage",
	"Streaming & Messaging",
}

// Capability is an operator capability level.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Capabilities lists the capability levels from least to most capable.
var Capabilities = []Capability{
	{Name: "Basic Install", Description: "Automated application provisioning and configuration management"},
	{Name: "Seamless Upgrades", Description: "Patch and minor version upgrades supported"},
	{Name: "Full Lifecycle", Description: "App Lifecycle, storage lifecycle (backup, failure recovery)"},
	{Name: "Deep Insights", Description: "Metrics, alerts, log processing and workload analysis"},
	{Name: "Auto Pilot", Description: "Horizontal/vertical scaling, auto config tuning, abnormal detection, scheduling tuning"},
}

// NormalizeCapability returns capability when it is a known level and the
// lowest level otherwise.
func NormalizeCapability(capability string) string {
	for _, c := range Capabilities {
		if c.Name == capability {
			return capability
		}
	}
	return Capabilities[0].Name
}

// InstallMode describes one install mode type.
type InstallMode struct {
	Type        operatorsv1alpha1.InstallModeType `json:"type"`
	Description string                            `json:"description"`
}

// InstallModes lists the install mode types.
var InstallModes = []InstallMode{
	{
		Type:        operatorsv1alpha1.InstallModeTypeOwnNamespace,
		Description: "If supported, the operator can be a member of an OperatorGroup that selects its own namespace.",
	},
	{
		Type:        operatorsv1alpha1.InstallModeTypeSingleNamespace,
		Description: "If supported, the operator can be a member of an OperatorGroup that selects one namespace.",
	},
	{
		Type:        operatorsv1alpha1.InstallModeTypeMultiNamespace,
		Description: "If supported, the operator can be a member of an OperatorGroup that selects more than one namespace.",
	},
	{
		Type:        operatorsv1alpha1.InstallModeTypeAllNamespaces,
		Description: "If supported, the operator can be a member of an OperatorGroup that selects all namespaces.",
	},
}

// Maturities lists common maturity values.
var Maturities = []string{"planning", "pre-alpha", "alpha", "beta", "stable", "mature", "inactive", "deprecated"}

// Catalog bundles every list, for transports.
type Catalog struct {
	Resources    []string      `json:"resources"`
	Verbs        []string      `json:"verbs"`
	Categories   []string      `json:"categories"`
	Capabilities []Capability  `json:"capabilities"`
	InstallModes []InstallMode `json:"installModes"`
	Maturities   []string      `json:"maturities"`
}

// All returns every list.
func All() Catalog {
	return Catalog{
		Resources:    Resources,
		Verbs:        Verbs,
		Categories:   Categories,
		Capabilities: Capabilities,
		InstallModes: InstallModes,
		Maturities:   Maturities,
	}
}

// Names returns the names of the lists All returns.
func Names() []string {
	return []string{"resources", "verbs", "categories", "capabilities", "install-modes", "maturities"}
}

// Lookup returns a single list by name.
func Lookup(name string) (interface{}, bool) {
	switch name {
	case "resources":
		return Resources, true
	case "verbs":
		return Verbs, true
	case "categories":
		return Categories, true
	case "capabilities":
		return Capabilities, true
	case "install-modes":
		return InstallModes, true
	case "maturities":
		return Maturities, true
	}
	return nil, false
}
