package csv

import (
	"github.com/operator-framework/csv-editor/pkg/lib/docpath"
)

// Path is a parsed field path inside a Document.
type Path = docpath.Path

// Field paths used across the editor. Builders below extend them for
// per-row locations.
var (
	Metadata             = docpath.MustParse("metadata")
	MetadataName         = Metadata.Child("name")
	Annotations          = Metadata.Child("annotations")
	AnnotationCapability = Annotations.Child("capabilities")
	AnnotationCategories = Annotations.Child("categories")
	AnnotationDesc       = Annotations.Child("description")
	AnnotationImage      = Annotations.Child("containerImage")
	AnnotationRepository = Annotations.Child("repository")
	AnnotationCreatedAt  = Annotations.Child("createdAt")
	AnnotationExamples   = Annotations.Child("alm-examples")

	Spec              = docpath.MustParse("spec")
	SpecDisplayName   = Spec.Child("displayName")
	SpecDescription   = Spec.Child("description")
	SpecVersion       = Spec.Child("version")
	SpecMaturity      = Spec.Child("maturity")
	SpecReplaces      = Spec.Child("replaces")
	SpecMinKube       = Spec.Child("minKubeVersion")
	SpecMaintainers   = Spec.Child("maintainers")
	SpecLinks         = Spec.Child("links")
	SpecKeywords      = Spec.Child("keywords")
	SpecIcon          = Spec.Child("icon")
	SpecProviderName  = Spec.Child("provider").Child("name")
	SpecLabels        = Spec.Child("labels")
	SpecMatchLabels   = Spec.Child("selector").Child("matchLabels")
	SpecInstallModes  = Spec.Child("installModes")
	SpecCRDs          = Spec.Child("customresourcedefinitions")
	OwnedCRDs         = SpecCRDs.Child("owned")
	RequiredCRDs      = SpecCRDs.Child("required")
	InstallStrategy   = Spec.Child("install").Child("strategy")
	InstallSpec       = Spec.Child("install").Child("spec")
	Deployments       = InstallSpec.Child("deployments")
	Permissions       = InstallSpec.Child("permissions")
	ClusterPermission = InstallSpec.Child("clusterPermissions")
)

// Deployment returns the path of the i-th install deployment.
func Deployment(i int) Path {
	return Deployments.Index(i)
}

// Permission returns the path of the i-th entry of a permissions list
// (Permissions or ClusterPermission).
func Permission(list Path, i int) Path {
	return list.Index(i)
}

// Rules returns the path of the rules of the i-th entry of a permissions list.
func Rules(list Path, i int) Path {
	return list.Index(i).Child("rules")
}

// CRD returns the path of the i-th entry of a CRD list (OwnedCRDs or
// RequiredCRDs).
func CRD(list Path, i int) Path {
	return list.Index(i)
}
