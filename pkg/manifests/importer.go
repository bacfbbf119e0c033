// Package manifests folds uploaded Kubernetes manifests into an operator
// document: a ClusterServiceVersion replaces it, CRDs, deployments and RBAC
// roles are merged into the matching lists.
package manifests

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	appsv1 "k8s.io/api/apps/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/metrics"
)

// Kinds the importer understands.
const (
	KindClusterServiceVersion = operatorsv1alpha1.ClusterServiceVersionKind
	KindCRD                   = "CustomResourceDefinition"
	KindDeployment            = "Deployment"
	KindRole                  = "Role"
	KindClusterRole           = "ClusterRole"
)

// Outcome of importing one manifest document.
type Outcome string

const (
	Imported Outcome = "imported"
	Skipped  Outcome = "skipped"
	Failed   Outcome = "failed"
)

// Result describes one manifest document of an import.
type Result struct {
	Source  string  `json:"source,omitempty"`
	Index   int     `json:"index"`
	Kind    string  `json:"kind,omitempty"`
	Name    string  `json:"name,omitempty"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Report lists the results of an import in input order.
type Report struct {
	Results []Result `json:"results"`

	errs []error
}

// Err aggregates the errors of failed documents, or returns nil.
func (r *Report) Err() error {
	return utilerrors.NewAggregate(r.errs)
}

// Count returns how many documents had outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Merge appends the results and errors of o.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}
	r.Results = append(r.Results, o.Results...)
	r.errs = append(r.errs, o.errs...)
}

func (r *Report) add(res Result, err error) {
	if err != nil {
		res.Outcome = Failed
		res.Error = err.Error()
		r.errs = append(r.errs, errors.Wrapf(err, "document %d", res.Index))
	}
	r.Results = append(r.Results, res)
	outcome := metrics.Succeeded
	switch res.Outcome {
	case Skipped:
		outcome = metrics.Skipped
	case Failed:
		outcome = metrics.Failed
	}
	kind := res.Kind
	if kind == "" {
		kind = "unknown"
	}
	metrics.EmitImport(kind, outcome)
}

// Importer merges manifests into documents.
type Importer struct {
	logger logrus.FieldLogger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(i *Importer) {
		i.logger = logger
	}
}

// NewImporter returns an importer.
func NewImporter(options ...Option) *Importer {
	i := &Importer{logger: logrus.StandardLogger()}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Import reads a stream of YAML or JSON documents and merges them into a
// copy of doc. A ClusterServiceVersion in the stream is applied first, so
// the other documents merge into it wherever they appear. Documents that fail are reported and the others still
// apply. The returned error is only set when the stream itself cannot be
// read.
func (i *Importer) Import(doc *csv.Document, r io.Reader) (*csv.Document, *Report, error) {
	docs, err := i.decodeStream("", r)
	if err != nil {
		return nil, nil, err
	}
	out := doc.DeepCopy()
	report := &Report{}
	i.applyAll(out, docs, report)
	return out, report, nil
}

// ImportFiles imports the documents of every file as one batch, reported
// in file order.
func (i *Importer) ImportFiles(doc *csv.Document, paths ...string) (*csv.Document, *Report, error) {
	var docs []*manifest
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error opening manifest %s", p)
		}
		decoded, err := i.decodeStream(p, f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, decoded...)
	}
	out := doc.DeepCopy()
	report := &Report{}
	i.applyAll(out, docs, report)
	return out, report, nil
}

// ImportDir imports every manifest file of dir, sorted by name. The
// ClusterServiceVersion files are imported first so the other manifests
// merge into them.
func (i *Importer) ImportDir(doc *csv.Document, dir string) (*csv.Document, *Report, error) {
	files, err := ManifestFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	return i.ImportFiles(doc, files...)
}

// ManifestFiles lists the manifest files of dir with files whose name
// mentions a ClusterServiceVersion first.
func ManifestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading manifest directory %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsManifestFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.SliceStable(files, func(a, b int) bool {
		ca, cb := isCSVFile(files[a]), isCSVFile(files[b])
		if ca != cb {
			return ca
		}
		return files[a] < files[b]
	})
	return files, nil
}

// IsManifestFile reports whether name has a manifest extension.
func IsManifestFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func isCSVFile(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	return strings.Contains(base, "clusterserviceversion") || strings.Contains(base, ".csv.")
}

// manifest is one decoded document waiting to be applied.
type manifest struct {
	res Result
	raw []byte
	obj map[string]interface{}
	err error
}

func (i *Importer) decodeStream(source string, r io.Reader) ([]*manifest, error) {
	var out []*manifest
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))
	for index := 0; ; {
		raw, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "error reading manifests")
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		m := &manifest{res: Result{Source: source, Index: index}, raw: raw}
		index++

		obj := map[string]interface{}{}
		if err := yaml.Unmarshal(raw, &obj); err != nil {
			m.err = err
			out = append(out, m)
			continue
		}
		if len(obj) == 0 {
			continue
		}
		m.obj = obj
		m.res.Kind, _ = obj["kind"].(string)
		if meta, ok := obj["metadata"].(map[string]interface{}); ok {
			m.res.Name, _ = meta["name"].(string)
		}
		out = append(out, m)
	}
}

// applyAll applies ClusterServiceVersions before every other kind, since a
// ClusterServiceVersion replaces the whole document. Results are reported
// in input order.
func (i *Importer) applyAll(doc *csv.Document, docs []*manifest, report *Report) {
	for _, csvFirst := range []bool{true, false} {
		for _, m := range docs {
			if m.obj == nil || (m.res.Kind == KindClusterServiceVersion) != csvFirst {
				continue
			}
			m.res.Outcome = Imported
			m.err = i.apply(doc, m.res.Kind, m.raw, m.obj)
			if m.err == errUnsupportedKind {
				m.res.Outcome = Skipped
				m.err = nil
			}
		}
	}
	for _, m := range docs {
		report.add(m.res, m.err)
		i.logger.WithFields(logrus.Fields{
			"kind":    m.res.Kind,
			"name":    m.res.Name,
			"outcome": report.Results[len(report.Results)-1].Outcome,
		}).Debug("manifest processed")
	}
}

var errUnsupportedKind = errors.New("unsupported kind")

func (i *Importer) apply(doc *csv.Document, kind string, raw []byte, obj map[string]interface{}) error {
	switch kind {
	case KindClusterServiceVersion:
		return importCSV(doc, raw, obj)
	case KindCRD:
		return importCRD(doc, raw)
	case KindDeployment:
		return importDeployment(doc, raw)
	case KindRole:
		return importRole(doc, csv.Permissions, raw, kind)
	case KindClusterRole:
		return importRole(doc, csv.ClusterPermission, raw, kind)
	}
	return errUnsupportedKind
}

func importCSV(doc *csv.Document, raw []byte, obj map[string]interface{}) error {
	typed := &operatorsv1alpha1.ClusterServiceVersion{}
	if err := yaml.Unmarshal(raw, typed); err != nil {
		return errors.Wrap(err, "invalid ClusterServiceVersion")
	}
	replacement, err := csv.FromObject(obj)
	if err != nil {
		return err
	}
	var stale []string
	for key := range doc.Object() {
		stale = append(stale, key)
	}
	for _, key := range stale {
		doc.Delete(key)
	}
	for key, value := range replacement.Object() {
		if err := doc.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func importCRD(doc *csv.Document, raw []byte) error {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	if err := yaml.Unmarshal(raw, crd); err != nil {
		return errors.Wrap(err, "invalid CustomResourceDefinition")
	}
	if crd.GetName() == "" {
		return errors.New("CustomResourceDefinition has no name")
	}
	entry := map[string]interface{}{
		"name":        crd.GetName(),
		"kind":        crd.Spec.Names.Kind,
		"group":       crd.Spec.Group,
		"version":     storageVersion(crd),
		"displayName": crd.Spec.Names.Kind,
	}
	// Keep what the user already wrote about a CRD of the same name.
	list := listAt(doc, csv.OwnedCRDs)
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok && m["name"] == crd.GetName() {
			for k, v := range m {
				if _, set := entry[k]; !set || k == "displayName" {
					entry[k] = v
				}
			}
		}
	}
	return doc.SetPath(csv.OwnedCRDs, csv.MergeNamed(list, "name", entry))
}

func storageVersion(crd *apiextensionsv1.CustomResourceDefinition) string {
	for _, v := range crd.Spec.Versions {
		if v.Storage {
			return v.Name
		}
	}
	if len(crd.Spec.Versions) > 0 {
		return crd.Spec.Versions[0].Name
	}
	return ""
}

func importDeployment(doc *csv.Document, raw []byte) error {
	d := &appsv1.Deployment{}
	if err := yaml.Unmarshal(raw, d); err != nil {
		return errors.Wrap(err, "invalid Deployment")
	}
	if d.GetName() == "" {
		return errors.New("Deployment has no name")
	}
	entry, err := csv.DeploymentEntry(operatorsv1alpha1.StrategyDeploymentSpec{
		Name: d.GetName(),
		Spec: d.Spec,
	})
	if err != nil {
		return err
	}
	if err := doc.SetPath(csv.InstallStrategy, operatorsv1alpha1.InstallStrategyNameDeployment); err != nil {
		return err
	}
	return doc.SetPath(csv.Deployments, csv.MergeNamed(listAt(doc, csv.Deployments), "name", entry))
}

func importRole(doc *csv.Document, list csv.Path, raw []byte, kind string) error {
	var (
		name  string
		rules []rbacv1.PolicyRule
	)
	if kind == KindRole {
		role := &rbacv1.Role{}
		if err := yaml.Unmarshal(raw, role); err != nil {
			return errors.Wrap(err, "invalid Role")
		}
		name, rules = role.GetName(), role.Rules
	} else {
		role := &rbacv1.ClusterRole{}
		if err := yaml.Unmarshal(raw, role); err != nil {
			return errors.Wrap(err, "invalid ClusterRole")
		}
		name, rules = role.GetName(), role.Rules
	}
	if name == "" {
		return errors.Errorf("%s has no name", kind)
	}
	entry, err := csv.PermissionEntry(name, rules)
	if err != nil {
		return err
	}
	return doc.SetPath(list, csv.MergeNamed(listAt(doc, list), "serviceAccountName", entry))
}

func listAt(doc *csv.Document, p csv.Path) []interface{} {
	v, _ := doc.Lookup(p)
	items, _ := v.([]interface{})
	return items
}
