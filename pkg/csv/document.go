// Package csv holds the ClusterServiceVersion document edited by the
// operator editor.
package csv

import (
	"encoding/json"
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/hashstructure"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/operator-framework/csv-editor/pkg/lib/docpath"
)

// Document is an operator manifest held as a tree of JSON-compatible values.
// All mutation goes through Set so stored values stay normalised.
type Document struct {
	obj map[string]interface{}
}

// New returns an empty document.
func New() *Document {
	return &Document{obj: map[string]interface{}{}}
}

// FromObject wraps an existing tree. The tree is normalised and copied.
func FromObject(obj map[string]interface{}) (*Document, error) {
	if obj == nil {
		return New(), nil
	}
	v, err := normalize(obj)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("document root must be a mapping")
	}
	return &Document{obj: m}, nil
}

// FromYAML decodes a YAML or JSON manifest.
func FromYAML(data []byte) (*Document, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing manifest: %v", err)
	}
	obj := map[string]interface{}{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("manifest root must be a mapping: %v", err)
	}
	if obj == nil {
		obj = map[string]interface{}{}
	}
	return &Document{obj: obj}, nil
}

// Object exposes the underlying tree for read access. Callers must not
// mutate it; use Set or Clone instead.
func (d *Document) Object() map[string]interface{} {
	if d == nil {
		return nil
	}
	return d.obj
}

// Get reads the value at path, falling back to def when it is absent.
func (d *Document) Get(path string, def ...interface{}) interface{} {
	if d == nil {
		return docpath.Get(nil, path, def...)
	}
	return docpath.Get(d.obj, path, def...)
}

// GetString reads a string value; non-string values yield "".
func (d *Document) GetString(path string) string {
	s, _ := d.Get(path).(string)
	return s
}

// Lookup reads the value at a parsed path.
func (d *Document) Lookup(p Path) (interface{}, bool) {
	return docpath.Lookup(d.obj, docpath.Path(p))
}

// Set writes value at path, creating intermediate containers.
func (d *Document) Set(path string, value interface{}) error {
	p, err := docpath.Parse(path)
	if err != nil {
		return err
	}
	return d.SetPath(Path(p), value)
}

// SetPath is Set for a parsed path.
func (d *Document) SetPath(p Path, value interface{}) error {
	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("cannot store value at %s: %v", p, err)
	}
	return docpath.SetPath(d.obj, docpath.Path(p), v)
}

// Delete removes the value at path.
func (d *Document) Delete(path string) bool {
	return docpath.Delete(d.obj, path)
}

// Empty reports whether the document holds no fields.
func (d *Document) Empty() bool {
	return d == nil || len(d.obj) == 0
}

// DeepCopy returns an independent copy.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return New()
	}
	return &Document{obj: runtime.DeepCopyJSON(d.obj)}
}

// Equal reports whether both documents hold semantically equal trees.
func (d *Document) Equal(o *Document) bool {
	return equality.Semantic.DeepEqual(d.Object(), o.Object())
}

// Fingerprint hashes the document content. Equal documents share a
// fingerprint regardless of map iteration order.
func (d *Document) Fingerprint() (uint64, error) {
	return hashstructure.Hash(d.Object(), nil)
}

// MarshalJSON encodes the document tree.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.obj == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.obj)
}

// UnmarshalJSON replaces the document with the decoded tree.
func (d *Document) UnmarshalJSON(data []byte) error {
	obj := map[string]interface{}{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj == nil {
		obj = map[string]interface{}{}
	}
	d.obj = obj
	return nil
}

// YAML renders the document.
func (d *Document) YAML() ([]byte, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(raw)
}

// ClusterServiceVersion decodes the document into the typed API object. It
// fails when a field holds a value of the wrong shape, which the editor
// itself never checks.
func (d *Document) ClusterServiceVersion() (*operatorsv1alpha1.ClusterServiceVersion, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	csv := &operatorsv1alpha1.ClusterServiceVersion{}
	if err := json.Unmarshal(raw, csv); err != nil {
		return nil, fmt.Errorf("document is not a valid %s: %v", operatorsv1alpha1.ClusterServiceVersionKind, err)
	}
	return csv, nil
}

// FromClusterServiceVersion converts a typed object into a document.
func FromClusterServiceVersion(csv *operatorsv1alpha1.ClusterServiceVersion) (*Document, error) {
	raw, err := json.Marshal(csv)
	if err != nil {
		return nil, err
	}
	d := New()
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return d, nil
}

// normalize turns arbitrary Go values into the JSON-compatible subset the
// document stores. Values that are already in that form are deep copied
// without a round trip.
func normalize(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil, string, bool, float64, int64:
		return t, nil
	case int:
		return int64(t), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
