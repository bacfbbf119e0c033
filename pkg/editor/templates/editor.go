package templates

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/operator-framework/csv-editor/pkg/csv"
)

// Editor holds the YAML text of one example while the user edits it. Text
// that does not parse is kept as typed, next to the parse error.
type Editor struct {
	kind string
	text string
	err  string
}

// NewEditor starts editing the example of kind stored in doc.
func NewEditor(doc *csv.Document, kind string) *Editor {
	return &Editor{kind: kind, text: ExampleYAML(doc, kind)}
}

// Kind returns the kind of the edited example.
func (e *Editor) Kind() string {
	return e.kind
}

// Text returns the current text.
func (e *Editor) Text() string {
	return e.text
}

// Error returns the last parse error, or "".
func (e *Editor) Error() string {
	return e.err
}

// Change replaces the text. Parseable text is stored into doc as the
// example of the edited kind and the error is cleared; otherwise doc is left
// untouched. Change reports whether doc was updated.
func (e *Editor) Change(doc *csv.Document, text string) bool {
	e.text = text
	example, err := e.parse(text)
	if err != nil {
		e.err = err.Error()
		return false
	}
	if err := SetExample(doc, e.kind, example); err != nil {
		e.err = err.Error()
		return false
	}
	e.err = ""
	return true
}

func (e *Editor) parse(text string) (map[string]interface{}, error) {
	var obj interface{}
	if err := yaml.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	example, ok := obj.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("example must be a mapping")
	}
	kind, _ := example["kind"].(string)
	switch kind {
	case "":
		example["kind"] = e.kind
	case e.kind:
	default:
		return nil, fmt.Errorf("example kind must be %s, not %s", e.kind, kind)
	}
	return example, nil
}
