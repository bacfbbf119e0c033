// Package templates edits the example custom resources kept in the
// alm-examples annotation.
package templates

import (
	"encoding/json"
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/itchyny/gojq"

	"github.com/operator-framework/csv-editor/pkg/csv"
)

var exampleIndexJQ *gojq.Code

func init() {
	query, err := gojq.Parse(`range(length) as $i | select((.[$i] | type) == "object" and .[$i].kind == $kind) | $i`)
	if err != nil {
		panic(fmt.Errorf("failed to parse example index jq: %s", err))
	}
	if exampleIndexJQ, err = gojq.Compile(query, gojq.WithVariables([]string{"$kind"})); err != nil {
		panic(fmt.Errorf("failed to compile example index jq: %s", err))
	}
}

// ParseExamples reads the alm-examples annotation value. JSON text and
// native lists are accepted; anything unreadable yields an empty list.
func ParseExamples(value interface{}) []interface{} {
	examples, err := ParseExamplesStrict(value)
	if err != nil {
		return []interface{}{}
	}
	return examples
}

// ParseExamplesStrict is ParseExamples reporting why the value could not
// be read.
func ParseExamplesStrict(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case nil:
		return []interface{}{}, nil
	case string:
		if v == "" {
			return []interface{}{}, nil
		}
		var examples []interface{}
		if err := json.Unmarshal([]byte(v), &examples); err != nil {
			return nil, fmt.Errorf("error parsing alm-examples: %v", err)
		}
		if examples == nil {
			examples = []interface{}{}
		}
		return examples, nil
	case []interface{}:
		// Round trip so the list only holds JSON types.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("error reading alm-examples: %v", err)
		}
		var examples []interface{}
		if err := json.Unmarshal(raw, &examples); err != nil {
			return nil, fmt.Errorf("error reading alm-examples: %v", err)
		}
		return examples, nil
	}
	return nil, fmt.Errorf("alm-examples must be a list, got %T", value)
}

// FindExample returns the index of the first example of kind, or -1.
func FindExample(examples []interface{}, kind string) int {
	iter := exampleIndexJQ.Run(examples, kind)
	for {
		v, ok := iter.Next()
		if !ok {
			return -1
		}
		if _, isErr := v.(error); isErr {
			return -1
		}
		if i, ok := v.(int); ok {
			return i
		}
	}
}

// Example returns the example of kind stored in doc.
func Example(doc *csv.Document, kind string) (map[string]interface{}, bool) {
	examples := ParseExamples(doc.Get(csv.AnnotationExamples.String()))
	i := FindExample(examples, kind)
	if i < 0 {
		return nil, false
	}
	obj, ok := examples[i].(map[string]interface{})
	return obj, ok
}

// ExampleYAML renders the example of kind as YAML text. It returns "" when
// there is no such example.
func ExampleYAML(doc *csv.Document, kind string) string {
	obj, ok := Example(doc, kind)
	if !ok {
		return ""
	}
	out, err := yaml.Marshal(obj)
	if err != nil {
		return ""
	}
	return string(out)
}

// SetExample stores example as the example of kind, replacing an existing
// one or appending. The annotation is written back as JSON text.
func SetExample(doc *csv.Document, kind string, example map[string]interface{}) error {
	examples := ParseExamples(doc.Get(csv.AnnotationExamples.String()))
	if i := FindExample(examples, kind); i >= 0 {
		examples[i] = example
	} else {
		examples = append(examples, example)
	}
	raw, err := json.Marshal(examples)
	if err != nil {
		return fmt.Errorf("error encoding alm-examples: %v", err)
	}
	return doc.SetPath(csv.AnnotationExamples, string(raw))
}
