package docpath

import (
	"fmt"
	"reflect"
)

// Get resolves path inside root. When any segment is missing, the path is
// malformed, or a segment cannot be applied to the value it reaches, Get
// returns def[0] (or nil without a default).
func Get(root interface{}, path string, def ...interface{}) interface{} {
	p, err := Parse(path)
	if err != nil {
		return fallback(def)
	}
	if v, ok := Lookup(root, p); ok {
		return v
	}
	return fallback(def)
}

func fallback(def []interface{}) interface{} {
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

// Lookup resolves a parsed path inside root and reports whether every segment
// was present.
func Lookup(root interface{}, p Path) (interface{}, bool) {
	cur := root
	for _, seg := range p {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(cur interface{}, seg Segment) (interface{}, bool) {
	switch c := cur.(type) {
	case map[string]interface{}:
		v, ok := c[seg.Key]
		return v, ok
	case []interface{}:
		if !seg.Numeric || seg.Quoted || seg.Index >= len(c) {
			return nil, false
		}
		return c[seg.Index], true
	case nil:
		return nil, false
	}

	// Typed containers ([]string, map[string]string, ...) are read through
	// reflection; they appear when callers hand in values that were never
	// normalised.
	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(seg.Key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		if !seg.Numeric || seg.Quoted || seg.Index >= rv.Len() {
			return nil, false
		}
		return rv.Index(seg.Index).Interface(), true
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, false
		}
		return step(rv.Elem().Interface(), seg)
	}
	return nil, false
}

// Has reports whether path resolves inside root.
func Has(root interface{}, path string) bool {
	p, err := Parse(path)
	if err != nil {
		return false
	}
	_, ok := Lookup(root, p)
	return ok
}

// Set writes value at path inside root, creating intermediate maps and
// sequences as needed. A sequence is created when the following segment is
// an index; sequences are padded with nil up to the written index.
//
// When an intermediate segment holds a scalar, or a container that cannot
// take the next segment, it is replaced by the container the path needs.
func Set(root map[string]interface{}, path string, value interface{}) error {
	p, err := Parse(path)
	if err != nil {
		return err
	}
	return SetPath(root, p, value)
}

// SetPath is Set for a parsed path.
func SetPath(root map[string]interface{}, p Path, value interface{}) error {
	if root == nil {
		return fmt.Errorf("cannot set %q on a nil document", p)
	}
	if len(p) == 0 {
		return fmt.Errorf("empty path")
	}
	seg := p[0]
	root[seg.Key] = assign(root[seg.Key], p[1:], value)
	return nil
}

func assign(cur interface{}, rest Path, value interface{}) interface{} {
	if len(rest) == 0 {
		return value
	}
	seg := rest[0]

	switch c := cur.(type) {
	case map[string]interface{}:
		c[seg.Key] = assign(c[seg.Key], rest[1:], value)
		return c
	case []interface{}:
		if seg.Numeric && !seg.Quoted {
			for len(c) <= seg.Index {
				c = append(c, nil)
			}
			c[seg.Index] = assign(c[seg.Index], rest[1:], value)
			return c
		}
	}

	if seg.Numeric && !seg.Quoted {
		c := make([]interface{}, seg.Index+1)
		c[seg.Index] = assign(nil, rest[1:], value)
		return c
	}
	return map[string]interface{}{seg.Key: assign(nil, rest[1:], value)}
}

// Delete removes the value at path. Removing a sequence element shifts the
// following elements down. Delete reports whether anything was removed.
func Delete(root map[string]interface{}, path string) bool {
	p, err := Parse(path)
	if err != nil || len(p) == 0 {
		return false
	}
	parentPath, last := p[:len(p)-1], p[len(p)-1]

	if len(parentPath) == 0 {
		if _, ok := root[last.Key]; !ok {
			return false
		}
		delete(root, last.Key)
		return true
	}

	parent, ok := Lookup(root, parentPath)
	if !ok {
		return false
	}
	switch c := parent.(type) {
	case map[string]interface{}:
		if _, ok := c[last.Key]; !ok {
			return false
		}
		delete(c, last.Key)
		return true
	case []interface{}:
		if !last.Numeric || last.Index >= len(c) {
			return false
		}
		trimmed := append(c[:last.Index:last.Index], c[last.Index+1:]...)
		// The parent sequence shrinks, so it has to be written back.
		return SetPath(root, parentPath, trimmed) == nil
	}
	return false
}

// Clone deep copies maps and sequences of v. Leaves are shared.
func Clone(v interface{}) interface{} {
	switch c := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(c))
		for k, e := range c {
			out[k] = Clone(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(c))
		for i, e := range c {
			out[i] = Clone(e)
		}
		return out
	}
	return v
}

// CloneMap is Clone for a map root; a nil map clones to an empty one.
func CloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return Clone(m).(map[string]interface{})
}
