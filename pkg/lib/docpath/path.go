// Package docpath addresses locations inside nested documents built from
// maps, slices and scalars using dotted paths such as
// "spec.install.spec.deployments[0].name".
package docpath

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxIndex bounds the sequence index a path may carry. Set pads sequences up
// to the index it writes, so an unbounded index would allocate without limit.
const MaxIndex = 1 << 16

// Segment is a single step of a Path.
type Segment struct {
	// Key is the raw text of the segment. For index segments it holds the
	// decimal form of Index so the segment can still address a map key.
	Key string

	// Index is the parsed sequence index, valid when Numeric is true.
	Index int

	// Numeric is set when the segment can address a sequence element.
	Numeric bool

	// Quoted is set for bracket-quoted keys, which never address sequences.
	Quoted bool
}

// Path is a parsed field path.
type Path []Segment

// Parse splits a field path into segments. Dots separate keys, brackets hold
// indices ("a[0]") or quoted keys ("labels[\"app.kubernetes.io/name\"]").
// A purely numeric dotted segment ("icon.0") is treated as an index.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}

	var (
		p   Path
		cur strings.Builder
		// pending is true when cur holds (possibly empty) text that must be
		// flushed as a segment.
		pending = true
	)

	flush := func() error {
		if !pending {
			return nil
		}
		key := cur.String()
		cur.Reset()
		if key == "" {
			return fmt.Errorf("path %q has an empty segment", s)
		}
		p = append(p, keySegment(key))
		pending = false
		return nil
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '.':
			if err := flush(); err != nil {
				return nil, err
			}
			pending = true
		case '[':
			if pending && cur.Len() > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			} else if pending && len(p) > 0 {
				// "a.[0]"
				return nil, fmt.Errorf("path %q has an empty segment", s)
			}
			pending = false
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q has an unterminated bracket", s)
			}
			seg, err := bracketSegment(s[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("path %q: %v", s, err)
			}
			p = append(p, seg)
			i += end
			if i+1 < len(s) && s[i+1] != '.' && s[i+1] != '[' {
				return nil, fmt.Errorf("path %q has text after a bracket", s)
			}
		default:
			if !pending {
				return nil, fmt.Errorf("path %q has text after a bracket", s)
			}
			cur.WriteByte(c)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// package-level path constants.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func keySegment(key string) Segment {
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i <= MaxIndex && strconv.Itoa(i) == key {
		return Segment{Key: key, Index: i, Numeric: true}
	}
	return Segment{Key: key}
}

func bracketSegment(inner string) (Segment, error) {
	if inner == "" {
		return Segment{}, fmt.Errorf("empty brackets")
	}
	if q := inner[0]; q == '"' || q == '\'' {
		if len(inner) < 2 || inner[len(inner)-1] != q {
			return Segment{}, fmt.Errorf("unbalanced quotes in %q", inner)
		}
		return Segment{Key: inner[1 : len(inner)-1], Quoted: true}, nil
	}
	i, err := strconv.Atoi(inner)
	if err != nil {
		return Segment{Key: inner}, nil
	}
	if i < 0 || i > MaxIndex {
		return Segment{}, fmt.Errorf("index %d out of range", i)
	}
	return Segment{Key: inner, Index: i, Numeric: true}, nil
}

// String renders the path back into its textual form.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch {
		case seg.Quoted || needsQuoting(seg.Key):
			fmt.Fprintf(&b, "[%q]", seg.Key)
		case seg.Numeric && i > 0:
			fmt.Fprintf(&b, "[%d]", seg.Index)
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

func needsQuoting(key string) bool {
	return strings.ContainsAny(key, ".[]")
}

// Child returns a copy of p extended by a map key.
func (p Path) Child(key string) Path {
	seg := Segment{Key: key, Quoted: needsQuoting(key)}
	return append(p.copy(), seg)
}

// Index returns a copy of p extended by a sequence index.
func (p Path) Index(i int) Path {
	return append(p.copy(), Segment{Key: strconv.Itoa(i), Index: i, Numeric: true})
}

// Join returns a copy of p extended by all segments of q.
func (p Path) Join(q Path) Path {
	return append(p.copy(), q...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1].copy()
}

// HasPrefix reports whether q is a leading part of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i].Key != q[i].Key {
			return false
		}
	}
	return true
}

func (p Path) copy() Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return out
}
