// Package rows implements editable row lists: RBAC rule rows and key/value
// label rows. Edits stay local to the list until a row is complete; only
// then is the whole list handed to the update callback.
package rows

import (
	"errors"
)

// ErrRowNotFound is returned for rows that are not part of the list.
var ErrRowNotFound = errors.New("row not found")

// Row is an editable row.
type Row interface {
	// Set changes one field of the row.
	Set(field string, value interface{}) error
	// Complete reports whether every required field is populated.
	Complete() bool
	// Blank reports whether every field is empty.
	Blank() bool
}

// List is a working list of rows. It always holds at least one row.
type List[R Row] struct {
	rows     []R
	newRow   func() R
	onUpdate func([]R)
}

// NewList starts a list from rows. An empty list gets one blank row.
// onUpdate may be nil.
func NewList[R Row](newRow func() R, rows []R, onUpdate func([]R)) *List[R] {
	if onUpdate == nil {
		onUpdate = func([]R) {}
	}
	l := &List[R]{
		rows:     append([]R(nil), rows...),
		newRow:   newRow,
		onUpdate: onUpdate,
	}
	if len(l.rows) == 0 {
		l.rows = append(l.rows, newRow())
	}
	return l
}

// Rows returns the working rows.
func (l *List[R]) Rows() []R {
	return append([]R(nil), l.rows...)
}

// Len returns the number of rows.
func (l *List[R]) Len() int {
	return len(l.rows)
}

// At returns the i-th row.
func (l *List[R]) At(i int) (R, error) {
	if i < 0 || i >= len(l.rows) {
		var zero R
		return zero, ErrRowNotFound
	}
	return l.rows[i], nil
}

// AddRow appends a blank row. Nothing is committed.
func (l *List[R]) AddRow() R {
	r := l.newRow()
	l.rows = append(l.rows, r)
	return r
}

// UpdateRow changes a field of row in place. Nothing is committed.
func (l *List[R]) UpdateRow(row R, field string, value interface{}) error {
	if l.index(row) < 0 {
		return ErrRowNotFound
	}
	return row.Set(field, value)
}

// Blur commits the list when row is complete and reports whether it did.
func (l *List[R]) Blur(row R) bool {
	if l.index(row) < 0 || !row.Complete() {
		return false
	}
	l.commit()
	return true
}

// RemoveRow deletes row and commits. Removing the sole blank row is refused
// so the list never runs out of editable rows. RemoveRow reports whether
// the row was removed.
func (l *List[R]) RemoveRow(row R) bool {
	if l.Empty() {
		return false
	}
	i := l.index(row)
	if i < 0 {
		return false
	}
	l.rows = append(l.rows[:i:i], l.rows[i+1:]...)
	if len(l.rows) == 0 {
		l.rows = append(l.rows, l.newRow())
	}
	l.commit()
	return true
}

// Empty reports whether the list holds exactly one blank row.
func (l *List[R]) Empty() bool {
	return len(l.rows) == 1 && l.rows[0].Blank()
}

func (l *List[R]) commit() {
	l.onUpdate(l.Rows())
}

func (l *List[R]) index(row R) int {
	for i, r := range l.rows {
		if Row(r) == Row(row) {
			return i
		}
	}
	return -1
}
