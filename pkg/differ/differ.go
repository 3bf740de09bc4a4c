package differ

import (
	"strconv"
)

// Differ detects drift between the current and desired values of a record.
type Differ interface {
	// Fields returns the changes among the given comparisons, skipping
	// ignored fields and fields whose values are equal.
	Fields(fields ...Field) []FieldChange
}

// Field is one comparison of a current value against a desired one.
type Field struct {
	Path    string
	Current string
	Desired string
}

// String compares two string values.
func String(path, current, desired string) Field {
	return Field{Path: path, Current: current, Desired: desired}
}

// Int compares two integer values.
func Int(path string, current, desired int64) Field {
	return Field{Path: path, Current: strconv.FormatInt(current, 10), Desired: strconv.FormatInt(desired, 10)}
}

// Present flags a value that must be non-empty. The desired side reads "set".
func Present(path, current string) Field {
	if current != "" {
		return Field{Path: path, Current: current, Desired: current}
	}
	return Field{Path: path, Current: "", Desired: "set"}
}

type differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ.
func New(opts ...Option) Differ {
	d := &differ{ignoreFields: make(map[string]bool)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fields implements Differ.
func (d *differ) Fields(fields ...Field) []FieldChange {
	var changes []FieldChange
	for _, f := range fields {
		if d.ignoreFields[f.Path] || f.Current == f.Desired {
			continue
		}
		changes = append(changes, FieldChange{Path: f.Path, OldValue: f.Current, NewValue: f.Desired})
	}
	return changes
}
