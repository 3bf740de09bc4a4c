// Package differ describes the changes a reconciliation pass makes to the
// target directory and detects field drift between a target record and its
// desired state.
package differ

import (
	"fmt"
	"io"
	"strings"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeCreate indicates a record was created.
	ChangeTypeCreate ChangeType = "create"
	// ChangeTypeUpdate indicates a record was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeDisable indicates a record was soft-deleted.
	ChangeTypeDisable ChangeType = "disable"
	// ChangeTypeFailed indicates a write that did not succeed.
	ChangeTypeFailed ChangeType = "failed"
)

// Entity names the kind of record a change applies to.
type Entity string

// Entities.
const (
	EntityDepartment Entity = "department"
	EntityUser       Entity = "user"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string `json:"field" yaml:"field"`
	OldValue string `json:"old" yaml:"old"`
	NewValue string `json:"new" yaml:"new"`
}

// String renders "field: old → new".
func (f FieldChange) String() string {
	return fmt.Sprintf("%s: %s → %s", f.Path, f.OldValue, f.NewValue)
}

// Change is one create, update, disable, or failed write.
type Change struct {
	Type     ChangeType    `json:"type" yaml:"type"`
	Entity   Entity        `json:"entity" yaml:"entity"`
	SourceID string        `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	TargetID int64         `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Name     string        `json:"name" yaml:"name"`
	Handle   string        `json:"handle,omitempty" yaml:"handle,omitempty"`
	Changes  []FieldChange `json:"changes,omitempty" yaml:"changes,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Describe returns the comma-joined field changes.
func (c Change) Describe() string {
	parts := make([]string, len(c.Changes))
	for i, fc := range c.Changes {
		parts[i] = fc.String()
	}
	return strings.Join(parts, ", ")
}

// Label returns the display name with the handle when there is one.
func (c Change) Label() string {
	if c.Handle != "" && c.Handle != c.Name {
		return fmt.Sprintf("%s (%s)", c.Name, c.Handle)
	}
	return c.Name
}

// Changeset groups the changes of one entity kind.
type Changeset struct {
	Created  []Change `json:"created" yaml:"created"`
	Updated  []Change `json:"updated" yaml:"updated"`
	Disabled []Change `json:"disabled" yaml:"disabled"`
	Failed   []Change `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Record appends c to the list matching its type.
func (cs *Changeset) Record(c Change) {
	switch c.Type {
	case ChangeTypeCreate:
		cs.Created = append(cs.Created, c)
	case ChangeTypeUpdate:
		cs.Updated = append(cs.Updated, c)
	case ChangeTypeDisable:
		cs.Disabled = append(cs.Disabled, c)
	case ChangeTypeFailed:
		cs.Failed = append(cs.Failed, c)
	}
}

// HasChanges returns true if anything was created, updated, or disabled.
func (cs *Changeset) HasChanges() bool {
	return len(cs.Created) > 0 || len(cs.Updated) > 0 || len(cs.Disabled) > 0
}

// Total returns the number of successful changes.
func (cs *Changeset) Total() int {
	return len(cs.Created) + len(cs.Updated) + len(cs.Disabled)
}

// Summary returns e.g. "2 created, 1 updated".
func (cs *Changeset) Summary() string {
	var parts []string
	if n := len(cs.Created); n > 0 {
		parts = append(parts, fmt.Sprintf("%d created", n))
	}
	if n := len(cs.Updated); n > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", n))
	}
	if n := len(cs.Disabled); n > 0 {
		parts = append(parts, fmt.Sprintf("%d disabled", n))
	}
	if n := len(cs.Failed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// Print writes a detailed, human-readable view of the changeset.
func (cs *Changeset) Print(w io.Writer, title string) {
	fmt.Fprintf(w, "%s: %s\n", title, cs.Summary())

	if len(cs.Created) > 0 {
		fmt.Fprintf(w, "\n➕ Created (%d):\n", len(cs.Created))
		for _, c := range cs.Created {
			fmt.Fprintf(w, "  • %s\n", c.Label())
		}
	}

	if len(cs.Updated) > 0 {
		fmt.Fprintf(w, "\n🔄 Updated (%d):\n", len(cs.Updated))
		for _, c := range cs.Updated {
			fmt.Fprintf(w, "  • %s:\n", c.Label())
			for _, fc := range c.Changes {
				fmt.Fprintf(w, "    - %s\n", fc)
			}
		}
	}

	if len(cs.Disabled) > 0 {
		fmt.Fprintf(w, "\n⚠️  Disabled (%d):\n", len(cs.Disabled))
		for _, c := range cs.Disabled {
			fmt.Fprintf(w, "  • %s\n", c.Label())
		}
	}

	if len(cs.Failed) > 0 {
		fmt.Fprintf(w, "\n❌ Failed (%d):\n", len(cs.Failed))
		for _, c := range cs.Failed {
			fmt.Fprintf(w, "  • %s: %s\n", c.Label(), c.Error)
		}
	}
}
