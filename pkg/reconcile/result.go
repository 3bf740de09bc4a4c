package reconcile

import "github.com/agentstation/orgsync/pkg/differ"

// DepartmentResult is the outcome of the department phase.
type DepartmentResult struct {
	Mapping  *Mapping         `json:"-" yaml:"-"`
	Created  int              `json:"created" yaml:"created"`
	Updated  int              `json:"updated" yaml:"updated"`
	Disabled int              `json:"disabled" yaml:"disabled"`
	Failed   int              `json:"failed" yaml:"failed"`
	Changes  differ.Changeset `json:"changes" yaml:"changes"`
	// Reattached lists source departments whose parent did not resolve.
	Reattached []string `json:"reattached,omitempty" yaml:"reattached,omitempty"`
}

// HasChanges reports whether any department was created, updated, or disabled.
func (r *DepartmentResult) HasChanges() bool {
	return r != nil && r.Changes.HasChanges()
}

func (r *DepartmentResult) record(c differ.Change) {
	r.Changes.Record(c)
	r.Created = len(r.Changes.Created)
	r.Updated = len(r.Changes.Updated)
	r.Disabled = len(r.Changes.Disabled)
	r.Failed = len(r.Changes.Failed)
}

// UserResult is the outcome of the user phase.
type UserResult struct {
	Created  int              `json:"created" yaml:"created"`
	Updated  int              `json:"updated" yaml:"updated"`
	Disabled int              `json:"disabled" yaml:"disabled"`
	Skipped  int              `json:"skipped" yaml:"skipped"`
	Failed   int              `json:"failed" yaml:"failed"`
	Changes  differ.Changeset `json:"changes" yaml:"changes"`
}

// HasChanges reports whether any user was created, updated, or disabled.
func (r *UserResult) HasChanges() bool {
	return r != nil && r.Changes.HasChanges()
}

func (r *UserResult) record(c differ.Change) {
	r.Changes.Record(c)
	r.Created = len(r.Changes.Created)
	r.Updated = len(r.Changes.Updated)
	r.Disabled = len(r.Changes.Disabled)
	r.Failed = len(r.Changes.Failed)
}
