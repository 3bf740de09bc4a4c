package reconcile

import "sort"

// Mapping is the bidirectional source id ↔ target id mapping of departments
// built during one run.
type Mapping struct {
	toTarget map[string]int64
	toSource map[int64]string
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		toTarget: make(map[string]int64),
		toSource: make(map[int64]string),
	}
}

// Add records that source department src is target department tgt.
func (m *Mapping) Add(src string, tgt int64) {
	m.toTarget[src] = tgt
	m.toSource[tgt] = src
}

// Target returns the target id of a source department.
func (m *Mapping) Target(src string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.toTarget[src]
	return id, ok
}

// TargetOr returns the target id of src, or def when src is unmapped.
func (m *Mapping) TargetOr(src string, def int64) int64 {
	if id, ok := m.Target(src); ok {
		return id
	}
	return def
}

// Source returns the source id of a target department.
func (m *Mapping) Source(tgt int64) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.toSource[tgt]
	return id, ok
}

// Len returns the number of mapped departments.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.toTarget)
}

// SourceIDs returns the mapped source ids in ascending order.
func (m *Mapping) SourceIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(m.toTarget))
	for id := range m.toTarget {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
