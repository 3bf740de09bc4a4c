// Package tree materializes the department hierarchy from flat parent
// pointers: effective parents, levels, and a top-down visiting order.
package tree

import (
	"sort"

	"github.com/agentstation/orgsync/pkg/directory"
)

// Forest is the resolved department hierarchy of one extraction. It is
// immutable after Materialize and scoped to a single run.
type Forest struct {
	depts    []directory.Department
	index    map[string]int
	parent   []string
	level    []int
	children map[string][]int

	// Reattached lists, in ascending id order, the departments whose parent
	// was missing, themselves, or on a cycle and that now hang off the root.
	Reattached []string
	// Duplicates counts records dropped because their id was already seen.
	Duplicates int
}

// Materialize resolves the hierarchy without recursion. Records carrying the
// root sentinel id are skipped. Departments whose parent is missing, is
// themselves, or lies on a cycle are attached to the root in ascending id
// order and their subtrees resolved from there.
func Materialize(depts []directory.Department) *Forest {
	f := &Forest{
		index:    make(map[string]int, len(depts)),
		children: make(map[string][]int),
	}
	for _, d := range depts {
		if d.ID == "" || d.ID == directory.RootID {
			continue
		}
		if _, dup := f.index[d.ID]; dup {
			f.Duplicates++
			continue
		}
		f.index[d.ID] = len(f.depts)
		f.depts = append(f.depts, d)
	}

	n := len(f.depts)
	f.parent = make([]string, n)
	f.level = make([]int, n)
	for i, d := range f.depts {
		p := d.ParentID
		if d.IsTopLevel() {
			p = directory.RootID
		}
		if _, ok := f.index[p]; p != directory.RootID && (!ok || p == d.ID) {
			p = directory.RootID
			f.Reattached = append(f.Reattached, d.ID)
		}
		f.parent[i] = p
		f.children[p] = append(f.children[p], i)
	}

	visited := make([]bool, n)
	f.walk(f.children[directory.RootID], 1, visited)

	var orphans []int
	for i := range f.depts {
		if !visited[i] {
			orphans = append(orphans, i)
		}
	}
	sort.Slice(orphans, func(a, b int) bool {
		return f.depts[orphans[a]].ID < f.depts[orphans[b]].ID
	})
	for _, i := range orphans {
		if visited[i] {
			continue
		}
		f.parent[i] = directory.RootID
		f.Reattached = append(f.Reattached, f.depts[i].ID)
		f.walk([]int{i}, 1, visited)
	}
	sort.Strings(f.Reattached)
	return f
}

// walk assigns levels breadth-first from the given starting nodes.
func (f *Forest) walk(start []int, level int, visited []bool) {
	queue := make([]int, 0, len(start))
	for _, i := range start {
		if !visited[i] {
			visited[i] = true
			f.level[i] = level
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, c := range f.children[f.depts[i].ID] {
			if visited[c] {
				continue
			}
			visited[c] = true
			f.level[c] = f.level[i] + 1
			queue = append(queue, c)
		}
	}
}

// Len returns the number of distinct departments.
func (f *Forest) Len() int {
	return len(f.depts)
}

// Contains reports whether id is a known department.
func (f *Forest) Contains(id string) bool {
	_, ok := f.index[id]
	return ok
}

// Level returns the distance from the root: 0 for the root sentinel and for
// unknown ids, 1 for top-level departments.
func (f *Forest) Level(id string) int {
	if i, ok := f.index[id]; ok {
		return f.level[i]
	}
	return 0
}

// Parent returns the effective parent id after re-attachment.
func (f *Forest) Parent(id string) string {
	if i, ok := f.index[id]; ok {
		return f.parent[i]
	}
	return directory.RootID
}

// Ordered returns the departments in non-decreasing level, stable by input
// order within a level. Level and ParentID carry the resolved values.
func (f *Forest) Ordered() []directory.Department {
	order := make([]int, len(f.depts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return f.level[order[a]] < f.level[order[b]]
	})

	out := make([]directory.Department, len(order))
	for k, i := range order {
		d := f.depts[i]
		d.Level = f.level[i]
		d.ParentID = f.parent[i]
		out[k] = d
	}
	return out
}
