package tree

import (
	"strconv"
	"strings"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// Path is a target-side ancestor chain of surrogate ids, root first, not
// including the node itself. The target stores it comma-joined.
type Path []int64

// RootPath is the ancestor chain of a department directly under defaultRoot.
func RootPath(defaultRoot int64) Path {
	return Path{constants.TargetGlobalRootID, defaultRoot}
}

// Child returns the ancestor chain of a child of parentID, where p is the
// parent's own chain. p is not modified.
func (p Path) Child(parentID int64) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, parentID)
}

// String returns the comma-joined form.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParsePath parses a comma-joined chain. Empty input is an empty path.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}
	fields := strings.Split(s, ",")
	p := make(Path, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, errors.NewValidationError("ancestors", s, err.Error())
		}
		p = append(p, id)
	}
	return p, nil
}

// Equal reports whether two chains hold the same ids.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
