// Package directory defines the organizational records extracted from the
// source directory: departments forming a tree under a root sentinel, and
// users belonging to one or more departments.
package directory

import (
	"fmt"
	"strings"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// RootID is the sentinel parent id of top-level departments.
const RootID = constants.RootDepartmentID

// Department is a source department.
type Department struct {
	ID          string `json:"dept_id" yaml:"dept_id"`
	Name        string `json:"dept_name" yaml:"dept_name"`
	ParentID    string `json:"parent_dept_id" yaml:"parent_dept_id"`
	ParentName  string `json:"parent_dept_name,omitempty" yaml:"parent_dept_name,omitempty"`
	Level       int    `json:"level" yaml:"level"`
	MemberCount int    `json:"member_count,omitempty" yaml:"member_count,omitempty"`
}

// IsTopLevel reports whether the department hangs directly off the root.
func (d Department) IsTopLevel() bool {
	return d.ParentID == "" || d.ParentID == RootID
}

// Validate checks the fields every department must carry.
func (d Department) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.NewValidationError("dept_id", d.ID, "cannot be empty")
	}
	if d.ID == RootID {
		return errors.NewValidationError("dept_id", d.ID, "collides with the root sentinel")
	}
	return nil
}

// UserStatus is the source account status.
type UserStatus string

// User statuses.
const (
	StatusActivated UserStatus = "activated"
	StatusFrozen    UserStatus = "frozen"
	StatusResigned  UserStatus = "resigned"
)

// Synchronized reports whether users with this status belong to the synchronized set.
func (s UserStatus) Synchronized() bool {
	return s != StatusFrozen && s != StatusResigned
}

// ParseUserStatus maps the source status flags to a UserStatus. Resignation wins over freezing.
func ParseUserStatus(frozen, resigned bool) UserStatus {
	switch {
	case resigned:
		return StatusResigned
	case frozen:
		return StatusFrozen
	default:
		return StatusActivated
	}
}

// User is a source user.
type User struct {
	ID             string     `json:"user_id" yaml:"user_id"`
	OpenID         string     `json:"open_id" yaml:"open_id"`
	UnionID        string     `json:"union_id" yaml:"union_id"`
	CorrelationKey string     `json:"uuid" yaml:"uuid"`
	Name           string     `json:"name" yaml:"name"`
	LoginHandle    string     `json:"pinyin" yaml:"pinyin"`
	Email          string     `json:"enterprise_email" yaml:"enterprise_email"`
	Mobile         string     `json:"mobile" yaml:"mobile"`
	EmployeeNo     string     `json:"employee_no" yaml:"employee_no"`
	JobTitle       string     `json:"job_title" yaml:"job_title"`
	Status         UserStatus `json:"status" yaml:"status"`
	DepartmentIDs  []string   `json:"department_ids" yaml:"department_ids"`
	// DepartmentNames parallels DepartmentIDs; informational only.
	DepartmentNames []string `json:"department_names,omitempty" yaml:"department_names,omitempty"`
}

// PrimaryDepartment returns the first department id, or "" when the user has none.
func (u User) PrimaryDepartment() string {
	if len(u.DepartmentIDs) == 0 {
		return ""
	}
	return u.DepartmentIDs[0]
}

// String implements fmt.Stringer for log lines.
func (u User) String() string {
	return fmt.Sprintf("%s(%s)", u.Name, u.ID)
}

// Validate checks the fields every user must carry.
func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.NewValidationError("user_id", u.ID, "cannot be empty")
	}
	return nil
}

// Synchronized filters users down to those whose status is synchronized.
func Synchronized(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.Status.Synchronized() {
			out = append(out, u)
		}
	}
	return out
}

// Snapshot is one extraction of the source directory.
type Snapshot struct {
	Departments []Department `json:"departments" yaml:"departments"`
	Users       []User       `json:"users" yaml:"users"`
}

// DepartmentNames indexes department names by id.
func (s *Snapshot) DepartmentNames() map[string]string {
	names := make(map[string]string, len(s.Departments))
	for _, d := range s.Departments {
		names[d.ID] = d.Name
	}
	return names
}
