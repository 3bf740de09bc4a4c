package reconcile

import (
	"context"
	"fmt"

	"github.com/agentstation/orgsync/pkg/constants"
)

// fakeTarget is an in-memory Target that applies writes and records calls.
type fakeTarget struct {
	depts  []TargetDepartment
	users  []TargetUser
	nextID int64
	calls  []string

	failCreate  map[string]bool // by department or user name
	noCorrField bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		nextID:     200,
		failCreate: make(map[string]bool),
	}
}

func (f *fakeTarget) HasCorrelationField() bool {
	return !f.noCorrField
}

func (f *fakeTarget) ListDepartments(context.Context) ([]TargetDepartment, error) {
	out := make([]TargetDepartment, len(f.depts))
	copy(out, f.depts)
	return out, nil
}

func (f *fakeTarget) CreateDepartment(_ context.Context, d TargetDepartment) (int64, error) {
	f.calls = append(f.calls, "create_dept:"+d.Name)
	if f.failCreate[d.Name] {
		return 0, fmt.Errorf("duplicate dept_name %s", d.Name)
	}
	f.nextID++
	d.ID = f.nextID
	f.depts = append(f.depts, d)
	return d.ID, nil
}

func (f *fakeTarget) UpdateDepartment(_ context.Context, id int64, d TargetDepartment) error {
	f.calls = append(f.calls, "update_dept:"+d.Name)
	for i := range f.depts {
		if f.depts[i].ID == id {
			corr := f.depts[i].CorrelationID
			d.ID = id
			d.CorrelationID = corr
			f.depts[i] = d
			return nil
		}
	}
	return fmt.Errorf("dept %d not found", id)
}

func (f *fakeTarget) DisableDepartment(_ context.Context, id int64) error {
	f.calls = append(f.calls, fmt.Sprintf("disable_dept:%d", id))
	for i := range f.depts {
		if f.depts[i].ID == id {
			f.depts[i].Status = constants.StatusDisabled
		}
	}
	return nil
}

func (f *fakeTarget) ListUsers(context.Context) ([]TargetUser, error) {
	out := make([]TargetUser, len(f.users))
	copy(out, f.users)
	return out, nil
}

func (f *fakeTarget) CreateUser(_ context.Context, u TargetUser) (int64, error) {
	f.calls = append(f.calls, "create_user:"+u.UserName)
	if f.failCreate[u.NickName] {
		return 0, fmt.Errorf("duplicate user_name %s", u.UserName)
	}
	f.nextID++
	u.ID = f.nextID
	if f.noCorrField {
		u.CorrelationKey = ""
	}
	f.users = append(f.users, u)
	return u.ID, nil
}

func (f *fakeTarget) UpdateUser(_ context.Context, u TargetUser) error {
	f.calls = append(f.calls, "update_user:"+u.UserName)
	for i := range f.users {
		if f.users[i].ID == u.ID {
			if f.noCorrField {
				u.CorrelationKey = ""
			}
			f.users[i] = u
			return nil
		}
	}
	return fmt.Errorf("user %d not found", u.ID)
}

func (f *fakeTarget) DisableUser(_ context.Context, id int64) error {
	f.calls = append(f.calls, fmt.Sprintf("disable_user:%d", id))
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].Status = constants.StatusDisabled
		}
	}
	return nil
}

func (f *fakeTarget) clone() *fakeTarget {
	c := newFakeTarget()
	c.depts = append(c.depts, f.depts...)
	c.users = append(c.users, f.users...)
	c.nextID = f.nextID
	c.noCorrField = f.noCorrField
	for k, v := range f.failCreate {
		c.failCreate[k] = v
	}
	return c
}

func (f *fakeTarget) dept(corr string) (TargetDepartment, bool) {
	for _, d := range f.depts {
		if d.CorrelationID == corr {
			return d, true
		}
	}
	return TargetDepartment{}, false
}
