package reconcile

import (
	"context"

	"github.com/agentstation/orgsync/pkg/constants"
)

// Target is the administrative system being kept in sync. Each write is
// expected to be atomic on its own.
type Target interface {
	ListDepartments(ctx context.Context) ([]TargetDepartment, error)
	CreateDepartment(ctx context.Context, dept TargetDepartment) (int64, error)
	UpdateDepartment(ctx context.Context, id int64, dept TargetDepartment) error
	DisableDepartment(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]TargetUser, error)
	CreateUser(ctx context.Context, user TargetUser) (int64, error)
	UpdateUser(ctx context.Context, user TargetUser) error
	DisableUser(ctx context.Context, id int64) error
}

// CorrelationReporter is implemented by targets that can tell whether their
// schema carries the user correlation field. Targets that do not implement
// it are assumed to have one.
type CorrelationReporter interface {
	HasCorrelationField() bool
}

// TargetDepartment is a department row in the target.
type TargetDepartment struct {
	ID        int64  `json:"dept_id" db:"dept_id"`
	ParentID  int64  `json:"parent_id" db:"parent_id"`
	Ancestors string `json:"ancestors" db:"ancestors"`
	Name      string `json:"dept_name" db:"dept_name"`
	OrderNum  int    `json:"order_num" db:"order_num"`
	Level     int    `json:"level" db:"level"`
	Status    string `json:"status" db:"status"`
	DelFlag   string `json:"del_flag" db:"del_flag"`
	// CorrelationID is the source department id. Empty for rows the sync
	// did not create.
	CorrelationID string `json:"feishu_dept_id" db:"feishu_dept_id"`
}

// Disabled reports whether the row is soft-deleted or removed.
func (d TargetDepartment) Disabled() bool {
	return isDisabled(d.Status, d.DelFlag)
}

// TargetUser is a user row in the target.
type TargetUser struct {
	ID       int64   `json:"user_id" db:"user_id"`
	DeptID   int64   `json:"dept_id" db:"dept_id"`
	UserName string  `json:"user_name" db:"user_name"`
	NickName string  `json:"nick_name" db:"nick_name"`
	Email    string  `json:"email" db:"email"`
	Phone    string  `json:"phonenumber" db:"phonenumber"`
	Sex      string  `json:"sex" db:"sex"`
	Password string  `json:"-" db:"password"`
	Status   string  `json:"status" db:"status"`
	DelFlag  string  `json:"del_flag" db:"del_flag"`
	RoleIDs  []int64 `json:"role_ids,omitempty" db:"-"`
	// CorrelationKey is the correlation key of the source user. Empty for
	// accounts the sync did not create.
	CorrelationKey string `json:"feishu_uuid" db:"feishu_uuid"`
	// SecondaryID is the source platform open id.
	SecondaryID string `json:"feishu_open_id" db:"feishu_open_id"`
	UnionID     string `json:"feishu_union_id" db:"feishu_union_id"`
}

// Disabled reports whether the account is soft-deleted or removed.
func (u TargetUser) Disabled() bool {
	return isDisabled(u.Status, u.DelFlag)
}

func isDisabled(status, delFlag string) bool {
	if delFlag != "" && delFlag != constants.DelFlagPresent {
		return true
	}
	return status == constants.StatusDisabled
}
