// Package ruoyidb writes the directory straight into the RuoYi schema over
// MySQL. Every write is its own transaction; a new user and its role grant
// commit together.
package ruoyidb

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

var (
	_ reconcile.Target              = (*Target)(nil)
	_ reconcile.CorrelationReporter = (*Target)(nil)
)

const (
	listDepartmentsSQL = `SELECT dept_id, parent_id, IFNULL(ancestors, '') AS ancestors, dept_name,
	IFNULL(order_num, 0) AS order_num, IFNULL(level, 0) AS level, status, del_flag,
	IFNULL(feishu_dept_id, '') AS feishu_dept_id
FROM sys_dept WHERE del_flag = '0'`

	insertDepartmentSQL = `INSERT INTO sys_dept (parent_id, ancestors, dept_name, order_num, level, feishu_dept_id,
	leader, phone, email, status, del_flag, create_by, create_time)
VALUES (?, ?, ?, ?, ?, ?, '', '', '', ?, '0', ?, ?)`

	updateDepartmentSQL = `UPDATE sys_dept SET dept_name = ?, parent_id = ?, ancestors = ?, level = ?, status = ?,
	update_by = ?, update_time = ? WHERE dept_id = ?`

	disableDepartmentSQL = `UPDATE sys_dept SET status = '1', update_by = ?, update_time = ? WHERE dept_id = ?`

	insertUserRoleSQL = `INSERT INTO sys_user_role (user_id, role_id) VALUES (?, ?)`

	disableUserSQL = `UPDATE sys_user SET status = '1', update_by = ?, update_time = ? WHERE user_id = ?`

	correlationColumnSQL = `SELECT COUNT(*) FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'sys_user' AND COLUMN_NAME = 'feishu_uuid'`
)

// Target implements reconcile.Target on the RuoYi tables.
type Target struct {
	db             *sqlx.DB
	now            func() time.Time
	hasCorrelation bool
}

// Open connects to the database and detects whether sys_user carries the
// correlation column.
func Open(ctx context.Context, cfg Config) (*Target, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, errors.NewConfigError("ruoyidb", "invalid connection settings", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapTransient(errors.WrapResource("connect", "database", cfg.Host, err))
	}

	t := New(db)
	if err := t.DetectSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// New wraps an open connection. The correlation column is assumed present
// until DetectSchema says otherwise.
func New(db *sqlx.DB) *Target {
	return &Target{db: db, now: time.Now, hasCorrelation: true}
}

// Close closes the connection pool.
func (t *Target) Close() error {
	return t.db.Close()
}

// DetectSchema checks for the sys_user correlation column.
func (t *Target) DetectSchema(ctx context.Context) error {
	var n int
	if err := t.db.GetContext(ctx, &n, correlationColumnSQL); err != nil {
		return errors.WrapResource("inspect", "schema", "sys_user", err)
	}
	t.hasCorrelation = n > 0
	if !t.hasCorrelation {
		logging.FromContext(ctx).Warn().Msg("sys_user has no feishu_uuid column, users will be matched by login handle")
	}
	return nil
}

// HasCorrelationField implements reconcile.CorrelationReporter.
func (t *Target) HasCorrelationField() bool {
	return t.hasCorrelation
}

// ListDepartments returns every department that was not hard-deleted.
func (t *Target) ListDepartments(ctx context.Context) ([]reconcile.TargetDepartment, error) {
	var depts []reconcile.TargetDepartment
	if err := t.db.SelectContext(ctx, &depts, listDepartmentsSQL); err != nil {
		return nil, errors.WrapResource("list", "departments", "", err)
	}
	return depts, nil
}

// CreateDepartment inserts a department and returns its id.
func (t *Target) CreateDepartment(ctx context.Context, d reconcile.TargetDepartment) (int64, error) {
	res, err := t.db.ExecContext(ctx, insertDepartmentSQL,
		d.ParentID, d.Ancestors, d.Name, d.OrderNum, d.Level, d.CorrelationID,
		status(d.Status), constants.SyncOperator, t.now())
	if err != nil {
		return 0, errors.WrapResource("create", "department", d.CorrelationID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.WrapResource("create", "department", d.CorrelationID, err)
	}
	return id, nil
}

// UpdateDepartment rewrites the mirrored fields. The correlation id is left alone.
func (t *Target) UpdateDepartment(ctx context.Context, id int64, d reconcile.TargetDepartment) error {
	res, err := t.db.ExecContext(ctx, updateDepartmentSQL,
		d.Name, d.ParentID, d.Ancestors, d.Level, status(d.Status),
		constants.SyncOperator, t.now(), id)
	return affected(res, err, "update", "department", id)
}

// DisableDepartment soft-deletes a department.
func (t *Target) DisableDepartment(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, disableDepartmentSQL, constants.SyncOperator, t.now(), id)
	return affected(res, err, "disable", "department", id)
}

// ListUsers returns every account that was not hard-deleted.
func (t *Target) ListUsers(ctx context.Context) ([]reconcile.TargetUser, error) {
	key := "IFNULL(feishu_uuid, '')"
	if !t.hasCorrelation {
		key = "''"
	}
	query := `SELECT user_id, IFNULL(dept_id, 0) AS dept_id, user_name, nick_name, IFNULL(email, '') AS email,
	IFNULL(phonenumber, '') AS phonenumber, IFNULL(sex, '') AS sex, status, del_flag,
	` + key + ` AS feishu_uuid, IFNULL(feishu_open_id, '') AS feishu_open_id,
	IFNULL(feishu_union_id, '') AS feishu_union_id
FROM sys_user WHERE del_flag = '0'`

	var users []reconcile.TargetUser
	if err := t.db.SelectContext(ctx, &users, query); err != nil {
		return nil, errors.WrapResource("list", "users", "", err)
	}
	return users, nil
}

// CreateUser inserts an account and its role grants in one transaction.
func (t *Target) CreateUser(ctx context.Context, u reconcile.TargetUser) (id int64, err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.WrapResource("create", "user", u.UserName, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cols := "dept_id, user_name, nick_name, user_type, email, phonenumber, sex, password, status, del_flag, create_by, create_time, feishu_open_id, feishu_union_id"
	marks := "?, ?, ?, '00', ?, ?, ?, ?, ?, '0', ?, ?, ?, ?"
	args := []any{
		u.DeptID, u.UserName, u.NickName, u.Email, u.Phone, u.Sex, u.Password,
		status(u.Status), constants.SyncOperator, t.now(), u.SecondaryID, u.UnionID,
	}
	if t.hasCorrelation {
		cols += ", feishu_uuid"
		marks += ", ?"
		args = append(args, u.CorrelationKey)
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO sys_user ("+cols+") VALUES ("+marks+")", args...)
	if err != nil {
		return 0, errors.WrapResource("create", "user", u.UserName, err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, errors.WrapResource("create", "user", u.UserName, err)
	}
	for _, role := range u.RoleIDs {
		if _, err = tx.ExecContext(ctx, insertUserRoleSQL, id, role); err != nil {
			return 0, errors.WrapResource("grant", "role", strconv.FormatInt(role, 10), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.WrapResource("create", "user", u.UserName, err)
	}
	return id, nil
}

// UpdateUser rewrites the mirrored fields. A stored correlation key is never replaced.
func (t *Target) UpdateUser(ctx context.Context, u reconcile.TargetUser) error {
	set := "dept_id = ?, nick_name = ?, email = ?, phonenumber = ?, sex = ?, status = ?, feishu_open_id = ?, feishu_union_id = ?"
	args := []any{u.DeptID, u.NickName, u.Email, u.Phone, u.Sex, status(u.Status), u.SecondaryID, u.UnionID}
	if t.hasCorrelation {
		set += ", feishu_uuid = IF(feishu_uuid IS NULL OR feishu_uuid = '', ?, feishu_uuid)"
		args = append(args, u.CorrelationKey)
	}
	set += ", update_by = ?, update_time = ?"
	args = append(args, constants.SyncOperator, t.now(), u.ID)

	res, err := t.db.ExecContext(ctx, "UPDATE sys_user SET "+set+" WHERE user_id = ?", args...)
	return affected(res, err, "update", "user", u.ID)
}

// DisableUser soft-deletes an account.
func (t *Target) DisableUser(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, disableUserSQL, constants.SyncOperator, t.now(), id)
	return affected(res, err, "disable", "user", id)
}

func affected(res sql.Result, err error, op, resource string, id int64) error {
	sid := strconv.FormatInt(id, 10)
	if err != nil {
		return errors.WrapResource(op, resource, sid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WrapResource(op, resource, sid, err)
	}
	if n == 0 {
		return errors.NewNotFoundError(resource, sid)
	}
	return nil
}

func status(s string) string {
	if s == "" {
		return constants.StatusActive
	}
	return s
}
