package ruoyidb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Target, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	target := New(sqlx.NewDb(db, "mysql"))
	target.now = func() time.Time { return fixedNow }
	return target, mock
}

func TestListDepartments(t *testing.T) {
	target, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"dept_id", "parent_id", "ancestors", "dept_name", "order_num", "level", "status", "del_flag", "feishu_dept_id"}).
		AddRow(100, 0, "0", "Acme", 0, 0, "0", "0", "").
		AddRow(201, 100, "0,100", "Engineering", 0, 1, "1", "0", "od-eng")
	mock.ExpectQuery("FROM sys_dept WHERE del_flag = '0'").WillReturnRows(rows)

	depts, err := target.ListDepartments(context.Background())
	require.NoError(t, err)
	require.Len(t, depts, 2)
	assert.Equal(t, "od-eng", depts[1].CorrelationID)
	assert.Equal(t, "0,100", depts[1].Ancestors)
	assert.True(t, depts[1].Disabled())
	assert.False(t, depts[0].Disabled())
}

func TestCreateDepartment(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectExec("INSERT INTO sys_dept").
		WithArgs(int64(100), "0,100", "Engineering", 0, 1, "od-eng", "0", "feishu_sync", fixedNow).
		WillReturnResult(sqlmock.NewResult(201, 1))

	id, err := target.CreateDepartment(context.Background(), reconcile.TargetDepartment{
		ParentID: 100, Ancestors: "0,100", Name: "Engineering", Level: 1, CorrelationID: "od-eng",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(201), id)
}

func TestUpdateDepartmentNotFound(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectExec("UPDATE sys_dept SET dept_name").
		WithArgs("Eng", int64(100), "0,100", 1, "0", "feishu_sync", fixedNow, int64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := target.UpdateDepartment(context.Background(), 999, reconcile.TargetDepartment{
		ParentID: 100, Ancestors: "0,100", Name: "Eng", Level: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDisable(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectExec("UPDATE sys_dept SET status = '1'").
		WithArgs("feishu_sync", fixedNow, int64(201)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sys_user SET status = '1'").
		WithArgs("feishu_sync", fixedNow, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, target.DisableDepartment(context.Background(), 201))
	require.NoError(t, target.DisableUser(context.Background(), 7))
}

func TestCreateUserGrantsRoleInTransaction(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sys_user \\(.*feishu_uuid\\)").
		WithArgs(int64(201), "san.zhang", "张三", "zhang.san@example.com", "", "0", "hash", "0", "feishu_sync", fixedNow, "ou-1", "on-1", "key-1").
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectExec("INSERT INTO sys_user_role").
		WithArgs(int64(31), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := target.CreateUser(context.Background(), reconcile.TargetUser{
		DeptID: 201, UserName: "san.zhang", NickName: "张三", Email: "zhang.san@example.com",
		Sex: "0", Password: "hash", RoleIDs: []int64{2},
		CorrelationKey: "key-1", SecondaryID: "ou-1", UnionID: "on-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
}

func TestCreateUserRollsBack(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sys_user ").WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectExec("INSERT INTO sys_user_role").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := target.CreateUser(context.Background(), reconcile.TargetUser{UserName: "san.zhang", RoleIDs: []int64{2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUpdateUserKeepsStoredKey(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectExec("UPDATE sys_user SET .*feishu_uuid = IF\\(").
		WithArgs(int64(201), "张三", "new@example.com", "", "0", "0", "ou-1", "on-1", "key-1", "feishu_sync", fixedNow, int64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := target.UpdateUser(context.Background(), reconcile.TargetUser{
		ID: 31, DeptID: 201, NickName: "张三", Email: "new@example.com", Sex: "0",
		CorrelationKey: "key-1", SecondaryID: "ou-1", UnionID: "on-1",
	})
	require.NoError(t, err)
}

func TestSchemaWithoutCorrelation(t *testing.T) {
	target, mock := newMock(t)
	mock.ExpectQuery("information_schema.COLUMNS").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("'' AS feishu_uuid").WillReturnRows(
		sqlmock.NewRows([]string{"user_id", "dept_id", "user_name", "nick_name", "email", "phonenumber", "sex", "status", "del_flag", "feishu_uuid", "feishu_open_id", "feishu_union_id"}).
			AddRow(1, 100, "admin", "Admin", "", "", "0", "0", "0", "", "", ""))

	require.NoError(t, target.DetectSchema(context.Background()))
	assert.False(t, target.HasCorrelationField())

	users, err := target.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].UserName)
}

func TestConfig(t *testing.T) {
	err := Config{User: "root", Name: "ry"}.Validate()
	assert.True(t, errors.IsCredentialsError(err))
	require.NoError(t, Config{Host: "db", User: "root", Name: "ry"}.Validate())

	dsn := Config{Host: "db", User: "root", Password: "pw", Name: "ry"}.DSN()
	assert.True(t, strings.HasPrefix(dsn, "root:pw@tcp(db:3306)/ry?"), dsn)
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestResolvePassword(t *testing.T) {
	hash, err := ResolvePassword("", "")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("123456")))

	given, err := HashPassword("s3cret")
	require.NoError(t, err)
	got, err := ResolvePassword(given, "ignored")
	require.NoError(t, err)
	assert.Equal(t, given, got)

	_, err = ResolvePassword("plaintext", "")
	assert.True(t, errors.IsValidationError(err))
}
