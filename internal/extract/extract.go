// Package extract persists source snapshots as the two CSV files operators
// inspect between a fetch and a sync. Files are UTF-8 with a byte order mark
// so spreadsheet tools detect the encoding.
package extract

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// listSep joins multi-valued cells.
const listSep = ";"

var (
	departmentHeader = []string{"dept_id", "dept_name", "parent_dept_id", "parent_dept_name", "level"}
	userHeader       = []string{
		"user_id", "open_id", "union_id", "uuid", "name", "pinyin",
		"enterprise_email", "mobile", "employee_no", "job_title", "status",
		"dept_id", "dept_name", "department_ids", "department_names",
	}
)

// Store reads and writes the extract files in one directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. An empty dir uses the default output directory.
func New(dir string) *Store {
	if dir == "" {
		dir = constants.DefaultOutputDir
	}
	return &Store{dir: dir}
}

// Dir returns the extract directory.
func (s *Store) Dir() string { return s.dir }

// DepartmentsPath returns the department extract path.
func (s *Store) DepartmentsPath() string { return filepath.Join(s.dir, constants.DepartmentsFile) }

// UsersPath returns the user extract path.
func (s *Store) UsersPath() string { return filepath.Join(s.dir, constants.UsersFile) }

// Exists reports whether both extract files are present.
func (s *Store) Exists() bool {
	for _, p := range []string{s.DepartmentsPath(), s.UsersPath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Remove deletes both extract files. Missing files are not an error.
func (s *Store) Remove() error {
	for _, p := range []string{s.DepartmentsPath(), s.UsersPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.WrapIO("remove", p, err)
		}
	}
	return nil
}

// Write replaces both extract files with the snapshot.
func (s *Store) Write(snap *directory.Snapshot) error {
	if err := os.MkdirAll(s.dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", s.dir, err)
	}

	names := snap.DepartmentNames()
	deptRows := make([][]string, 0, len(snap.Departments))
	for _, d := range snap.Departments {
		parentName := d.ParentName
		if parentName == "" {
			parentName = names[d.ParentID]
		}
		deptRows = append(deptRows, []string{d.ID, d.Name, d.ParentID, parentName, strconv.Itoa(d.Level)})
	}
	if err := writeFile(s.DepartmentsPath(), departmentHeader, deptRows); err != nil {
		return s.discard(err)
	}

	userRows := make([][]string, 0, len(snap.Users))
	for _, u := range snap.Users {
		deptNames := u.DepartmentNames
		if len(deptNames) != len(u.DepartmentIDs) {
			deptNames = make([]string, len(u.DepartmentIDs))
			for i, id := range u.DepartmentIDs {
				deptNames[i] = names[id]
			}
		}
		primary := u.PrimaryDepartment()
		userRows = append(userRows, []string{
			u.ID, u.OpenID, u.UnionID, u.CorrelationKey, u.Name, u.LoginHandle,
			u.Email, u.Mobile, u.EmployeeNo, u.JobTitle, string(u.Status),
			primary, names[primary],
			strings.Join(u.DepartmentIDs, listSep), strings.Join(deptNames, listSep),
		})
	}
	if err := writeFile(s.UsersPath(), userHeader, userRows); err != nil {
		return s.discard(err)
	}
	return nil
}

// discard removes both files after a failed write so a later Load never
// pairs new departments with stale users.
func (s *Store) discard(err error) error {
	if rmErr := s.Remove(); rmErr != nil {
		logging.Warn().Err(rmErr).Str("dir", s.dir).Msg("Failed to remove partial extracts")
	}
	return err
}

// Load reads both extract files.
func (s *Store) Load() (*directory.Snapshot, error) {
	deptRows, err := readFile(s.DepartmentsPath(), departmentHeader)
	if err != nil {
		return nil, err
	}
	userRows, err := readFile(s.UsersPath(), userHeader)
	if err != nil {
		return nil, err
	}

	snap := &directory.Snapshot{
		Departments: make([]directory.Department, 0, len(deptRows)),
		Users:       make([]directory.User, 0, len(userRows)),
	}
	for i, r := range deptRows {
		level, err := strconv.Atoi(r["level"])
		if err != nil && r["level"] != "" {
			return nil, &errors.ParseError{Format: "csv", File: s.DepartmentsPath(), Line: i + 2, Message: "invalid level", Err: err}
		}
		snap.Departments = append(snap.Departments, directory.Department{
			ID:         r["dept_id"],
			Name:       r["dept_name"],
			ParentID:   r["parent_dept_id"],
			ParentName: r["parent_dept_name"],
			Level:      level,
		})
	}
	for _, r := range userRows {
		status := directory.UserStatus(r["status"])
		if status == "" {
			status = directory.StatusActivated
		}
		snap.Users = append(snap.Users, directory.User{
			ID:              r["user_id"],
			OpenID:          r["open_id"],
			UnionID:         r["union_id"],
			CorrelationKey:  r["uuid"],
			Name:            r["name"],
			LoginHandle:     r["pinyin"],
			Email:           r["enterprise_email"],
			Mobile:          r["mobile"],
			EmployeeNo:      r["employee_no"],
			JobTitle:        r["job_title"],
			Status:          status,
			DepartmentIDs:   splitList(r["department_ids"]),
			DepartmentNames: splitList(r["department_names"]),
		})
	}
	return snap, nil
}

func writeFile(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	bom := transform.NewWriter(tmp, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(bom)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := bom.Close(); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

func readFile(path string, want []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("extract", path)
		}
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &errors.ParseError{Format: "csv", File: path, Message: "empty file: no header row found"}
		}
		return nil, errors.WrapParse("csv", path, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[want[0]]; !ok {
		return nil, &errors.ParseError{Format: "csv", File: path, Line: 1, Message: "missing column " + want[0]}
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.WrapParse("csv", path, err)
		}
		row := make(map[string]string, len(want))
		for _, col := range want {
			if i, ok := index[col]; ok && i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
