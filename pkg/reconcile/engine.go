// Package reconcile computes and applies the create, update, and disable
// operations that bring the target directory in line with the source.
//
// Departments are reconciled first, parents before children, producing the
// source→target department mapping that user reconciliation needs. Records
// are joined on a correlation field persisted in the target at creation, so
// renamed departments and users are updated in place rather than recreated.
package reconcile

import (
	"context"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// Engine reconciles source records into a Target. It is single-threaded
// and holds no state between calls.
type Engine struct {
	target Target
	opts   *options
	differ differ.Differ
}

// New creates an Engine writing to target.
func New(target Target, opts ...Option) (*Engine, error) {
	if target == nil {
		return nil, &errors.ValidationError{Field: "target", Message: "cannot be nil"}
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{
		target: target,
		opts:   o,
		differ: differ.New(differ.WithIgnoredFields(o.ignoredFields...)),
	}, nil
}

// DryRun reports whether writes are suppressed.
func (e *Engine) DryRun() bool {
	return e.opts.dryRun
}

// writer returns where the writes of one pass go. Dry-run passes get a fresh
// writer so provisional ids restart at -1.
func (e *Engine) writer() writer {
	if e.opts.dryRun {
		return &dryRunWriter{}
	}
	return e.target
}

// writer is the write half of Target.
type writer interface {
	CreateDepartment(ctx context.Context, dept TargetDepartment) (int64, error)
	UpdateDepartment(ctx context.Context, id int64, dept TargetDepartment) error
	DisableDepartment(ctx context.Context, id int64) error
	CreateUser(ctx context.Context, user TargetUser) (int64, error)
	UpdateUser(ctx context.Context, user TargetUser) error
	DisableUser(ctx context.Context, id int64) error
}

// dryRunWriter logs writes and hands out provisional negative ids.
type dryRunWriter struct {
	next int64
}

func (w *dryRunWriter) provisional() int64 {
	w.next--
	return w.next
}

func (w *dryRunWriter) CreateDepartment(ctx context.Context, dept TargetDepartment) (int64, error) {
	id := w.provisional()
	logging.FromContext(ctx).Info().
		Str("dept_name", dept.Name).
		Int("level", dept.Level).
		Int64("parent_id", dept.ParentID).
		Str("ancestors", dept.Ancestors).
		Int64("provisional_id", id).
		Msg("[dry-run] would create department")
	return id, nil
}

func (w *dryRunWriter) UpdateDepartment(ctx context.Context, id int64, dept TargetDepartment) error {
	logging.FromContext(ctx).Info().
		Int64("dept_id", id).
		Str("dept_name", dept.Name).
		Msg("[dry-run] would update department")
	return nil
}

func (w *dryRunWriter) DisableDepartment(ctx context.Context, id int64) error {
	logging.FromContext(ctx).Info().Int64("dept_id", id).Msg("[dry-run] would disable department")
	return nil
}

func (w *dryRunWriter) CreateUser(ctx context.Context, user TargetUser) (int64, error) {
	id := w.provisional()
	logging.FromContext(ctx).Info().
		Str("user_name", user.UserName).
		Str("nick_name", user.NickName).
		Int64("dept_id", user.DeptID).
		Int64("provisional_id", id).
		Msg("[dry-run] would create user")
	return id, nil
}

func (w *dryRunWriter) UpdateUser(ctx context.Context, user TargetUser) error {
	logging.FromContext(ctx).Info().
		Int64("user_id", user.ID).
		Str("user_name", user.UserName).
		Msg("[dry-run] would update user")
	return nil
}

func (w *dryRunWriter) DisableUser(ctx context.Context, id int64) error {
	logging.FromContext(ctx).Info().Int64("user_id", id).Msg("[dry-run] would disable user")
	return nil
}

// activeStatus normalizes an empty status to active.
func activeStatus(status string) string {
	if status == "" {
		return constants.StatusActive
	}
	return status
}
