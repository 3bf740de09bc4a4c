package reconcile

import (
	"context"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/tree"
)

// departmentPass holds the state of one department reconciliation.
type departmentPass struct {
	e       *Engine
	w       writer
	result  *DepartmentResult
	byCorr  map[string]TargetDepartment
	byID    map[int64]TargetDepartment
	paths   map[int64]tree.Path
	mapping *Mapping
}

// Departments reconciles the source departments into the target, parents
// before children. Only a failure to list the target is returned; write
// failures are logged and counted in the result.
func (e *Engine) Departments(ctx context.Context, depts []directory.Department) (*DepartmentResult, error) {
	ctx = logging.WithPhase(ctx, "departments")
	log := logging.FromContext(ctx)

	existing, err := e.target.ListDepartments(ctx)
	if err != nil {
		return nil, errors.WrapResource("list", "departments", "", err)
	}

	forest := tree.Materialize(depts)
	for _, id := range forest.Reattached {
		log.Warn().Str("dept_id", id).Msg("Department parent does not resolve, attaching to root")
	}

	p := &departmentPass{
		e:       e,
		w:       e.writer(),
		result:  &DepartmentResult{Reattached: forest.Reattached},
		byCorr:  make(map[string]TargetDepartment, len(existing)),
		byID:    make(map[int64]TargetDepartment, len(existing)),
		paths:   make(map[int64]tree.Path),
		mapping: NewMapping(),
	}
	for _, d := range existing {
		p.byID[d.ID] = d
		if d.CorrelationID == "" {
			continue
		}
		if _, dup := p.byCorr[d.CorrelationID]; dup {
			log.Warn().Str("dept_id", d.CorrelationID).Int64("target_id", d.ID).Msg("Duplicate correlation id in target, keeping first")
			continue
		}
		p.byCorr[d.CorrelationID] = d
	}

	ordered := forest.Ordered()
	log.Info().Int("source", len(ordered)).Int("target", len(existing)).Msg("Reconciling departments")

	for _, d := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.visit(logging.WithDepartment(ctx, d.ID), d)
	}

	for _, d := range existing {
		if d.CorrelationID == "" || forest.Contains(d.CorrelationID) || d.Disabled() {
			continue
		}
		p.disable(logging.WithDepartment(ctx, d.CorrelationID), d)
	}

	p.result.Mapping = p.mapping
	log.Info().
		Int("created", p.result.Created).
		Int("updated", p.result.Updated).
		Int("disabled", p.result.Disabled).
		Int("failed", p.result.Failed).
		Int("mapped", p.mapping.Len()).
		Msg("Department phase complete")
	return p.result, nil
}

// visit creates or updates one department. Its parent has been visited.
func (p *departmentPass) visit(ctx context.Context, d directory.Department) {
	root := p.e.opts.defaultRootID
	parent := root
	if d.ParentID != directory.RootID {
		parent = p.mapping.TargetOr(d.ParentID, root)
	}
	ancestors := p.ancestors(parent)

	desired := TargetDepartment{
		ParentID:      parent,
		Ancestors:     ancestors.String(),
		Name:          d.Name,
		Level:         d.Level,
		Status:        constants.StatusActive,
		DelFlag:       constants.DelFlagPresent,
		CorrelationID: d.ID,
	}

	cur, ok := p.byCorr[d.ID]
	if !ok {
		p.create(ctx, d, desired, ancestors)
		return
	}

	p.mapping.Add(d.ID, cur.ID)
	changes := p.e.differ.Fields(
		differ.String("dept_name", cur.Name, d.Name),
		differ.Int("level", int64(cur.Level), int64(d.Level)),
		differ.Int("parent_id", cur.ParentID, parent),
		differ.Present("ancestors", cur.Ancestors),
		differ.String("status", activeStatus(cur.Status), constants.StatusActive),
	)
	if len(changes) == 0 {
		p.paths[cur.ID] = p.storedPath(ctx, cur, ancestors)
		return
	}

	desired.ID = cur.ID
	desired.OrderNum = cur.OrderNum
	change := differ.Change{
		Type:     differ.ChangeTypeUpdate,
		Entity:   differ.EntityDepartment,
		SourceID: d.ID,
		TargetID: cur.ID,
		Name:     d.Name,
		Changes:  changes,
	}
	if err := p.w.UpdateDepartment(ctx, cur.ID, desired); err != nil {
		p.fail(ctx, change, "update", err)
		p.paths[cur.ID] = p.storedPath(ctx, cur, ancestors)
		return
	}
	p.paths[cur.ID] = ancestors
	p.result.record(change)
	logging.FromContext(ctx).Debug().Str("changes", change.Describe()).Msg("Updated department")
}

func (p *departmentPass) create(ctx context.Context, d directory.Department, desired TargetDepartment, ancestors tree.Path) {
	change := differ.Change{
		Type:     differ.ChangeTypeCreate,
		Entity:   differ.EntityDepartment,
		SourceID: d.ID,
		Name:     d.Name,
	}
	id, err := p.w.CreateDepartment(ctx, desired)
	if err != nil {
		p.fail(ctx, change, "create", err)
		return
	}
	change.TargetID = id
	p.mapping.Add(d.ID, id)
	p.paths[id] = ancestors
	p.result.record(change)
	logging.FromContext(ctx).Debug().Int64("target_id", id).Msg("Created department")
}

func (p *departmentPass) disable(ctx context.Context, d TargetDepartment) {
	change := differ.Change{
		Type:     differ.ChangeTypeDisable,
		Entity:   differ.EntityDepartment,
		SourceID: d.CorrelationID,
		TargetID: d.ID,
		Name:     d.Name,
	}
	if err := p.w.DisableDepartment(ctx, d.ID); err != nil {
		p.fail(ctx, change, "disable", err)
		return
	}
	p.result.record(change)
	logging.FromContext(ctx).Debug().Int64("target_id", d.ID).Msg("Disabled department")
}

func (p *departmentPass) fail(ctx context.Context, change differ.Change, op string, err error) {
	err = errors.WrapResource(op, "department", change.SourceID, err)
	logging.FromContext(ctx).Error().Err(err).Str("dept_name", change.Name).Msg("Department write failed")
	change.Type = differ.ChangeTypeFailed
	change.Error = err.Error()
	p.result.record(change)
}

// ancestors returns the ancestor chain of a child of parent, using the
// parent's chain as corrected earlier in this pass.
func (p *departmentPass) ancestors(parent int64) tree.Path {
	root := p.e.opts.defaultRootID
	if parent == root {
		return tree.RootPath(root)
	}
	if path, ok := p.paths[parent]; ok && len(path) > 0 {
		return path.Child(parent)
	}
	if cur, ok := p.byID[parent]; ok {
		if path, err := tree.ParsePath(cur.Ancestors); err == nil && len(path) > 0 {
			return path.Child(parent)
		}
	}
	return tree.RootPath(root).Child(parent)
}

// storedPath returns the chain stored on a row the pass did not rewrite,
// falling back to computed when the stored one is unusable.
func (p *departmentPass) storedPath(ctx context.Context, cur TargetDepartment, computed tree.Path) tree.Path {
	path, err := tree.ParsePath(cur.Ancestors)
	if err != nil || len(path) == 0 {
		logging.FromContext(ctx).Warn().Str("ancestors", cur.Ancestors).Int64("target_id", cur.ID).Msg("Unusable ancestors on target department")
		return computed
	}
	return path
}
