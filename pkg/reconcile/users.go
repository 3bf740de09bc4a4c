package reconcile

import (
	"context"
	"strconv"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/identity"
	"github.com/agentstation/orgsync/pkg/logging"
)

// Users reconciles the synchronized source users into the target. Primary
// departments are resolved through mapping; unmapped ones fall back to the
// default root. Only a failure to list the target is returned.
func (e *Engine) Users(ctx context.Context, users []directory.User, mapping *Mapping) (*UserResult, error) {
	ctx = logging.WithPhase(ctx, "users")
	log := logging.FromContext(ctx)

	existing, err := e.target.ListUsers(ctx)
	if err != nil {
		return nil, errors.WrapResource("list", "users", "", err)
	}

	hasCorrelation := true
	if r, ok := e.target.(CorrelationReporter); ok {
		hasCorrelation = r.HasCorrelationField()
	}
	byHandle := e.opts.handleFallback && !hasCorrelation
	if byHandle {
		log.Warn().Msg("Target has no correlation field, matching users by login handle")
	}

	byKey := make(map[string]TargetUser, len(existing))
	handles := make(map[string]TargetUser, len(existing))
	taken := make(map[string]bool, len(existing))
	for _, u := range existing {
		taken[u.UserName] = true
		if u.CorrelationKey != "" {
			if _, dup := byKey[u.CorrelationKey]; !dup {
				byKey[u.CorrelationKey] = u
			}
		}
		if u.UserName != "" {
			if _, dup := handles[u.UserName]; !dup {
				handles[u.UserName] = u
			}
		}
	}

	w := e.writer()
	result := &UserResult{}
	source := make(map[string]bool, len(users))
	claimed := make(map[int64]bool, len(existing))

	synced := directory.Synchronized(users)
	log.Info().Int("source", len(synced)).Int("target", len(existing)).Msg("Reconciling users")

	for _, u := range synced {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		uctx := logging.WithUser(ctx, u.ID)
		if u.CorrelationKey == "" {
			logging.FromContext(uctx).Warn().Str("name", u.Name).Msg("Skipping user without correlation key")
			result.Skipped++
			continue
		}
		if source[u.CorrelationKey] {
			logging.FromContext(uctx).Warn().Str("name", u.Name).Msg("Skipping user sharing a correlation key with an earlier user")
			result.Skipped++
			continue
		}
		source[u.CorrelationKey] = true

		handle := loginHandle(u)
		cur, ok := byKey[u.CorrelationKey]
		if !ok && byHandle {
			cur, ok = matchHandle(handles, claimed, handle)
		}
		if ok {
			claimed[cur.ID] = true
		}
		deptID := mapping.TargetOr(u.PrimaryDepartment(), e.opts.defaultRootID)

		if !ok {
			// Existing accounts keep their login name; a new one takes the
			// first free suffix of its handle.
			handle = identity.FreeHandle(handle, func(h string) bool { return taken[h] })
			taken[handle] = true
			e.createUser(uctx, w, result, u, handle, deptID)
			continue
		}
		e.updateUser(uctx, w, result, u, cur, deptID)
	}

	for _, u := range existing {
		if u.CorrelationKey == "" || source[u.CorrelationKey] || u.Disabled() {
			continue
		}
		if u.UserName == e.opts.protectedAccount {
			continue
		}
		change := differ.Change{
			Type:     differ.ChangeTypeDisable,
			Entity:   differ.EntityUser,
			TargetID: u.ID,
			Name:     u.NickName,
			Handle:   u.UserName,
		}
		if err := w.DisableUser(ctx, u.ID); err != nil {
			failUser(logging.WithField(ctx, "user_name", u.UserName), result, change, "disable", err)
			continue
		}
		result.record(change)
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("disabled", result.Disabled).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("User phase complete")
	return result, nil
}

func (e *Engine) createUser(ctx context.Context, w writer, result *UserResult, u directory.User, handle string, deptID int64) {
	desired := TargetUser{
		DeptID:         deptID,
		UserName:       handle,
		NickName:       u.Name,
		Email:          u.Email,
		Phone:          u.Mobile,
		Sex:            e.opts.sex,
		Password:       e.opts.password,
		Status:         constants.StatusActive,
		DelFlag:        constants.DelFlagPresent,
		RoleIDs:        []int64{e.opts.roleID},
		CorrelationKey: u.CorrelationKey,
		SecondaryID:    u.OpenID,
		UnionID:        u.UnionID,
	}
	change := differ.Change{
		Type:     differ.ChangeTypeCreate,
		Entity:   differ.EntityUser,
		SourceID: u.ID,
		Name:     u.Name,
		Handle:   handle,
	}
	id, err := w.CreateUser(ctx, desired)
	if err != nil {
		failUser(ctx, result, change, "create", err)
		return
	}
	change.TargetID = id
	result.record(change)
}

func (e *Engine) updateUser(ctx context.Context, w writer, result *UserResult, u directory.User, cur TargetUser, deptID int64) {
	changes := e.differ.Fields(
		differ.String("nick_name", cur.NickName, u.Name),
		differ.String("email", cur.Email, u.Email),
		differ.Int("dept_id", cur.DeptID, deptID),
		differ.String("feishu_open_id", cur.SecondaryID, u.OpenID),
		differ.String("status", activeStatus(cur.Status), constants.StatusActive),
	)
	if len(changes) == 0 {
		return
	}

	desired := cur
	desired.DeptID = deptID
	desired.NickName = u.Name
	desired.Email = u.Email
	desired.Phone = u.Mobile
	desired.SecondaryID = u.OpenID
	desired.Status = constants.StatusActive
	if desired.Sex == "" {
		desired.Sex = e.opts.sex
	}
	if desired.CorrelationKey == "" {
		desired.CorrelationKey = u.CorrelationKey
	}
	if desired.UnionID == "" {
		desired.UnionID = u.UnionID
	}

	change := differ.Change{
		Type:     differ.ChangeTypeUpdate,
		Entity:   differ.EntityUser,
		SourceID: u.ID,
		TargetID: cur.ID,
		Name:     u.Name,
		Handle:   cur.UserName,
		Changes:  changes,
	}
	if err := w.UpdateUser(ctx, desired); err != nil {
		failUser(ctx, result, change, "update", err)
		return
	}
	result.record(change)
}

func failUser(ctx context.Context, result *UserResult, change differ.Change, op string, err error) {
	id := change.SourceID
	if id == "" {
		id = change.Handle
	}
	err = errors.WrapResource(op, "user", id, err)
	logging.FromContext(ctx).Error().Err(err).Str("name", change.Name).Msg("User write failed")
	change.Type = differ.ChangeTypeFailed
	change.Error = err.Error()
	result.record(change)
}

// matchHandle finds the first unclaimed account among handle, handle2, ...
// stopping at the first login name the target does not hold. Namesakes
// matched earlier in the run hold the lower suffixes.
func matchHandle(handles map[string]TargetUser, claimed map[int64]bool, handle string) (TargetUser, bool) {
	for n := 1; ; n++ {
		name := handle
		if n > 1 {
			name += strconv.Itoa(n)
		}
		u, ok := handles[name]
		if !ok {
			return TargetUser{}, false
		}
		if !claimed[u.ID] {
			return u, true
		}
	}
}

// loginHandle returns the handle assigned upstream, deriving one from the
// display name or falling back to the source id when none was assigned.
func loginHandle(u directory.User) string {
	if u.LoginHandle != "" {
		return u.LoginHandle
	}
	if h := identity.LoginHandle(u.Name); h != "" {
		return h
	}
	return u.ID
}
