package orgsync

import (
	"sync"

	"github.com/agentstation/orgsync/pkg/differ"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// Hook function types for directory events
type (
	// DepartmentChangeHook is called for each department a run created, updated, or disabled
	DepartmentChangeHook func(change differ.Change)

	// UserChangeHook is called for each user a run created, updated, or disabled
	UserChangeHook func(change differ.Change)
)

// Hooks provides event callback registration.
type Hooks interface {
	OnDepartmentChange(fn DepartmentChangeHook)
	OnUserChange(fn UserChangeHook)
}

// hooks manages event callbacks for directory changes
type hooks struct {
	mu           sync.RWMutex
	onDepartment []DepartmentChangeHook
	onUser       []UserChangeHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnDepartmentChange registers a callback for department changes
func (c *client) OnDepartmentChange(fn DepartmentChangeHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onDepartment = append(c.hooks.onDepartment, fn)
}

// OnUserChange registers a callback for user changes
func (c *client) OnUserChange(fn UserChangeHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onUser = append(c.hooks.onUser, fn)
}

// trigger calls the hooks for every applied change of a real run. Failed
// writes are not reported.
func (h *hooks) trigger(result *pkgsync.Result) {
	if result == nil || result.DryRun {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if d := result.Departments; d != nil {
		for _, change := range applied(d.Changes) {
			for _, hook := range h.onDepartment {
				hook(change)
			}
		}
	}
	if u := result.Users; u != nil {
		for _, change := range applied(u.Changes) {
			for _, hook := range h.onUser {
				hook(change)
			}
		}
	}
}

func applied(cs differ.Changeset) []differ.Change {
	out := make([]differ.Change, 0, len(cs.Created)+len(cs.Updated)+len(cs.Disabled))
	out = append(out, cs.Created...)
	out = append(out, cs.Updated...)
	return append(out, cs.Disabled...)
}
