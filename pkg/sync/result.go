package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

// ExtractStats describes the source extraction a run worked from.
type ExtractStats struct {
	Departments      int  `json:"departments" yaml:"departments"`
	Users            int  `json:"users" yaml:"users"`
	ExpectedUsers    int  `json:"expected_users" yaml:"expected_users"`
	Duplicates       int  `json:"duplicates" yaml:"duplicates"`
	MissingUserID    int  `json:"missing_user_id" yaml:"missing_user_id"`
	Excluded         int  `json:"excluded" yaml:"excluded"`
	RateLimitRetries int  `json:"rate_limit_retries" yaml:"rate_limit_retries"`
	FromExtracts     bool `json:"from_extracts" yaml:"from_extracts"`
}

// Verify checks extraction statistics before anything is persisted: an
// extraction with no departments, no users, or a deduplicated user total
// that differs from the organization's member count cannot be trusted.
func (s ExtractStats) Verify() error {
	if s.Departments == 0 {
		return &errors.IntegrityError{Check: "empty_extract", Message: "no departments fetched"}
	}
	if s.Users == 0 {
		return &errors.IntegrityError{Check: "empty_extract", Message: "no users fetched"}
	}
	if s.Users != s.ExpectedUsers {
		return errors.NewIntegrityError("user_total", s.ExpectedUsers, s.Users)
	}
	return nil
}

// Result represents the complete result of a sync run.
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Target    string        `json:"target" yaml:"target"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	Extract     ExtractStats                `json:"extract" yaml:"extract"`
	Departments *reconcile.DepartmentResult `json:"departments" yaml:"departments"`
	Users       *reconcile.UserResult       `json:"users" yaml:"users"`
}

// HasChanges returns true if the run created, updated, or disabled anything.
func (r *Result) HasChanges() bool {
	return r.Departments.HasChanges() || r.Users.HasChanges()
}

// Failed returns the number of failed writes.
func (r *Result) Failed() int {
	n := 0
	if r.Departments != nil {
		n += r.Departments.Failed
	}
	if r.Users != nil {
		n += r.Users.Failed
	}
	return n
}

// Summary returns a human-readable summary of the sync result.
func (r *Result) Summary() string {
	var parts []string
	if d := r.Departments; d != nil {
		parts = append(parts, fmt.Sprintf("departments: %d created, %d updated, %d disabled", d.Created, d.Updated, d.Disabled))
	}
	if u := r.Users; u != nil {
		parts = append(parts, fmt.Sprintf("users: %d created, %d updated, %d disabled, %d skipped", u.Created, u.Updated, u.Disabled, u.Skipped))
	}
	if n := r.Failed(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	summary := strings.Join(parts, "; ")
	if !r.HasChanges() {
		summary = "No changes detected"
	}
	if r.DryRun {
		summary += " (Dry run)"
	}
	return summary
}
