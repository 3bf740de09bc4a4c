package reconcile

import (
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

type options struct {
	dryRun           bool
	defaultRootID    int64
	protectedAccount string
	roleID           int64
	sex              string
	password         string
	handleFallback   bool
	ignoredFields    []string
}

func defaultOptions() *options {
	return &options{
		defaultRootID:    constants.DefaultTargetRootID,
		protectedAccount: constants.ProtectedAccount,
		roleID:           constants.DefaultRoleID,
		sex:              constants.DefaultSex,
		handleFallback:   true,
	}
}

// Option configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithDryRun runs the full pass while only logging writes.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithDefaultRootID sets the target department that top-level and unmapped
// departments and users attach to.
func WithDefaultRootID(id int64) Option {
	return func(o *options) error {
		if id <= 0 {
			return &errors.ValidationError{Field: "default_root_id", Value: id, Message: "must be positive"}
		}
		o.defaultRootID = id
		return nil
	}
}

// WithProtectedAccount sets the login handle that is never disabled.
func WithProtectedAccount(handle string) Option {
	return func(o *options) error {
		o.protectedAccount = handle
		return nil
	}
}

// WithDefaultRole sets the role assigned to created users.
func WithDefaultRole(id int64) Option {
	return func(o *options) error {
		o.roleID = id
		return nil
	}
}

// WithDefaultSex sets the sex flag of created users.
func WithDefaultSex(sex string) Option {
	return func(o *options) error {
		o.sex = sex
		return nil
	}
}

// WithDefaultPassword sets the credential stored for created users. The
// database target expects a bcrypt hash; the REST target a plain password.
func WithDefaultPassword(password string) Option {
	return func(o *options) error {
		o.password = password
		return nil
	}
}

// WithHandleFallback allows matching users by login handle when the target
// cannot store the correlation key.
func WithHandleFallback(enabled bool) Option {
	return func(o *options) error {
		o.handleFallback = enabled
		return nil
	}
}

// WithIgnoredFields excludes fields from drift detection.
func WithIgnoredFields(fields ...string) Option {
	return func(o *options) error {
		o.ignoredFields = append(o.ignoredFields, fields...)
		return nil
	}
}
