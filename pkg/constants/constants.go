// Package constants provides shared constants used throughout the orgsync codebase.
// This includes timeouts, retry limits, file permissions, and the fixed
// identifiers both directory systems agree on.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the source and target APIs
	DefaultHTTPTimeout = 30 * time.Second

	// DatabaseTimeout bounds connect, read and write on the target database
	DatabaseTimeout = 30 * time.Second

	// SyncTimeout is the timeout for a complete sync run
	SyncTimeout = 30 * time.Minute

	// ShutdownTimeout is how long graceful shutdown may take after an error
	ShutdownTimeout = 5 * time.Second
)

// Retry constants
const (
	// MaxRetries is the maximum number of attempts for a request that failed on transport
	MaxRetries = 3

	// RetryDelay is the fixed delay between transport retries
	RetryDelay = 5 * time.Second

	// MaxRateLimitRetries is the maximum number of attempts for a rate-limited request
	MaxRateLimitRetries = 3

	// RateLimitRetryDelay is the fixed delay before retrying after hitting a rate limit
	RateLimitRetryDelay = 1 * time.Second
)

// Concurrency and paging constants
const (
	// MaxConcurrentDepartmentFetches bounds the per-level department fan-out
	MaxConcurrentDepartmentFetches = 40

	// MaxConcurrentUserFetches bounds the per-department user fan-out
	MaxConcurrentUserFetches = 20

	// DefaultPageSize is the page size requested from the contact API
	DefaultPageSize = 50

	// RequestsPerSecond paces requests to the contact API
	RequestsPerSecond = 50

	// BurstSize is the token bucket burst size for request pacing
	BurstSize = 20
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Directory identifiers shared by source and target
const (
	// RootDepartmentID is the source sentinel for the organization root
	RootDepartmentID = "0"

	// DefaultTargetRootID is the target's default top-level department
	DefaultTargetRootID int64 = 100

	// TargetGlobalRootID is the target's global root above the default department
	TargetGlobalRootID int64 = 0

	// ProtectedAccount is the target administrator that is never disabled
	ProtectedAccount = "admin"

	// DefaultRoleID is assigned to every created user
	DefaultRoleID int64 = 2

	// DefaultSex is the target code for "unknown"
	DefaultSex = "0"

	// DefaultUserPassword is hashed when no hash is configured
	DefaultUserPassword = "123456"

	// SyncOperator is recorded in create_by / update_by
	SyncOperator = "feishu_sync"
)

// Target status codes
const (
	// StatusActive marks an enabled department or user
	StatusActive = "0"

	// StatusDisabled marks a soft-deleted department or user
	StatusDisabled = "1"

	// DelFlagPresent marks a row that was not hard-deleted
	DelFlagPresent = "0"
)

// Path constants
const (
	// DefaultOutputDir holds the CSV extracts
	DefaultOutputDir = "output"

	// DepartmentsFile is the department extract file name
	DepartmentsFile = "feishu_departments.csv"

	// UsersFile is the user extract file name
	UsersFile = "feishu_users.csv"

	// ConfigName is the config file base name searched in $HOME and the working directory
	ConfigName = ".orgsync"
)

// Source API constants
const (
	// FeishuBaseURL is the default contact API base URL
	FeishuBaseURL = "https://open.feishu.cn/open-apis"

	// FeishuCodeRateLimited is returned when the app exceeds its request quota
	FeishuCodeRateLimited = 99991400

	// FeishuCodeUnavailable is returned when the contact service is briefly unavailable
	FeishuCodeUnavailable = 2200
)

// Reporting constants
const (
	// NotifyPreviewSize is how many users a notification lists before summarizing
	NotifyPreviewSize = 5
)
