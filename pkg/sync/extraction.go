package sync

import (
	"time"

	"github.com/agentstation/orgsync/pkg/directory"
)

// Extraction is one pull of the source directory.
type Extraction struct {
	TenantName       string             `json:"tenant_name,omitempty" yaml:"tenant_name,omitempty"`
	Snapshot         directory.Snapshot `json:"-" yaml:"-"`
	Stats            ExtractStats       `json:"stats" yaml:"stats"`
	FailedPartitions int                `json:"failed_partitions" yaml:"failed_partitions"`
	Duration         time.Duration      `json:"duration" yaml:"duration"`
}
