package enums

import (
	"fmt"
	"strings"
)

// SyncStatus tracks whether a sale's invoice reached the tax authority.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusSynced,
	SyncStatusFailed,
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSyncStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}
