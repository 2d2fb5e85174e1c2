package model

import "time"

// SyncType classifies a synchronization run
type SyncType string

const (
	SyncIncremental  SyncType = "INCREMENTAL"
	SyncFull         SyncType = "FULL"
	SyncVerification SyncType = "VERIFICATION"
)

// SyncStatus is the lifecycle state of a run. A run is finalized exactly
// once and never reopened.
type SyncStatus string

const (
	SyncInProgress SyncStatus = "IN_PROGRESS"
	SyncCompleted  SyncStatus = "COMPLETED"
	SyncFailed     SyncStatus = "FAILED"
)

// CostInvoiceSync is one synchronization run against the exchange
type CostInvoiceSync struct {
	ID          string     `json:"id"`
	Type        SyncType   `json:"type"`
	Status      SyncStatus `json:"status"`
	DateFrom    time.Time  `json:"dateFrom"`
	DateTo      time.Time  `json:"dateTo"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Imported    int        `json:"imported"`
	Skipped     int        `json:"skipped"`
	Errored     int        `json:"errored"`
	Errors      []string   `json:"errors,omitempty"`
	StartedBy   string     `json:"startedBy,omitempty"`
}

// SyncSummary is what a sync invocation returns to its caller, even on
// partial failure.
type SyncSummary struct {
	SyncID   string   `json:"syncId"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}
