package models

import "time"

// RecordType names one of the two record kinds mirrored from the external source.
type RecordType string

const (
	RecordTypeAccounts     RecordType = "accounts"
	RecordTypeTransactions RecordType = "transactions"
)

type SyncRunStatus string

const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunCompleted SyncRunStatus = "completed"
	SyncRunFailed    SyncRunStatus = "failed"
)

// SyncRun is one row of sync_log: the audit trail of a single leg.
type SyncRun struct {
	ID            int64         `json:"id"`
	SyncType      RecordType    `json:"sync_type"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at"`
	Status        SyncRunStatus `json:"status"`
	RecordsSynced int64         `json:"records_synced"`
	ErrorMessage  *string       `json:"error_message"`
}
