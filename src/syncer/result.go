package syncer

import "budget-server/src/models"

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"

	ReasonDemoUser       = "demo_user"
	ReasonBelowThreshold = "below_threshold"
	ReasonNoneExpired    = "no_expired_records"
)

// LegResult reports one leg of a cycle.
type LegResult struct {
	Status        string            `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	Message       string            `json:"message,omitempty"`
	DataType      models.RecordType `json:"data_type,omitempty"`
	RecordsSynced *int64            `json:"records_synced,omitempty"`
	RecordsFailed int               `json:"records_failed,omitempty"`
}

// CleanupResult reports a retention pass.
type CleanupResult struct {
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
	CurrentCount   *int   `json:"current_count,omitempty"`
	Threshold      *int   `json:"threshold,omitempty"`
	DeletedCount   *int   `json:"deleted_count,omitempty"`
	RemainingCount *int   `json:"remaining_count,omitempty"`
	CutoffDate     string `json:"cutoff_date,omitempty"`
}

// CycleResult is the combined outcome of SyncAllData.
type CycleResult struct {
	Accounts     LegResult     `json:"accounts"`
	Transactions LegResult     `json:"transactions"`
	Cleanup      CleanupResult `json:"cleanup"`
}

func skippedDemo() LegResult {
	return LegResult{Status: StatusSkipped, Reason: ReasonDemoUser}
}

func legSuccess(typ models.RecordType, synced int64, failed int) LegResult {
	return LegResult{Status: StatusSuccess, DataType: typ, RecordsSynced: &synced, RecordsFailed: failed}
}

func legError(err error) LegResult {
	return LegResult{Status: StatusError, Message: err.Error()}
}

func intPtr(n int) *int { return &n }
