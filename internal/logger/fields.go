package logger

// Standard structured-log field names, kept as constants so every package
// spells the same key the same way.
const (
	FieldJobName     = "job_name"
	FieldRunID       = "run_id"
	FieldDatabase    = "database"
	FieldMeasurement = "measurement"
	FieldField       = "field"
	FieldStage       = "stage"
	FieldDurationMS  = "duration_ms"
	FieldAttempt     = "attempt"
	FieldError       = "error"
	FieldRecords     = "records"
	FieldWorkerID    = "worker_id"
)
