package tsdb

import (
	"context"
	"time"
)

// Record is one decoded result row from a query, keyed by selected column
// name (tags and fields share a namespace here, as InfluxQL returns them).
type Record struct {
	Time   time.Time
	Values map[string]interface{}
}

// QueryParams describes a bounded SELECT against one measurement.
type QueryParams struct {
	Database    string
	Measurement string
	Start       time.Time
	End         time.Time
	Fields      []string // empty ⇒ SELECT *
	Tags        []string
	GroupBy     string
	Limit       int
}

// Adapter is the dialect-aware transport surface a job processor drives.
// The HTTP implementation in this package talks InfluxDB 1.8's wire
// format; a job never depends on the concrete client type.
type Adapter interface {
	TestConnection(ctx context.Context) error
	ListDatabases(ctx context.Context) ([]string, error)
	CreateDatabase(ctx context.Context, database string) error

	ListMeasurements(ctx context.Context, database string) ([]string, error)
	FieldKeys(ctx context.Context, database, measurement string) (map[string]FieldKind, error)
	TagKeys(ctx context.Context, database, measurement string) ([]string, error)

	// LastTimestamp returns the measurement's most recent point time. ok is
	// false when the measurement has no data.
	LastTimestamp(ctx context.Context, database, measurement string) (ts time.Time, ok bool, err error)

	// LastFieldTimestamp returns a single field's most recent non-null
	// observation, using the three-strategy probe described on
	// Client.LastFieldTimestamp and in DESIGN.md's tsdb section.
	LastFieldTimestamp(ctx context.Context, database, measurement, field string) (ts time.Time, ok bool, err error)

	TimeRange(ctx context.Context, database, measurement string) (first, last time.Time, err error)
	CountRecords(ctx context.Context, database, measurement string, start, end *time.Time) (int64, error)

	Query(ctx context.Context, params QueryParams) ([]Record, error)

	// Write sends rows to database/measurement, batching internally at
	// writeBatchSize lines per request.
	Write(ctx context.Context, database, measurement string, rows []Row) error
}
