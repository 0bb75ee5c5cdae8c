package replicator

import (
	"context"
	"time"

	"github.com/teranos/tsreplicate/tsdb"
)

// fakeAdapter is a minimal in-memory tsdb.Adapter used to drive Processor
// without a network dependency.
type fakeAdapter struct {
	connectErr error

	databases    []string
	measurements map[string][]string             // database -> measurements
	fieldKinds   map[string]map[string]tsdb.FieldKind // measurement -> field -> kind
	tagKeys      map[string][]string              // measurement -> tags
	records      map[string][]tsdb.Record         // measurement -> records

	lastFieldTS map[string]time.Time // "measurement.field" -> last timestamp
	hasLastTS   map[string]bool

	createdDatabases []string
	written          []tsdb.Row
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		measurements: make(map[string][]string),
		fieldKinds:   make(map[string]map[string]tsdb.FieldKind),
		tagKeys:      make(map[string][]string),
		records:      make(map[string][]tsdb.Record),
		lastFieldTS:  make(map[string]time.Time),
		hasLastTS:    make(map[string]bool),
	}
}

func (f *fakeAdapter) TestConnection(ctx context.Context) error { return f.connectErr }

func (f *fakeAdapter) ListDatabases(ctx context.Context) ([]string, error) {
	return f.databases, nil
}

func (f *fakeAdapter) CreateDatabase(ctx context.Context, database string) error {
	f.createdDatabases = append(f.createdDatabases, database)
	return nil
}

func (f *fakeAdapter) ListMeasurements(ctx context.Context, database string) ([]string, error) {
	return f.measurements[database], nil
}

func (f *fakeAdapter) FieldKeys(ctx context.Context, database, measurement string) (map[string]tsdb.FieldKind, error) {
	return f.fieldKinds[measurement], nil
}

func (f *fakeAdapter) TagKeys(ctx context.Context, database, measurement string) ([]string, error) {
	return f.tagKeys[measurement], nil
}

func (f *fakeAdapter) LastTimestamp(ctx context.Context, database, measurement string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (f *fakeAdapter) LastFieldTimestamp(ctx context.Context, database, measurement, field string) (time.Time, bool, error) {
	key := measurement + "." + field
	return f.lastFieldTS[key], f.hasLastTS[key], nil
}

func (f *fakeAdapter) TimeRange(ctx context.Context, database, measurement string) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, nil
}

func (f *fakeAdapter) CountRecords(ctx context.Context, database, measurement string, start, end *time.Time) (int64, error) {
	return int64(len(f.records[measurement])), nil
}

func (f *fakeAdapter) Query(ctx context.Context, params tsdb.QueryParams) ([]tsdb.Record, error) {
	return f.records[params.Measurement], nil
}

func (f *fakeAdapter) Write(ctx context.Context, database, measurement string, rows []tsdb.Row) error {
	f.written = append(f.written, rows...)
	return nil
}

var _ tsdb.Adapter = (*fakeAdapter)(nil)
