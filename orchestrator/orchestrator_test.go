package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/tsreplicate/jobspec"
	"github.com/teranos/tsreplicate/tsdb"
)

// noopAdapter answers every call trivially and successfully, just enough
// for a Processor.Run to complete without any configured databases.
type noopAdapter struct{}

func (noopAdapter) TestConnection(ctx context.Context) error { return nil }
func (noopAdapter) ListDatabases(ctx context.Context) ([]string, error) { return nil, nil }
func (noopAdapter) CreateDatabase(ctx context.Context, database string) error { return nil }
func (noopAdapter) ListMeasurements(ctx context.Context, database string) ([]string, error) {
	return nil, nil
}
func (noopAdapter) FieldKeys(ctx context.Context, database, measurement string) (map[string]tsdb.FieldKind, error) {
	return nil, nil
}
func (noopAdapter) TagKeys(ctx context.Context, database, measurement string) ([]string, error) {
	return nil, nil
}
func (noopAdapter) LastTimestamp(ctx context.Context, database, measurement string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (noopAdapter) LastFieldTimestamp(ctx context.Context, database, measurement, field string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (noopAdapter) TimeRange(ctx context.Context, database, measurement string) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, nil
}
func (noopAdapter) CountRecords(ctx context.Context, database, measurement string, start, end *time.Time) (int64, error) {
	return 0, nil
}
func (noopAdapter) Query(ctx context.Context, params tsdb.QueryParams) ([]tsdb.Record, error) {
	return nil, nil
}
func (noopAdapter) Write(ctx context.Context, database, measurement string, rows []tsdb.Row) error {
	return nil
}

var _ tsdb.Adapter = noopAdapter{}

func writeDescriptor(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const shortRunningDescriptor = `
source:
  url: http://source:8086
  databases:
    - name: metrics
      destination: metrics
destination:
  url: http://dest:8086
options:
  backup_mode: range
  range:
    start_date: "2026-01-01"
    end_date: "2026-01-02"
`

func TestRunSucceedsWithOneShortRunningJob(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "job.yaml", shortRunningDescriptor)

	o := New(dir, func(spec *jobspec.JobSpec) (source, dest tsdb.Adapter) {
		return noopAdapter{}, noopAdapter{}
	})

	code := o.Run(context.Background())
	assert.Equal(t, 0, code)
}

func TestRunReturnsOneWhenNoValidDescriptors(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "broken.yaml", "not: [valid")

	o := New(dir, func(spec *jobspec.JobSpec) (source, dest tsdb.Adapter) {
		return noopAdapter{}, noopAdapter{}
	})

	code := o.Run(context.Background())
	assert.Equal(t, 1, code)
}

const longRunningDescriptor = `
source:
  url: http://source:8086
  databases:
    - name: metrics
      destination: metrics
destination:
  url: http://dest:8086
options:
  backup_mode: incremental
  incremental:
    schedule: "* * * * *"
`

func TestRunReportsLongRunningJobAsRunningAndStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "job.yaml", longRunningDescriptor)

	o := New(dir, func(spec *jobspec.JobSpec) (source, dest tsdb.Adapter) {
		return noopAdapter{}, noopAdapter{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	code := o.Run(ctx)
	assert.Equal(t, 0, code)
}
