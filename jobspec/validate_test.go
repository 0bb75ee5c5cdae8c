package jobspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *JobSpec {
	spec := &JobSpec{
		Source: SourceConfig{
			Endpoint:  Endpoint{URL: "http://source:8086"},
			Databases: []DatabasePair{{Name: "metrics", Destination: "metrics"}},
		},
		Destination: Endpoint{URL: "http://dest:8086"},
		Options: Options{
			BackupMode:        ModeRange,
			Range:             RangeWindow{StartDate: "2026-01-01", EndDate: "2026-02-01"},
			TimeoutClient:     30,
			DaysOfPagination:  1,
			Workers:           4,
			FieldObsoleteThreshold: "30d",
		},
	}
	return spec
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	require.NoError(t, validSpec().Validate())
}

func TestValidateRejectsMissingSourceURL(t *testing.T) {
	spec := validSpec()
	spec.Source.URL = ""
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.url is required")
}

func TestValidateRejectsMutuallyExclusiveMeasurementFilters(t *testing.T) {
	spec := validSpec()
	spec.Measurements.Include = []string{"cpu"}
	spec.Measurements.Exclude = []string{"memory"}
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateRejectsBadDatabaseName(t *testing.T) {
	spec := validSpec()
	spec.Source.Databases = []DatabasePair{{Name: "_internal", Destination: "x"}}
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source database name")
}

func TestValidateRangeModeRequiresDates(t *testing.T) {
	spec := validSpec()
	spec.Options.Range = RangeWindow{}
	err := spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_date and end_date are required")
}

func TestValidateIncrementalModeAllowsEmptySchedule(t *testing.T) {
	spec := validSpec()
	spec.Options.BackupMode = ModeIncremental
	spec.Options.Incremental = IncrementalOptions{}
	require.NoError(t, spec.Validate())
}

func TestValidDatabaseAndMeasurementNames(t *testing.T) {
	assert.True(t, ValidMeasurementName("cpu_usage"))
	assert.True(t, ValidMeasurementName("cpu.usage-1"))
	assert.False(t, ValidMeasurementName(""))
	assert.False(t, ValidMeasurementName("1cpu"))

	assert.True(t, ValidDatabaseName("metrics"))
	assert.False(t, ValidDatabaseName("_internal"))
	assert.False(t, ValidDatabaseName("1db"))
}
