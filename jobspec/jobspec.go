// Package jobspec defines the declarative job descriptor and its load-time
// validation, grounded on the original Python tool's config_manager.py
// schema (see SPEC_FULL.md §6) and the teacher's am/load.go loader shape.
package jobspec

import "time"

// BackupMode selects how a job computes its replication interval.
type BackupMode string

const (
	ModeRange       BackupMode = "range"
	ModeIncremental BackupMode = "incremental"
)

// FieldType is the permitted-type set a measurement's field policy can
// restrict to.
type FieldType string

const (
	FieldNumeric FieldType = "numeric"
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"
)

// Endpoint describes one side (source or destination) of a replication job.
type Endpoint struct {
	URL       string `yaml:"url"`
	SSL       bool   `yaml:"ssl"`
	VerifySSL bool   `yaml:"verify_ssl"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
}

// DatabasePair maps a source database to its destination name.
type DatabasePair struct {
	Name        string `yaml:"name"`
	Destination string `yaml:"destination"`
}

// SourceConfig is the source endpoint plus its database pairing and naming
// rules.
type SourceConfig struct {
	Endpoint  `yaml:",inline"`
	Databases []DatabasePair `yaml:"databases"`
	Prefix    string         `yaml:"prefix"`
	Suffix    string         `yaml:"suffix"`
	GroupBy   string         `yaml:"group_by"`
}

// FieldPolicy is a measurement's include/exclude/type filter for its fields.
type FieldPolicy struct {
	Include []string    `yaml:"include"`
	Exclude []string    `yaml:"exclude"`
	Types   []FieldType `yaml:"types"`
}

// MeasurementOverride is the per-measurement field policy keyed by
// measurement name in MeasurementFilter.Specific.
type MeasurementOverride struct {
	Fields FieldPolicy `yaml:"fields"`
}

// MeasurementFilter is the job-level measurement include/exclude list plus
// per-measurement field overrides.
type MeasurementFilter struct {
	Include  []string                       `yaml:"include"`
	Exclude  []string                       `yaml:"exclude"`
	Specific map[string]MeasurementOverride `yaml:"specific"`
}

// RangeWindow bounds a "range" mode job.
type RangeWindow struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

// IncrementalOptions configures an "incremental" mode job.
type IncrementalOptions struct {
	Schedule string `yaml:"schedule"` // cron expression; empty ⇒ run once
}

// LogRotation is the descriptor's log_rotation block. It is parsed but not
// used: tsreplicate writes no log files and logs only to stdout.
type LogRotation struct {
	Enabled     bool   `yaml:"enabled"`
	When        string `yaml:"when"` // D, H, M, S
	Interval    int    `yaml:"interval"`
	BackupCount int    `yaml:"backup_count"`
}

// LokiShipping describes the external log-shipping collaborator's target.
// It is parsed but neither validated nor used; tsreplicate does not itself
// ship to Loki (SPEC_FULL.md §6).
type LokiShipping struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Port    int               `yaml:"port"`
	Tags    map[string]string `yaml:"tags"`
}

// Options carries every cross-cutting knob for a job.
type Options struct {
	BackupMode                  BackupMode         `yaml:"backup_mode"`
	Range                       RangeWindow        `yaml:"range"`
	Incremental                 IncrementalOptions `yaml:"incremental"`
	TimeoutClient                int               `yaml:"timeout_client"` // seconds
	Retries                      int               `yaml:"retries"`
	RetryDelay                   float64           `yaml:"retry_delay"` // seconds
	DaysOfPagination              int              `yaml:"days_of_pagination"`
	FieldObsoleteThreshold        string           `yaml:"field_obsolete_threshold"`
	InitialConnectionRetryDelay  float64           `yaml:"initial_connection_retry_delay"` // seconds
	LogDirectory                 string            `yaml:"log_directory"`
	LogRotation                  LogRotation       `yaml:"log_rotation"`
	Loki                         LokiShipping      `yaml:"loki"`
	LogLevel                     string            `yaml:"log_level"`
	Workers                      int               `yaml:"workers"`
}

// GlobalConfig is informational metadata about the deployment.
type GlobalConfig struct {
	Network string `yaml:"network"`
}

// JobSpec is one immutable, fully-loaded job descriptor.
type JobSpec struct {
	Name         string `yaml:"-"` // derived from the descriptor's file name
	Global       GlobalConfig      `yaml:"global"`
	Source       SourceConfig      `yaml:"source"`
	Destination  Endpoint          `yaml:"destination"`
	Measurements MeasurementFilter `yaml:"measurements"`
	Options      Options           `yaml:"options"`
}

// Timeout returns the configured client I/O timeout as a time.Duration.
func (j *JobSpec) Timeout() time.Duration {
	return time.Duration(j.Options.TimeoutClient) * time.Second
}

// RetryDelay returns the configured base retry delay as a time.Duration.
func (j *JobSpec) RetryDelay() time.Duration {
	return time.Duration(j.Options.RetryDelay * float64(time.Second))
}

// InitialConnectionRetryDelay returns the configured initial-connection
// retry delay as a time.Duration.
func (j *JobSpec) InitialConnectionRetryDelay() time.Duration {
	return time.Duration(j.Options.InitialConnectionRetryDelay * float64(time.Second))
}

// IsLongRunning reports whether the job is incremental-with-cron, i.e. it
// runs indefinitely under the scheduler rather than once to completion.
func (j *JobSpec) IsLongRunning() bool {
	return j.Options.BackupMode == ModeIncremental && j.Options.Incremental.Schedule != ""
}

// DestinationDatabaseName applies the source's configured prefix/suffix to
// a database pair's destination name. This is the canonical name used for
// every horizon lookup (spec.md §9 Open Question ii). An empty Destination
// falls back to the source database's own name, matching the original
// tool's base_name = destination_name or source_name.
func (j *JobSpec) DestinationDatabaseName(pair DatabasePair) string {
	base := pair.Destination
	if base == "" {
		base = pair.Name
	}
	return j.Source.Prefix + base + j.Source.Suffix
}
