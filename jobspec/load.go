package jobspec

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/tsreplicate/internal/errors"
)

// defaults mirrors the original tool's per-field fallbacks so a minimal
// descriptor still produces a runnable job.
func (j *JobSpec) applyDefaults() {
	if j.Options.TimeoutClient == 0 {
		j.Options.TimeoutClient = 30
	}
	if j.Options.Retries == 0 {
		j.Options.Retries = 3
	}
	if j.Options.RetryDelay == 0 {
		j.Options.RetryDelay = 1.0
	}
	if j.Options.DaysOfPagination == 0 {
		j.Options.DaysOfPagination = 1
	}
	if j.Options.FieldObsoleteThreshold == "" {
		j.Options.FieldObsoleteThreshold = "30d"
	}
	if j.Options.InitialConnectionRetryDelay == 0 {
		j.Options.InitialConnectionRetryDelay = 5.0
	}
	if j.Options.LogLevel == "" {
		j.Options.LogLevel = "info"
	}
	if j.Options.Workers == 0 {
		j.Options.Workers = 4
	}
	if j.Options.BackupMode == "" {
		j.Options.BackupMode = ModeRange
	}
}

// Load reads and validates one job descriptor from path. The job's Name is
// derived from the file's base name with its extension stripped, matching
// the original tool's get_config_name_from_path convention.
func Load(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read job descriptor %s", path)
	}

	var spec JobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrapf(err, "failed to parse job descriptor %s", path)
	}

	base := filepath.Base(path)
	spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	spec.applyDefaults()

	if err := spec.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid job descriptor %s", path)
	}
	return &spec, nil
}

// Discover returns every *.yaml/*.yml descriptor in dir, sorted by file
// name, matching the orchestrator's deterministic discovery order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	// os.ReadDir already returns entries sorted by file name.
	return paths, nil
}

// LoadAll discovers and loads every job descriptor in dir. A descriptor that
// fails to load is reported but does not prevent loading the rest, so one
// bad file never blocks an entire fleet of jobs.
func LoadAll(dir string) ([]*JobSpec, []error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, []error{err}
	}

	var specs []*JobSpec
	var loadErrs []error
	for _, p := range paths {
		spec, err := Load(p)
		if err != nil {
			loadErrs = append(loadErrs, err)
			continue
		}
		specs = append(specs, spec)
	}
	return specs, loadErrs
}
