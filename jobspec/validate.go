package jobspec

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/planner"
)

var (
	measurementNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)
	databaseNamePattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)
	reservedDatabaseNames  = map[string]bool{"_internal": true}
)

// ValidMeasurementName reports whether name is an acceptable InfluxDB
// measurement identifier.
func ValidMeasurementName(name string) bool {
	return name != "" && measurementNamePattern.MatchString(name)
}

// ValidDatabaseName reports whether name is an acceptable, non-reserved
// InfluxDB database identifier.
func ValidDatabaseName(name string) bool {
	if name == "" || reservedDatabaseNames[name] {
		return false
	}
	return databaseNamePattern.MatchString(name)
}

// Validate checks the descriptor for internal consistency. It collects
// every problem found rather than failing on the first, so an operator
// fixing a misconfigured job sees the whole list at once.
func (j *JobSpec) Validate() error {
	var problems []string

	if j.Source.URL == "" {
		problems = append(problems, "source.url is required")
	} else if _, err := url.Parse(j.Source.URL); err != nil {
		problems = append(problems, "source.url is not a valid URL")
	}

	if j.Destination.URL == "" {
		problems = append(problems, "destination.url is required")
	} else if _, err := url.Parse(j.Destination.URL); err != nil {
		problems = append(problems, "destination.url is not a valid URL")
	}

	if len(j.Source.Databases) == 0 {
		problems = append(problems, "source.databases must list at least one database")
	}
	for _, pair := range j.Source.Databases {
		if !ValidDatabaseName(pair.Name) {
			problems = append(problems, "source.databases: invalid source database name "+quote(pair.Name))
		}
		if pair.Destination != "" && !ValidDatabaseName(pair.Destination) {
			problems = append(problems, "source.databases: invalid destination database name "+quote(pair.Destination))
		}
	}

	if len(j.Measurements.Include) > 0 && len(j.Measurements.Exclude) > 0 {
		problems = append(problems, "measurements.include and measurements.exclude are mutually exclusive")
	}
	for _, name := range j.Measurements.Include {
		if !ValidMeasurementName(name) {
			problems = append(problems, "measurements.include: invalid measurement name "+quote(name))
		}
	}
	for name, override := range j.Measurements.Specific {
		if !ValidMeasurementName(name) {
			problems = append(problems, "measurements.specific: invalid measurement name "+quote(name))
		}
		if len(override.Fields.Include) > 0 && len(override.Fields.Exclude) > 0 {
			problems = append(problems, "measurements.specific."+name+".fields: include and exclude are mutually exclusive")
		}
	}

	switch j.Options.BackupMode {
	case ModeRange:
		if j.Options.Range.StartDate == "" || j.Options.Range.EndDate == "" {
			problems = append(problems, "options.range.start_date and end_date are required when backup_mode is \"range\"")
		} else if j.Options.Range.StartDate >= j.Options.Range.EndDate {
			problems = append(problems, "options.range.start_date must be before end_date")
		}
	case ModeIncremental:
		// schedule is optional: empty means "run once incrementally", a
		// valid cron expression means "run under the scheduler".
	default:
		problems = append(problems, "options.backup_mode must be \"range\" or \"incremental\", got "+quote(string(j.Options.BackupMode)))
	}

	if j.Options.TimeoutClient <= 0 {
		problems = append(problems, "options.timeout_client must be > 0")
	}
	if j.Options.Retries < 0 {
		problems = append(problems, "options.retries must be >= 0")
	}
	if j.Options.RetryDelay < 0 {
		problems = append(problems, "options.retry_delay must be >= 0")
	}
	if j.Options.DaysOfPagination <= 0 {
		problems = append(problems, "options.days_of_pagination must be > 0")
	}
	if j.Options.Workers <= 0 {
		problems = append(problems, "options.workers must be > 0")
	}
	if _, err := planner.ParseDuration(j.Options.FieldObsoleteThreshold); err != nil {
		problems = append(problems, "options.field_obsolete_threshold: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.Newf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func quote(s string) string {
	return "\"" + s + "\""
}
