package planner

import "time"

// MeasurementFilter decides whether a measurement is in scope for
// replication. It is built once per job from the job's configured
// include/exclude lists (SPEC_FULL.md §4.5, spec.md's mutual-exclusivity
// invariant is enforced at load time in jobspec.Validate).
type MeasurementFilter struct {
	include map[string]bool
	exclude map[string]bool
}

// NewMeasurementFilter builds a filter from include/exclude name lists. At
// most one of the two lists is expected to be non-empty.
func NewMeasurementFilter(include, exclude []string) MeasurementFilter {
	f := MeasurementFilter{}
	if len(include) > 0 {
		f.include = toSet(include)
	}
	if len(exclude) > 0 {
		f.exclude = toSet(exclude)
	}
	return f
}

// Allows reports whether measurement passes this filter.
func (f MeasurementFilter) Allows(measurement string) bool {
	if f.include != nil {
		return f.include[measurement]
	}
	if f.exclude != nil {
		return !f.exclude[measurement]
	}
	return true
}

// FieldFilter decides whether a field within a measurement is in scope,
// additionally restricting by declared type when the job narrows a
// measurement to specific field types.
type FieldFilter struct {
	include      map[string]bool
	exclude      map[string]bool
	allowedTypes map[string]bool
}

// NewFieldFilter builds a field filter from include/exclude name lists and
// an optional set of allowed type names ("numeric", "string", "boolean").
// An empty allowedTypes list means every type is allowed.
func NewFieldFilter(include, exclude, types []string) FieldFilter {
	f := FieldFilter{}
	if len(include) > 0 {
		f.include = toSet(include)
	}
	if len(exclude) > 0 {
		f.exclude = toSet(exclude)
	}
	if len(types) > 0 {
		f.allowedTypes = toSet(types)
	}
	return f
}

// Allows reports whether a field of the given InfluxDB type
// ("float"/"integer" mapped to "numeric", "string", "boolean") passes this
// filter.
func (f FieldFilter) Allows(field, fieldType string) bool {
	if f.allowedTypes != nil && !f.allowedTypes[fieldType] {
		return false
	}
	if f.include != nil {
		return f.include[field]
	}
	if f.exclude != nil {
		return !f.exclude[field]
	}
	return true
}

// IsObsolete reports whether a field/measurement has gone stale: its last
// observed timestamp is older than threshold relative to now. A zero
// lastSeen (never observed) is always obsolete.
func IsObsolete(lastSeen time.Time, now time.Time, threshold time.Duration) bool {
	if lastSeen.IsZero() {
		return true
	}
	return now.Sub(lastSeen) > threshold
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
