package replicator

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/internal/logger"
	"github.com/teranos/tsreplicate/jobspec"
	"github.com/teranos/tsreplicate/planner"
	"github.com/teranos/tsreplicate/tsdb"
)

// defaultHorizonLookback bounds how far back an incremental job reaches
// when the source reports no data at all for a measurement (spec.md §4.2
// "Horizon resolution").
const defaultHorizonLookback = 30 * 24 * time.Hour

// processMeasurement replicates every in-scope field of one measurement.
// Fields run concurrently, bounded by the job's configured worker count; a
// single field's failure is recorded and logged but never cancels its
// siblings, mirroring the per-job crash isolation the orchestrator
// provides one level up (SPEC_FULL.md §5).
func (p *Processor) processMeasurement(ctx context.Context, sourceDB, destDB, measurement string) error {
	fieldKinds, err := p.source.FieldKeys(ctx, sourceDB, measurement)
	if err != nil {
		return errors.Wrapf(err, "failed to get field keys for %s.%s", sourceDB, measurement)
	}
	if len(fieldKinds) == 0 {
		p.log.Infow("measurement has no fields, skipping", logger.FieldMeasurement, measurement)
		return nil
	}

	tagKeys, err := p.source.TagKeys(ctx, sourceDB, measurement)
	if err != nil {
		return errors.Wrapf(err, "failed to get tag keys for %s.%s", sourceDB, measurement)
	}

	override := p.measurementOverride(measurement)
	fieldFilter := planner.NewFieldFilter(override.Include, override.Exclude, fieldTypeNames(override.Types))

	rangeStart, rangeEnd, err := p.jobWindow(ctx, sourceDB, measurement)
	if err != nil {
		return errors.Wrap(err, "failed to resolve job time window")
	}

	obsoleteThreshold, err := planner.ParseDuration(p.spec.Options.FieldObsoleteThreshold)
	if err != nil {
		return errors.Wrap(err, "failed to parse field obsolescence threshold")
	}

	sem := semaphore.NewWeighted(int64(p.spec.Options.Workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fieldErrs []error

	for field, kind := range fieldKinds {
		if !fieldFilter.Allows(field, kind.TypeName()) {
			p.stats.FieldsSkipped.Add(1)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			fieldErrs = append(fieldErrs, err)
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(field string) {
			defer sem.Release(1)
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					fieldErrs = append(fieldErrs, errors.Newf("field %s panicked: %v", field, r))
					mu.Unlock()
				}
			}()

			task := fieldTask{
				sourceDB:      sourceDB,
				destDB:        destDB,
				measurement:   measurement,
				field:         field,
				tags:          tagKeys,
				rangeStart:    rangeStart,
				rangeEnd:      rangeEnd,
				obsoleteAfter: obsoleteThreshold,
			}
			if err := p.processField(ctx, task); err != nil {
				mu.Lock()
				fieldErrs = append(fieldErrs, errors.Wrapf(err, "field %s", field))
				mu.Unlock()
				p.log.Errorw("field replication failed", logger.FieldField, field, logger.FieldError, err)
			}
		}(field)
	}

	wg.Wait()

	if len(fieldErrs) > 0 {
		p.stats.Errors.Add(int64(len(fieldErrs)))
		return errors.Newf("%d of %d fields failed", len(fieldErrs), len(fieldKinds))
	}
	return nil
}

// fieldTask is one field's replication unit: the original, unfiltered
// time window before per-field incremental/obsolescence narrowing.
type fieldTask struct {
	sourceDB      string
	destDB        string
	measurement   string
	field         string
	tags          []string
	rangeStart    time.Time
	rangeEnd      time.Time
	obsoleteAfter time.Duration
}

// processField replicates one field across its full resolved time window,
// in pagination-sized chunks.
func (p *Processor) processField(ctx context.Context, task fieldTask) error {
	start := task.rangeStart
	end := task.rangeEnd

	if p.spec.Options.BackupMode == jobspec.ModeIncremental {
		lastTS, ok, err := p.dest.LastFieldTimestamp(ctx, task.destDB, task.measurement, task.field)
		if err != nil {
			p.log.Warnw("failed to resolve field-level incremental start time, falling back to measurement level",
				logger.FieldField, task.field, logger.FieldError, err)
			lastTS, ok, err = p.dest.LastTimestamp(ctx, task.destDB, task.measurement)
			if err != nil {
				p.log.Warnw("failed to resolve incremental start time, falling back to full window",
					logger.FieldField, task.field, logger.FieldError, err)
				ok = false
			}
		}
		if ok {
			candidate := lastTS.Add(time.Nanosecond)
			if !candidate.Before(end) {
				p.stats.FieldsSkipped.Add(1)
				p.log.Infow("field has no new data", logger.FieldField, task.field)
				return nil
			}
			start = candidate
		}
	}

	if task.obsoleteAfter > 0 {
		lastTS, ok, err := p.dest.LastFieldTimestamp(ctx, task.destDB, task.measurement, task.field)
		if err == nil && planner.IsObsolete(lastTSOrZero(lastTS, ok), time.Now(), task.obsoleteAfter) && ok {
			p.stats.FieldsSkipped.Add(1)
			p.log.Infow("field is obsolete, skipping", logger.FieldField, task.field)
			return nil
		}
	}

	total, err := p.source.CountRecords(ctx, task.sourceDB, task.measurement, &start, &end)
	if err != nil {
		return errors.Wrap(err, "failed to count records")
	}
	if total == 0 {
		p.stats.FieldsSkipped.Add(1)
		return nil
	}

	chunks := planner.GenerateTimeChunks(start, end, p.spec.Options.DaysOfPagination)
	transferred := int64(0)

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		records, err := p.source.Query(ctx, tsdb.QueryParams{
			Database:    task.sourceDB,
			Measurement: task.measurement,
			Start:       chunk.Start,
			End:         chunk.End,
			Fields:      []string{task.field},
			Tags:        task.tags,
			GroupBy:     p.spec.Source.GroupBy,
		})
		if err != nil {
			return errors.Wrapf(err, "failed to query chunk [%s, %s)", chunk.Start, chunk.End)
		}
		if len(records) == 0 {
			continue
		}

		rows := recordsToRows(records, task.field)
		if len(rows) == 0 {
			continue
		}

		if err := p.dest.Write(ctx, task.destDB, task.measurement, rows); err != nil {
			return errors.Wrapf(err, "failed to write chunk [%s, %s)", chunk.Start, chunk.End)
		}
		transferred += int64(len(rows))
	}

	p.stats.FieldsProcessed.Add(1)
	p.stats.RecordsTransferred.Add(transferred)
	return nil
}

func lastTSOrZero(ts time.Time, ok bool) time.Time {
	if !ok {
		return time.Time{}
	}
	return ts
}

// recordsToRows converts queried records into write-ready Rows, splitting
// each record's values into the single requested field and its remaining
// string-valued, non-underscore-prefixed keys as tags — the same
// tag-vs-field heuristic the original tool applies on write.
func recordsToRows(records []tsdb.Record, field string) []tsdb.Row {
	rows := make([]tsdb.Row, 0, len(records))
	for _, rec := range records {
		value, ok := rec.Values[field]
		if !ok || value == nil {
			continue
		}

		row := tsdb.Row{
			Tags:   make(map[string]string),
			Fields: make(map[string]tsdb.FieldValue),
		}
		if !rec.Time.IsZero() {
			row.Timestamp = rec.Time.UnixNano()
		}
		row.Fields[field] = toFieldValue(value)

		for k, v := range rec.Values {
			if k == field {
				continue
			}
			if s, ok := v.(string); ok && len(k) > 0 && k[0] != '_' {
				row.Tags[k] = s
			}
		}

		rows = append(rows, row)
	}
	return rows
}

func toFieldValue(v interface{}) tsdb.FieldValue {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return tsdb.IntValue(i)
		}
		f, _ := val.Float64()
		return tsdb.Float64Value(f)
	case float64:
		return tsdb.Float64Value(val)
	case int64:
		return tsdb.IntValue(val)
	case bool:
		return tsdb.BoolValue(val)
	case string:
		return tsdb.StringValue(val)
	default:
		return tsdb.StringValue("")
	}
}

// jobWindow resolves the job's configured replication window: an explicit
// range for "range" mode, or [horizon, now) for "incremental" mode, where
// horizon is the source's oldest timestamp for measurement, or now-30d when
// the source has no data (spec.md §4.2 "Horizon resolution"). Per-field narrowing against
// the destination's own last-written timestamp happens in processField.
func (p *Processor) jobWindow(ctx context.Context, sourceDB, measurement string) (start, end time.Time, err error) {
	if p.spec.Options.BackupMode == jobspec.ModeRange {
		start, err = parseJobTimestamp(p.spec.Options.Range.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid range.start_date %q", p.spec.Options.Range.StartDate)
		}
		end, err = parseJobTimestamp(p.spec.Options.Range.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid range.end_date %q", p.spec.Options.Range.EndDate)
		}
		return start, end, nil
	}

	now := time.Now().UTC()
	return p.horizonFloor(ctx, sourceDB, measurement, now), now, nil
}

// horizonFloor returns the lower bound a fresh incremental job should start
// from for measurement: the source's oldest recorded timestamp, or now minus
// defaultHorizonLookback if the source has no data or TimeRange fails.
func (p *Processor) horizonFloor(ctx context.Context, sourceDB, measurement string, now time.Time) time.Time {
	floor := now.Add(-defaultHorizonLookback)

	first, _, err := p.source.TimeRange(ctx, sourceDB, measurement)
	if err != nil {
		p.log.Warnw("failed to resolve source time range, defaulting horizon",
			logger.FieldMeasurement, measurement, logger.FieldError, err, "lookback", defaultHorizonLookback)
		return floor
	}
	if first.IsZero() {
		return floor
	}
	return first
}

// parseJobTimestamp parses a job descriptor date/instant: either a bare
// ISO-8601 date (2024-01-01) or a full RFC3339 instant, with an optional
// literal "Z" UTC designator (spec.md §6, §8). time.RFC3339 already treats
// "Z" as +00:00, matching the original tool's
// datetime.fromisoformat(s.replace("Z", "+00:00")).
func parseJobTimestamp(s string) (time.Time, error) {
	if !strings.Contains(s, "T") {
		return time.Parse("2006-01-02", s)
	}
	return time.Parse(time.RFC3339, s)
}
