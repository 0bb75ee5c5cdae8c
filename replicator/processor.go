package replicator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/internal/logger"
	"github.com/teranos/tsreplicate/jobspec"
	"github.com/teranos/tsreplicate/planner"
	"github.com/teranos/tsreplicate/tsdb"
)

// Processor drives a single JobSpec to completion against a source and
// destination Adapter pair.
type Processor struct {
	spec   *jobspec.JobSpec
	source tsdb.Adapter
	dest   tsdb.Adapter
	log    *zap.SugaredLogger
	stats  Stats
}

// NewProcessor builds a Processor for spec, wired to the given source and
// destination adapters.
func NewProcessor(spec *jobspec.JobSpec, source, dest tsdb.Adapter) *Processor {
	return &Processor{
		spec:   spec,
		source: source,
		dest:   dest,
		log:    logger.ComponentLogger("replicator").With(logger.FieldJobName, spec.Name),
	}
}

// Run executes the job end to end: readiness probing, destination
// preparation, planning, and per-measurement field replication. It never
// panics out to the caller — a recovered panic is folded into a failed
// Outcome so a crashing job cannot take down its supervisor
// (SPEC_FULL.md §4.1, §5).
func (p *Processor) Run(ctx context.Context) (outcome Outcome) {
	runID := uuid.NewString()
	outcome.JobName = p.spec.Name
	outcome.RunID = runID
	outcome.StartedAt = time.Now()

	log := p.log.With(logger.FieldRunID, runID)
	defer func() {
		if r := recover(); r != nil {
			p.stats.Errors.Add(1)
			outcome.Success = false
			outcome.Err = errors.Newf("job panicked: %v", r)
		}
		outcome.EndedAt = time.Now()
		outcome.Stats = p.stats.Snapshot()
	}()

	if err := p.waitForConnections(ctx); err != nil {
		outcome.Err = errors.Wrap(err, "connection readiness check failed")
		return outcome
	}

	if err := p.prepareDestinationDatabases(ctx); err != nil {
		outcome.Err = errors.Wrap(err, "failed to prepare destination databases")
		return outcome
	}

	databases, err := p.databasesToProcess(ctx)
	if err != nil {
		outcome.Err = errors.Wrap(err, "failed to resolve databases to process")
		return outcome
	}

	measurementFilter := planner.NewMeasurementFilter(p.spec.Measurements.Include, p.spec.Measurements.Exclude)

	for _, pair := range databases {
		if ctx.Err() != nil {
			outcome.Err = ctx.Err()
			return outcome
		}

		destDB := p.spec.DestinationDatabaseName(pair)
		if err := p.processDatabase(ctx, pair.Name, destDB, measurementFilter); err != nil {
			p.stats.Errors.Add(1)
			log.Errorw("database replication failed", logger.FieldDatabase, pair.Name, logger.FieldError, err)
			outcome.Err = err
			continue
		}
		p.stats.DatabasesProcessed.Add(1)
	}

	log.Infow("run finished", logger.FieldRecords, p.stats.RecordsTransferred.Load())
	outcome.Success = outcome.Err == nil
	return outcome
}

// processDatabase replicates every in-scope measurement of one database
// pair, sequentially — measurements within a database never run
// concurrently, only fields within a measurement do (SPEC_FULL.md §5).
func (p *Processor) processDatabase(ctx context.Context, sourceDB, destDB string, filter planner.MeasurementFilter) error {
	measurements, err := p.source.ListMeasurements(ctx, sourceDB)
	if err != nil {
		return errors.Wrapf(err, "failed to list measurements in %s", sourceDB)
	}

	for _, measurement := range measurements {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !filter.Allows(measurement) {
			continue
		}

		if err := p.processMeasurement(ctx, sourceDB, destDB, measurement); err != nil {
			p.stats.Errors.Add(1)
			p.log.Errorw("measurement replication failed",
				logger.FieldDatabase, sourceDB,
				logger.FieldMeasurement, measurement,
				logger.FieldError, err,
			)
			continue
		}
		p.stats.MeasurementsProcessed.Add(1)
	}
	return nil
}

// measurementOverride resolves the job's field policy for measurement,
// falling back to an empty policy (every field allowed) when no
// per-measurement override is configured.
func (p *Processor) measurementOverride(measurement string) jobspec.FieldPolicy {
	if override, ok := p.spec.Measurements.Specific[measurement]; ok {
		return override.Fields
	}
	return jobspec.FieldPolicy{}
}

func fieldTypeNames(types []jobspec.FieldType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
