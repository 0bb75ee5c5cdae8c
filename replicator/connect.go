package replicator

import (
	"context"
	"time"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/internal/logger"
	"github.com/teranos/tsreplicate/jobspec"
)

// waitForConnections blocks, retrying indefinitely, until both source and
// destination answer a connectivity probe. It only returns early if ctx is
// cancelled, matching the original tool's unbounded _wait_for_connections
// loop (a job with an unreachable endpoint waits rather than fails).
func (p *Processor) waitForConnections(ctx context.Context) error {
	delay := p.spec.InitialConnectionRetryDelay()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.log.Info("testing source connection")
		if err := p.source.TestConnection(ctx); err != nil {
			p.log.Warnw("source connection failed, retrying", "wait", delay, logger.FieldError, err)
			if !sleepOrDone(ctx, delay) {
				return ctx.Err()
			}
			continue
		}
		p.log.Info("source connection successful")

		p.log.Info("testing destination connection")
		if err := p.dest.TestConnection(ctx); err != nil {
			p.log.Warnw("destination connection failed, retrying", "wait", delay, logger.FieldError, err)
			if !sleepOrDone(ctx, delay) {
				return ctx.Err()
			}
			continue
		}
		p.log.Info("destination connection successful")
		return nil
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// prepareDestinationDatabases ensures every configured destination
// database exists before any data flows.
func (p *Processor) prepareDestinationDatabases(ctx context.Context) error {
	databases, err := p.databasesToProcess(ctx)
	if err != nil {
		return err
	}

	for _, pair := range databases {
		destDB := p.spec.DestinationDatabaseName(pair)
		p.log.Infow("creating destination database", logger.FieldDatabase, destDB)
		if err := p.dest.CreateDatabase(ctx, destDB); err != nil {
			return errors.Wrapf(err, "failed to create destination database %s", destDB)
		}
	}
	return nil
}

// databasesToProcess returns the job's configured database pairs, or, when
// none are configured, every non-system database the source reports (each
// mapped to itself as its own destination name).
func (p *Processor) databasesToProcess(ctx context.Context) ([]jobspec.DatabasePair, error) {
	if len(p.spec.Source.Databases) > 0 {
		return p.spec.Source.Databases, nil
	}

	p.log.Info("no databases configured, discovering all source databases")
	names, err := p.source.ListDatabases(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list source databases")
	}

	pairs := make([]jobspec.DatabasePair, len(names))
	for i, name := range names {
		pairs[i] = jobspec.DatabasePair{Name: name, Destination: name}
	}
	return pairs, nil
}
