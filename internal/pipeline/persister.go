package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/namelens/sumlens/internal/metrics"
	"github.com/namelens/sumlens/internal/store"
)

const (
	// DefaultMaxInFlight bounds concurrent background writes.
	DefaultMaxInFlight = 64
	// DefaultPersistTimeout bounds one background write.
	DefaultPersistTimeout = 5 * time.Second
)

// Persister writes records in the background. At most MaxInFlight writes
// run at once; a record that finds no free slot is dropped and counted.
type Persister struct {
	store   ResultStore
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *logging.Logger
	wg      sync.WaitGroup
}

// NewPersister returns a persister over rs.
func NewPersister(rs ResultStore, maxInFlight int, timeout time.Duration, logger *logging.Logger) *Persister {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	return &Persister{
		store:   rs,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		timeout: timeout,
		logger:  logger,
	}
}

// Persist implements ResultPersister. The write outlives ctx's
// cancellation but keeps its values (request id, trace).
func (p *Persister) Persist(ctx context.Context, rec *store.SummaryRecord) bool {
	if p == nil || p.store == nil || rec == nil {
		return false
	}
	if !p.sem.TryAcquire(1) {
		metrics.RecordPersistenceWrite(metrics.PersistDropped)
		if p.logger != nil {
			p.logger.Warn("summary write dropped, too many writes in flight",
				zap.String("record_id", rec.ID))
		}
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		if err := p.store.SaveSummary(writeCtx, rec); err != nil {
			perr := &PersistenceError{RecordID: rec.ID, Err: err}
			metrics.RecordPersistenceWrite(metrics.PersistFailed)
			if p.logger != nil {
				p.logger.Error("summary write failed",
					zap.String("error_code", perr.Code()),
					zap.String("record_id", rec.ID),
					zap.Error(perr))
			}
			return
		}
		metrics.RecordPersistenceWrite(metrics.PersistSaved)
	}()
	return true
}

// Wait blocks until queued writes finish or ctx ends.
func (p *Persister) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
