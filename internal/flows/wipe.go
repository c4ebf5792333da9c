package flows

import (
	"context"

	"github.com/MrEthical07/sessionguard/internal/accounts"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// destroyConcurrency bounds backend deletes in flight per wipe batch or
// revocation.
const destroyConcurrency = 64

// WipeDeps captures the system-wide session wipe dependencies.
type WipeDeps struct {
	BatchSize int
	// Limiter paces batches. nil runs batches back to back.
	Limiter  *rate.Limiter
	Accounts accounts.Batcher
	Sessions SessionDeps
}

// WipeResult summarizes a completed wipe.
type WipeResult struct {
	Batches  int
	Accounts int
	Sessions int
}

// RunDeleteAll walks every account in index order and, batch by batch,
// deletes its session bookkeeping and destroys every session it referenced.
// Batches run sequentially; work within a batch runs concurrently. There is
// no checkpoint, so a failed wipe is simply run again.
func RunDeleteAll(ctx context.Context, deps WipeDeps) (WipeResult, error) {
	sd := deps.Sessions
	sd.defaults()
	if !sd.ready() || deps.Accounts == nil {
		return WipeResult{}, sd.Errors.EngineNotReady
	}

	var res WipeResult
	err := deps.Accounts.EachBatch(ctx, deps.BatchSize, func(ctx context.Context, batch []int64) error {
		if deps.Limiter != nil {
			if err := deps.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		lists, err := sd.Registry.MembersOf(ctx, batch)
		if err != nil {
			return err
		}
		var sids []string
		for _, list := range lists {
			sids = append(sids, list...)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return sd.Registry.Drop(gctx, batch)
		})
		g.Go(func() error {
			dg, dctx := errgroup.WithContext(gctx)
			dg.SetLimit(destroyConcurrency)
			for _, sid := range sids {
				dg.Go(func() error {
					return sd.Backend.Destroy(dctx, sid)
				})
			}
			return dg.Wait()
		})
		if err := g.Wait(); err != nil {
			return err
		}

		res.Batches++
		res.Accounts += len(batch)
		res.Sessions += len(sids)
		sd.MetricInc(sd.Metrics.WipeBatch)
		sd.MetricAdd(sd.Metrics.WipedSessions, uint64(len(sids)))
		sd.Info("session wipe batch complete",
			"batch", res.Batches,
			"accounts", len(batch),
			"sessions", len(sids),
		)
		return nil
	})
	return res, err
}
