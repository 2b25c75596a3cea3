// Package scraper implements the periodic control loop that derives
// the next height range to scan from watched contracts' checkpoints,
// drives the traversal engine, routes batches to the contract
// processor, and advances checkpoints.
package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
	"github.com/YatsauAliaksei/chain-scraper/internal/docstore"
	"github.com/YatsauAliaksei/chain-scraper/internal/processor"
	"github.com/YatsauAliaksei/chain-scraper/internal/traversal"
)

// sentinelHeight stands in for "the chain head" when deriving a
// forward-trailing or from-genesis scan range; traversal.Run clamps it
// down to the chain's actual latest height.
const sentinelHeight uint64 = 100_000_000_000

// Scraper is the scheduled scraper orchestrator (C7).
type Scraper struct {
	intervalSec uint64
	client      traversal.Fetcher
	store       *docstore.Store
	processor   *processor.Processor
	travConfig  traversal.Config
}

// New builds a Scraper. client is the RPC transport (C1), store the
// document-store adapter (C4), proc the contract processor (C6).
func New(intervalSec uint64, client traversal.Fetcher, store *docstore.Store, proc *processor.Processor) *Scraper {
	return &Scraper{
		intervalSec: intervalSec,
		client:      client,
		store:       store,
		processor:   proc,
		travConfig:  traversal.DefaultConfig(),
	}
}

// Run executes one pass immediately, then schedules a recurring pass
// every intervalSec seconds until ctx is cancelled.
func (s *Scraper) Run(ctx context.Context) error {
	s.runPass(ctx)

	c := cron.New()
	spec := fmt.Sprintf("@every %ds", s.intervalSec)
	if _, err := c.AddFunc(spec, func() {
		logrus.Info("starting scheduled pass...")
		s.runPass(ctx)
	}); err != nil {
		return fmt.Errorf("scraper: schedule pass: %w", err)
	}

	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// runPass runs exactly one pass of the control loop described in
// spec §4.7. Errors are logged; the pass simply ends early so the
// next tick retries.
func (s *Scraper) runPass(ctx context.Context) {
	contracts, err := s.store.ListWatchedContracts(ctx)
	if err != nil {
		logrus.Errorf("scraper: failed to list watched contracts: %v", err)
		return
	}
	if len(contracts) == 0 {
		logrus.Info("no watched contracts, nothing to do")
		return
	}

	rng, err := computeScanRange(contracts)
	if err != nil {
		logrus.Errorf("scraper: %v", err)
		return
	}

	watched := make(map[string]struct{}, len(contracts))
	for _, c := range contracts {
		watched[strings.ToLower(c.Address)] = struct{}{}
	}

	logrus.Infof("starting pass over range [%d, %d)", rng.Lo, rng.Hi)

	out, errCh, ok := traversal.Run(ctx, s.client, watched, rng, s.travConfig)
	if !ok {
		logrus.Info("traversal in progress or nothing to scan, skipping this tick")
		return
	}

	for out != nil || errCh != nil {
		select {
		case batch, more := <-out:
			if !more {
				out = nil
				continue
			}
			s.handleBatch(ctx, contracts, watched, batch)
		case fetchErr, more := <-errCh:
			if !more {
				errCh = nil
				continue
			}
			if fetchErr != nil {
				logrus.Errorf("scraper: traversal error, ending pass early: %v", fetchErr)
			}
		}
	}
}

func (s *Scraper) handleBatch(ctx context.Context, contracts []chainmodel.Contract, watched map[string]struct{}, batch chainmodel.ChainBatch) {
	if err := s.store.SaveChainBatch(ctx, batch); err != nil {
		logrus.Errorf("scraper: failed to persist batch [%d,%d): %v", batch.Lo, batch.Hi, err)
		return
	}

	byAddress := make(map[string][]chainmodel.Transaction)
	for _, tx := range batch.Transactions() {
		if !tx.HasRecipient() {
			continue
		}
		to := strings.ToLower(tx.To)
		if _, ok := watched[to]; !ok {
			continue
		}
		byAddress[to] = append(byAddress[to], tx)
	}

	chunk := traversal.HeightRange{Lo: batch.Lo, Hi: batch.Hi}

	for i := range contracts {
		c := contracts[i]
		txs, ok := byAddress[strings.ToLower(c.Address)]
		if !ok || len(txs) == 0 {
			continue
		}

		logrus.Infof("found %d transactions for contract %s", len(txs), c.Address)

		if err := s.processor.ProcessContract(ctx, c, txs); err != nil {
			logrus.Errorf("scraper: failed to process contract %s: %v", c.Address, err)
			continue
		}

		updated := mergeProcessedRange(c.ProcessedRange, chunk)
		c.ProcessedRange = &updated
		contracts[i] = c

		if err := s.store.UpdateWatchedContract(ctx, c); err != nil {
			logrus.Errorf("scraper: failed to update checkpoint for %s: %v", c.Address, err)
		}
	}
}

// mergeProcessedRange extends a contract's processed_range to cover
// the just-scanned outer chunk. The merge is order-independent: it
// never depends on which contract or which chunk of a multi-chunk
// pass is handled first, only on the chunk and the contract's own
// prior state.
func mergeProcessedRange(prior *chainmodel.ProcessedRange, chunk traversal.HeightRange) chainmodel.ProcessedRange {
	lo := int64(chunk.Lo)
	hi := int64(chunk.Hi)

	if prior == nil {
		return chainmodel.ProcessedRange{Start: lo, End: hi}
	}

	start := prior.Start
	if lo < start {
		start = lo
	}
	end := prior.End
	if hi > end {
		end = hi
	}
	return chainmodel.ProcessedRange{Start: start, End: end}
}

// computeScanRange derives the next range to scan from the watched
// contracts' checkpoints, per spec §4.7.2.
func computeScanRange(contracts []chainmodel.Contract) (traversal.HeightRange, error) {
	maxLow := int64(-1)
	minHigh := int64(-1)
	any := false

	for _, c := range contracts {
		if c.ProcessedRange == nil {
			continue
		}
		any = true
		if c.ProcessedRange.Start > maxLow {
			maxLow = c.ProcessedRange.Start
		}
		if minHigh == -1 || c.ProcessedRange.End < minHigh {
			minHigh = c.ProcessedRange.End
		}
	}

	switch {
	case any && maxLow != 0:
		// Case A: backfilling downward toward genesis.
		return traversal.HeightRange{Lo: 0, Hi: uint64(maxLow)}, nil
	case any && maxLow == 0:
		// Case B: trailing forward from the lowest common checkpoint.
		return traversal.HeightRange{Lo: uint64(minHigh), Hi: sentinelHeight}, nil
	case !any:
		// Case C: no checkpoints at all yet.
		return traversal.HeightRange{Lo: 0, Hi: sentinelHeight}, nil
	default:
		return traversal.HeightRange{}, fmt.Errorf("unexpected checkpoint combination: maxLow=%d minHigh=%d", maxLow, minHigh)
	}
}
