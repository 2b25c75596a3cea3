// Package traversal implements the batched block-range walker: given
// a height range and tuning parameters, it fans out bounded
// concurrent fetches per outer chunk and yields a lazy sequence of
// chainmodel.ChainBatch values filtered to the watched-address set.
package traversal

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
)

// Fetcher is the subset of the RPC transport the traversal engine
// needs: the chain's current height and a single block fetch by
// height. A nil block with a nil error means the node does not yet
// have that height.
type Fetcher interface {
	LatestHeight(ctx context.Context) (uint64, error)
	BlockByHeight(ctx context.Context, height uint64) (*chainmodel.Block, error)
}

// Config tunes the traversal: how many heights make up one outer
// chunk (the unit a ChainBatch is yielded for), how many heights make
// up one concurrently-fetched inner sub-range.
type Config struct {
	OuterChunk uint64
	InnerBatch uint64
}

// DefaultConfig mirrors the typical values named in the design: a
// 30,000-height outer chunk scanned in sub-ranges of 10.
func DefaultConfig() Config {
	return Config{OuterChunk: 30_000, InnerBatch: 10}
}

var (
	travMu         sync.Mutex
	travInProgress bool
)

// acquire takes the process-wide traversal-in-progress flag. It
// serializes orchestrator ticks with each other; only one Run may be
// in flight at a time.
func acquire() bool {
	travMu.Lock()
	defer travMu.Unlock()
	if travInProgress {
		return false
	}
	travInProgress = true
	return true
}

func release() {
	travMu.Lock()
	defer travMu.Unlock()
	travInProgress = false
}

// Run walks [rng.Lo, rng.Hi) from the highest outer chunk down to the
// lowest, yielding one ChainBatch per outer chunk on the returned
// channel. The second return value is false when the traversal flag
// is already taken, the chain's latest height cannot be fetched, or
// the range starts beyond the chain's current head; in each case no
// stream is produced and the flag is left as it was found. Once a
// stream is returned, the traversal flag is held until the channel is
// drained (or ctx is cancelled) and is always cleared on exit; both
// returned channels are closed at that point.
//
// A transient fetch error is sent on the returned error channel and
// ends the stream early; remaining heights are simply not yielded
// this pass and are retried by the next orchestrator tick.
func Run(ctx context.Context, client Fetcher, watched map[string]struct{}, rng HeightRange, cfg Config) (<-chan chainmodel.ChainBatch, <-chan error, bool) {
	if !acquire() {
		logrus.Debug("traversal already in progress")
		return nil, nil, false
	}

	latest, err := client.LatestHeight(ctx)
	if err != nil {
		release()
		logrus.Warnf("traversal: failed to fetch latest height: %v", err)
		return nil, nil, false
	}

	if rng.Lo > latest {
		release()
		return nil, nil, false
	}
	if rng.Hi > latest {
		rng.Hi = latest
		logrus.Infof("traversal: range clamped to chain head: [%d, %d)", rng.Lo, rng.Hi)
	}

	outerChunks := Split(rng.Lo, rng.Hi, cfg.OuterChunk)
	reverse(outerChunks)

	out := make(chan chainmodel.ChainBatch)
	errCh := make(chan error, 1)

	go func() {
		defer release()
		defer close(errCh)
		defer close(out)

		for _, chunk := range outerChunks {
			select {
			case <-ctx.Done():
				return
			default:
			}

			innerRanges := Split(chunk.Lo, chunk.Hi, cfg.InnerBatch)
			blocks, err := scanOuterChunk(ctx, client, innerRanges)
			if err != nil {
				logrus.Warnf("traversal: fetch failed for chunk [%d,%d): %v", chunk.Lo, chunk.Hi, err)
				select {
				case errCh <- err:
				default:
				}
				return
			}

			filtered := filterBlocks(blocks, watched)
			logrus.Infof("traversal: chunk [%d,%d) produced %d matching blocks", chunk.Lo, chunk.Hi, len(filtered))

			select {
			case out <- chainmodel.ChainBatch{Lo: chunk.Lo, Hi: chunk.Hi, Blocks: filtered}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh, true
}

func reverse(rs []HeightRange) {
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
}

// scanOuterChunk spawns one goroutine per inner sub-range, each
// fetching its heights sequentially and in ascending order, and joins
// them into a single block slice. No ordering is guaranteed across
// sub-ranges.
func scanOuterChunk(ctx context.Context, client Fetcher, subRanges []HeightRange) ([]chainmodel.Block, error) {
	type result struct {
		blocks []chainmodel.Block
		err    error
	}

	results := make([]result, len(subRanges))
	var wg sync.WaitGroup

	for i, r := range subRanges {
		wg.Add(1)
		go func(i int, r HeightRange) {
			defer wg.Done()
			blocks, err := scanSubRange(ctx, client, r)
			results[i] = result{blocks: blocks, err: err}
		}(i, r)
	}
	wg.Wait()

	var all []chainmodel.Block
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		all = append(all, res.blocks...)
	}
	return all, nil
}

// scanSubRange fetches heights in ascending order. A None result (the
// node does not yet have this height) stops the sub-range early
// without error; a transport error is returned to the caller.
func scanSubRange(ctx context.Context, client Fetcher, r HeightRange) ([]chainmodel.Block, error) {
	var blocks []chainmodel.Block

	for h := r.Lo; h < r.Hi; h++ {
		select {
		case <-ctx.Done():
			return blocks, nil
		default:
		}

		block, err := client.BlockByHeight(ctx, h)
		if err != nil {
			return nil, err
		}
		if block == nil {
			break
		}
		if len(block.Transactions) > 0 {
			blocks = append(blocks, *block)
		}
	}

	return blocks, nil
}

// filterBlocks retains only blocks carrying at least one transaction
// whose lower-cased recipient is in the watched-address set.
func filterBlocks(blocks []chainmodel.Block, watched map[string]struct{}) []chainmodel.Block {
	if len(watched) == 0 {
		return nil
	}

	var out []chainmodel.Block
	for _, blk := range blocks {
		for _, tx := range blk.Transactions {
			if !tx.HasRecipient() {
				continue
			}
			if _, ok := watched[strings.ToLower(tx.To)]; ok {
				out = append(out, blk)
				break
			}
		}
	}
	return out
}
