package traversal

import (
	"context"
	"fmt"
	"testing"

	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
)

type fakeFetcher struct {
	latest uint64
	blocks map[uint64]*chainmodel.Block
}

func (f *fakeFetcher) LatestHeight(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeFetcher) BlockByHeight(ctx context.Context, height uint64) (*chainmodel.Block, error) {
	b, ok := f.blocks[height]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func blockWithTxTo(height uint64, to string) *chainmodel.Block {
	return &chainmodel.Block{
		Height:    height,
		Timestamp: 1000 + height,
		Transactions: []chainmodel.Transaction{
			{Hash: fmt.Sprintf("0xhash%d", height), To: to, BlockHeight: height},
		},
	}
}

func resetFlag() {
	travMu.Lock()
	travInProgress = false
	travMu.Unlock()
}

func drain(t *testing.T, out <-chan chainmodel.ChainBatch, errCh <-chan error) ([]chainmodel.ChainBatch, error) {
	t.Helper()
	var batches []chainmodel.ChainBatch
	for out != nil || errCh != nil {
		select {
		case b, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			batches = append(batches, b)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return batches, e
		}
	}
	return batches, nil
}

func TestRunFiltersAndOrdersOuterChunksDescending(t *testing.T) {
	resetFlag()
	defer resetFlag()

	fetcher := &fakeFetcher{
		latest: 250,
		blocks: map[uint64]*chainmodel.Block{
			5:   blockWithTxTo(5, "0xWATCHED"),
			60:  blockWithTxTo(60, "0xnotwatched"),
			120: blockWithTxTo(120, "0xwatched"),
		},
	}

	watched := map[string]struct{}{"0xwatched": {}}

	out, errCh, ok := Run(context.Background(), fetcher, watched, HeightRange{Lo: 0, Hi: 200}, Config{OuterChunk: 100, InnerBatch: 20})
	if !ok {
		t.Fatalf("expected a stream")
	}

	batches, err := drain(t, out, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 outer chunks, got %d", len(batches))
	}
	// Highest chunk first.
	if batches[0].Lo != 100 || batches[0].Hi != 200 {
		t.Fatalf("expected first batch to be [100,200), got %+v", batches[0])
	}
	if len(batches[0].Blocks) != 1 || batches[0].Blocks[0].Height != 120 {
		t.Fatalf("expected only block 120 to match watched address, got %+v", batches[0].Blocks)
	}
	if batches[1].Lo != 0 || batches[1].Hi != 100 {
		t.Fatalf("expected second batch to be [0,100), got %+v", batches[1])
	}
	if len(batches[1].Blocks) != 0 {
		t.Fatalf("expected no matching blocks in [0,100), got %+v", batches[1].Blocks)
	}
}

func TestRunClampsRangeToLatest(t *testing.T) {
	resetFlag()
	defer resetFlag()

	fetcher := &fakeFetcher{latest: 50, blocks: map[uint64]*chainmodel.Block{}}
	watched := map[string]struct{}{"0xwatched": {}}

	out, errCh, ok := Run(context.Background(), fetcher, watched, HeightRange{Lo: 0, Hi: 1_000_000}, Config{OuterChunk: 100, InnerBatch: 20})
	if !ok {
		t.Fatalf("expected a stream")
	}
	batches, err := drain(t, out, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected a single clamped chunk, got %d", len(batches))
	}
	if batches[0].Hi != 50 {
		t.Fatalf("expected range clamped to latest=50, got hi=%d", batches[0].Hi)
	}
}

func TestRunNoStreamWhenLoBeyondLatest(t *testing.T) {
	resetFlag()
	defer resetFlag()

	fetcher := &fakeFetcher{latest: 10, blocks: map[uint64]*chainmodel.Block{}}

	_, _, ok := Run(context.Background(), fetcher, nil, HeightRange{Lo: 100, Hi: 200}, DefaultConfig())
	if ok {
		t.Fatalf("expected no stream when lo > latest")
	}
}

func TestRunRejectsOverlappingPass(t *testing.T) {
	resetFlag()
	defer resetFlag()

	fetcher := &fakeFetcher{latest: 1000, blocks: map[uint64]*chainmodel.Block{}}

	out1, errCh1, ok := Run(context.Background(), fetcher, nil, HeightRange{Lo: 0, Hi: 500}, Config{OuterChunk: 100, InnerBatch: 20})
	if !ok {
		t.Fatalf("expected first run to acquire the flag")
	}

	_, _, ok2 := Run(context.Background(), fetcher, nil, HeightRange{Lo: 0, Hi: 500}, Config{OuterChunk: 100, InnerBatch: 20})
	if ok2 {
		t.Fatalf("expected second concurrent run to be rejected")
	}

	// Drain the first stream so the flag is released for other tests.
	drain(t, out1, errCh1)
}
