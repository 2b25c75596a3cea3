package scraper

import (
	"testing"

	"github.com/YatsauAliaksei/chain-scraper/internal/chainmodel"
	"github.com/YatsauAliaksei/chain-scraper/internal/traversal"
)

func TestComputeScanRangeNoCheckpoints(t *testing.T) {
	contracts := []chainmodel.Contract{
		chainmodel.NewContract("0xaaa", "[]"),
		chainmodel.NewContract("0xbbb", "[]"),
	}

	rng, err := computeScanRange(contracts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.Lo != 0 || rng.Hi != sentinelHeight {
		t.Fatalf("expected [0, sentinel), got [%d, %d)", rng.Lo, rng.Hi)
	}
}

func TestComputeScanRangeBackfill(t *testing.T) {
	a := chainmodel.NewContract("0xaaa", "[]")
	a.ProcessedRange = &chainmodel.ProcessedRange{Start: 500, End: 1000}
	b := chainmodel.NewContract("0xbbb", "[]")
	b.ProcessedRange = &chainmodel.ProcessedRange{Start: 200, End: 900}

	rng, err := computeScanRange([]chainmodel.Contract{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// max_low = 500 != 0, so backfill downward from genesis to max_low.
	if rng.Lo != 0 || rng.Hi != 500 {
		t.Fatalf("expected [0, 500), got [%d, %d)", rng.Lo, rng.Hi)
	}
}

func TestComputeScanRangeTrailForward(t *testing.T) {
	a := chainmodel.NewContract("0xaaa", "[]")
	a.ProcessedRange = &chainmodel.ProcessedRange{Start: 0, End: 1000}
	b := chainmodel.NewContract("0xbbb", "[]")
	b.ProcessedRange = &chainmodel.ProcessedRange{Start: 0, End: 1500}

	rng, err := computeScanRange([]chainmodel.Contract{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// max_low = 0, so trail forward from min_high = 1000.
	if rng.Lo != 1000 || rng.Hi != sentinelHeight {
		t.Fatalf("expected [1000, sentinel), got [%d, %d)", rng.Lo, rng.Hi)
	}
}

func TestMergeProcessedRangeInitializes(t *testing.T) {
	r := mergeProcessedRange(nil, traversal.HeightRange{Lo: 1000, Hi: 1500})
	if r.Start != 1000 || r.End != 1500 {
		t.Fatalf("expected [1000,1500), got [%d,%d)", r.Start, r.End)
	}
}

func TestMergeProcessedRangeExtendsForward(t *testing.T) {
	prior := &chainmodel.ProcessedRange{Start: 0, End: 1000}
	r := mergeProcessedRange(prior, traversal.HeightRange{Lo: 1000, Hi: 1500})
	if r.Start != 0 || r.End != 1500 {
		t.Fatalf("expected [0,1500), got [%d,%d)", r.Start, r.End)
	}
}

func TestMergeProcessedRangeExtendsBackward(t *testing.T) {
	prior := &chainmodel.ProcessedRange{Start: 500, End: 1000}
	r := mergeProcessedRange(prior, traversal.HeightRange{Lo: 100, Hi: 500})
	if r.Start != 100 || r.End != 1000 {
		t.Fatalf("expected [100,1000), got [%d,%d)", r.Start, r.End)
	}

	// Applying the same chunk again (idempotent re-run) must not regress.
	r2 := mergeProcessedRange(&r, traversal.HeightRange{Lo: 100, Hi: 500})
	if r2.Start != 100 || r2.End != 1000 {
		t.Fatalf("expected unchanged [100,1000), got [%d,%d)", r2.Start, r2.End)
	}
}

func TestMergeProcessedRangeNeverRegressesPerContractIndependently(t *testing.T) {
	// Two contracts backfilling the same outer chunk must each advance
	// their own start independently of the other's prior checkpoint.
	aPrior := &chainmodel.ProcessedRange{Start: 900, End: 1000}
	bPrior := &chainmodel.ProcessedRange{Start: 300, End: 1000}
	chunk := traversal.HeightRange{Lo: 500, Hi: 900}

	a := mergeProcessedRange(aPrior, chunk)
	b := mergeProcessedRange(bPrior, chunk)

	if a.Start != 500 {
		t.Fatalf("contract a should advance its own start to 500, got %d", a.Start)
	}
	if b.Start != 300 {
		t.Fatalf("contract b's start must stay at its own prior value 300, got %d", b.Start)
	}
}
