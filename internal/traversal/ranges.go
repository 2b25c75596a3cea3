package traversal

// HeightRange is a half-open interval of block heights [Lo, Hi).
type HeightRange struct {
	Lo uint64
	Hi uint64
}

// Split divides [lo, hi) into consecutive ranges of width <= step,
// with the last range clipped to hi. The concatenation of the
// produced ranges equals [lo, hi) and no range is empty when hi > lo.
func Split(lo, hi, step uint64) []HeightRange {
	if step == 0 || lo >= hi {
		return nil
	}

	var out []HeightRange
	for start := lo; start < hi; start += step {
		end := start + step
		if end > hi {
			end = hi
		}
		out = append(out, HeightRange{Lo: start, Hi: end})
	}
	return out
}
