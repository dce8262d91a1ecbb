package aggregator

import (
	"sort"

	"cntExplorer/explorer/common"
	"cntExplorer/explorer/normalize"
)

// CirculatingSupply sums the scaled balances of every listed holder. Burn and
// treasury addresses are not excluded.
func CirculatingSupply(holders []common.Holder) float64 {
	var total float64
	for _, h := range holders {
		total += h.Scaled
	}
	return total
}

// TopHolders returns the n largest holders by raw quantity. Equal quantities
// keep their upstream order. The input is not modified.
func TopHolders(holders []common.Holder, n int) []common.Holder {
	sorted := make([]common.Holder, len(holders))
	copy(sorted, holders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Raw > sorted[j].Raw })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// rescale recomputes scaled balances once decimals are known.
func rescale(holders []common.Holder, decimals int) []common.Holder {
	out := make([]common.Holder, len(holders))
	for i, h := range holders {
		h.Scaled = normalize.Scale(h.Raw, decimals)
		out[i] = h
	}
	return out
}

// pageWindow returns the [start, end) slice bounds of page within total items.
// Pages past the last one give an empty window.
func pageWindow(page, size, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || page-1 >= pageCount(size, total) {
		return total, total
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

func pageCount(size, total int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// confirmations is the depth of a block below tip, never negative.
func confirmations(tip *common.Tip, height *int64) *int64 {
	if tip == nil || height == nil {
		return nil
	}
	c := tip.BlockNo - *height
	if c < 0 {
		c = 0
	}
	return &c
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
