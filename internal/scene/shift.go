package scene

import "math"

// EstimateShift block-matches curr against prev over integer offsets in
// [-radius, radius]². The returned (dx, dy) minimizes the sum of absolute
// differences between prev(x, y) and curr(x-dx, y-dy) over the overlapping cells;
// cells that fall outside curr are skipped. The scan runs dy outer and dx inner,
// both ascending, and the first minimum wins.
//
// cost is the mean absolute difference per overlapping cell at the chosen offset,
// so it stays comparable across offsets and signature sizes.
func EstimateShift(prev, curr Signature, radius int) (dx, dy int, cost float64) {
	if prev.Empty() || prev.Size != curr.Size || radius < 0 {
		return 0, 0, 1
	}
	n := prev.Size
	if radius >= n {
		radius = n - 1
	}

	best := math.Inf(1)
	cost = 1
	for oy := -radius; oy <= radius; oy++ {
		for ox := -radius; ox <= radius; ox++ {
			var sad float64
			var count int
			for y := 0; y < n; y++ {
				cy := y - oy
				if cy < 0 || cy >= n {
					continue
				}
				for x := 0; x < n; x++ {
					cx := x - ox
					if cx < 0 || cx >= n {
						continue
					}
					sad += math.Abs(prev.Cells[y*n+x] - curr.Cells[cy*n+cx])
					count++
				}
			}
			if count == 0 {
				continue
			}
			if sad < best {
				best = sad
				dx, dy = ox, oy
				cost = sad / float64(count)
			}
		}
	}
	return dx, dy, cost
}
