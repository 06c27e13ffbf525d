package geom

import "math"

// ExpandToAspect grows the region (never shrinks it) until width/height equals aspect,
// then slides it back inside the frame. The frame is treated as square in normalized
// units, so aspect is expressed in normalized units too.
func ExpandToAspect(r Region, aspect float64) Region {
	if aspect <= 0 || r.Height() <= 0 {
		return r
	}

	w, h := r.Width(), r.Height()
	cx, cy := r.Center()

	switch cur := w / h; {
	case cur < aspect:
		w = h * aspect
	case cur > aspect:
		h = w / aspect
	}

	l, rt := cx-w/2, cx+w/2
	t, b := cy-h/2, cy+h/2

	dx := math.Min(0, l) + math.Max(0, rt-1)
	dy := math.Min(0, t) + math.Max(0, b-1)

	return Region{Left: l - dx, Top: t - dy, Right: rt - dx, Bottom: b - dy}.Clamp()
}

// SnapToBestAspect expands the region to each candidate aspect and keeps the one
// that grows the area the least.
func SnapToBestAspect(r Region, candidates []float64) Region {
	base := r.Area()
	if base <= 0 {
		return r
	}

	best := r
	bestIncrease := math.Inf(1)
	for _, a := range candidates {
		e := ExpandToAspect(r, a)
		if inc := e.Area() / base; inc < bestIncrease {
			bestIncrease = inc
			best = e
		}
	}
	return best
}
