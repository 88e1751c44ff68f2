package postprocess

import (
	"math"
	"sort"
)

// NMS applies class aware Non-Maximum Suppression, keeping the highest
// probability box out of any group of same class boxes overlapping by more
// than threshold
func NMS(dets []DetectResult, threshold float32) []DetectResult {

	order := make([]int, len(dets))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Probability > dets[order[b]].Probability
	})

	suppressed := make([]bool, len(dets))
	out := make([]DetectResult, 0, len(dets))

	for i, n := range order {

		if suppressed[n] {
			continue
		}

		out = append(out, dets[n])

		for _, m := range order[i+1:] {

			if suppressed[m] || dets[m].Class != dets[n].Class {
				continue
			}

			if calculateOverlap(dets[n].Box, dets[m].Box) > threshold {
				suppressed[m] = true
			}
		}
	}

	return out
}

// calculateOverlap works out the Intersection of Union (IoU) value of two
// boxes using inclusive pixel dimensions
func calculateOverlap(a, b BoxRect) float32 {

	w := math.Max(0, float64(min(a.Right, b.Right)-max(a.Left, b.Left)+1))
	h := math.Max(0, float64(min(a.Bottom, b.Bottom)-max(a.Top, b.Top)+1))
	intersection := w * h

	area0 := float64((a.Right - a.Left + 1) * (a.Bottom - a.Top + 1))
	area1 := float64((b.Right - b.Left + 1) * (b.Bottom - b.Top + 1))

	union := area0 + area1 - intersection

	if union <= 0 {
		return 0
	}

	return float32(intersection / union)
}
