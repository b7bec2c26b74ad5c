package postprocess

import (
	"sort"

	"github.com/fruitsight/go-ripeness/images"
)

// ApplyGreedyNMS filters overlapping detections with greedy Non-Maximum
// Suppression.
//
// Candidates are processed in confidence-descending order; ties keep their
// decode order (lower anchor index first), which makes the result
// deterministic. Each picked detection suppresses every remaining candidate
// whose IoU with it is strictly greater than the threshold. The kept set
// therefore contains no pair overlapping above the threshold, and re-running
// suppression on its own output returns it unchanged.
//
// O(n²) in the candidate count, which stays small after thresholding.
//
// Arguments:
//   - detections: Candidate detections in decode order.
//   - iouThreshold: Overlap above which the lower-confidence box is dropped.
//
// Returns:
//   - Filtered detections, highest confidence first. Nil when no candidates
//     are provided.
func ApplyGreedyNMS(detections []Detection, iouThreshold float32) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	ordered := make([]Detection, n)
	copy(ordered, detections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	kept := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := ordered[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if images.CalculateIoU(anchor.Box, ordered[j].Box) > iouThreshold {
				used[j] = true
			}
		}
	}

	return kept
}
