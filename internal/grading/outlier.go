package grading

import (
	"fmt"
	"math"
)

// Below this mean the relative deviation is meaningless, so nothing is
// excluded.
const outlierMeanFloor = 1e-9

// DetectOutlier runs a single pass over the ensemble's overall scores and
// returns the index of at most one outlier: the score whose relative
// deviation from the mean of all scores is largest, if that deviation
// exceeds thresholdPct. The mean is computed once over the full set and not
// recomputed after exclusion.
func DetectOutlier(scores []float64, thresholdPct float64) (idx int, reason string, found bool) {
	if len(scores) < 3 {
		return 0, "", false
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	if math.Abs(mean) < outlierMeanFloor {
		return 0, "", false
	}

	maxDev, maxIdx := 0.0, -1
	for i, s := range scores {
		dev := math.Abs(s-mean) / mean * 100
		if dev > maxDev {
			maxDev, maxIdx = dev, i
		}
	}
	if maxDev <= thresholdPct {
		return 0, "", false
	}
	return maxIdx, fmt.Sprintf("score %.1f deviates %.1f%% from ensemble mean %.1f (threshold %.0f%%)",
		scores[maxIdx], maxDev, mean, thresholdPct), true
}
