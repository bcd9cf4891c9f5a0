package okr

import "math"

// round2 rounds to two decimal places, matching how progress percentages are
// stored and reported everywhere in the API.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GoalCompletionPercent computes a goal's progress from its task counts. The
// formula is count-based on purpose: a task contributes only once its status
// is completed, regardless of its own progress percentage. A goal with no
// tasks reports 0.
func GoalCompletionPercent(completedTasks, totalTasks int64) float64 {
	if totalTasks == 0 {
		return 0.0
	}
	return round2(float64(completedTasks) / float64(totalTasks) * 100)
}

// ObjectiveCompletionPercent is the unweighted mean of the goal progress
// values, independent of how many tasks each goal carries. An objective with
// no goals reports 0.
func ObjectiveCompletionPercent(goalProgress []float64) float64 {
	if len(goalProgress) == 0 {
		return 0.0
	}
	var sum float64
	for _, p := range goalProgress {
		sum += p
	}
	return round2(sum / float64(len(goalProgress)))
}
