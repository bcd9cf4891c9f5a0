package analytics

import (
	"fmt"
	"sort"
	"time"
)

// Trend intervals accepted by the feedback engagement endpoint.
const (
	IntervalWeekly  = "weekly"
	IntervalMonthly = "monthly"
)

// OKRProgressReport summarizes objective, goal and task state for the
// requested scope. Everything is recomputed from current rows on each call.
type OKRProgressReport struct {
	TotalObjectives          int64            `json:"total_objectives"`
	AverageObjectiveProgress float64          `json:"average_objective_progress"`
	GoalsByStatus            map[string]int64 `json:"goals_by_status"`
	TasksCompleted           int64            `json:"tasks_completed"`
	TasksTotal               int64            `json:"tasks_total"`
	TaskCompletionRate       float64          `json:"task_completion_rate"`
}

// TrendBucket is one period of a time-bucketed count, labelled so that
// lexicographic order equals chronological order.
type TrendBucket struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

type FeedbackEngagementReport struct {
	Total    int64            `json:"total"`
	Given    int64            `json:"given"`
	Received int64            `json:"received"`
	ByType   map[string]int64 `json:"by_type"`
	Interval string           `json:"interval"`
	Trend    []TrendBucket    `json:"trend"`
}

type CycleParticipation struct {
	CycleID          int64   `json:"cycle_id"`
	Name             string  `json:"name"`
	Status           string  `json:"status"`
	Participants     int64   `json:"participants"`
	SelfSubmitted    int64   `json:"self_assessments_submitted"`
	SelfTotal        int64   `json:"self_assessments_total"`
	PeerCompleted    int64   `json:"peer_reviews_completed"`
	PeerTotal        int64   `json:"peer_reviews_total"`
	ManagerCompleted int64   `json:"manager_reviews_completed"`
	ManagerTotal     int64   `json:"manager_reviews_total"`
	Rate             float64 `json:"participation_rate"`
}

type ReviewParticipationReport struct {
	Cycles []CycleParticipation `json:"cycles"`
}

// SentimentReport derives sentiment from feedback types: praise counts as
// positive, concern as negative, suggestion as neutral.
type SentimentReport struct {
	Total    int64   `json:"total"`
	Positive int64   `json:"positive"`
	Neutral  int64   `json:"neutral"`
	Negative int64   `json:"negative"`
	Score    float64 `json:"score"`
}

type CycleCompletion struct {
	CycleID              int64   `json:"cycle_id"`
	Name                 string  `json:"name"`
	Status               string  `json:"status"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type CycleCompletionReport struct {
	Cycles []CycleCompletion `json:"cycles"`
}

// BucketTrend groups timestamps into weekly or monthly buckets and returns
// them chronologically ascending regardless of input order. Weekly buckets use
// ISO week labels (2026-W09), monthly buckets use 2026-03.
func BucketTrend(times []time.Time, interval string) []TrendBucket {
	counts := make(map[string]int64)
	for _, t := range times {
		var label string
		if interval == IntervalMonthly {
			label = t.Format("2006-01")
		} else {
			year, week := t.ISOWeek()
			label = fmt.Sprintf("%d-W%02d", year, week)
		}
		counts[label]++
	}

	buckets := make([]TrendBucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, TrendBucket{Period: label, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period < buckets[j].Period
	})
	return buckets
}
