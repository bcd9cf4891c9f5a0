package okr_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talenthub/performance-management/internal/okr"
)

var _ = Describe("Progress roll-up", func() {
	Describe("GoalCompletionPercent", func() {
		It("returns 0 for a goal with no tasks", func() {
			Expect(okr.GoalCompletionPercent(0, 0)).To(Equal(0.0))
		})

		It("returns 0 when nothing is completed", func() {
			Expect(okr.GoalCompletionPercent(0, 5)).To(Equal(0.0))
		})

		It("returns 100 when a single task is completed", func() {
			Expect(okr.GoalCompletionPercent(1, 1)).To(Equal(100.0))
		})

		It("returns 100 when all tasks are completed", func() {
			Expect(okr.GoalCompletionPercent(5, 5)).To(Equal(100.0))
		})

		It("computes partial completion from counts", func() {
			Expect(okr.GoalCompletionPercent(2, 5)).To(Equal(40.0))
		})

		It("rounds to two decimal places", func() {
			Expect(okr.GoalCompletionPercent(1, 3)).To(Equal(33.33))
			Expect(okr.GoalCompletionPercent(2, 3)).To(Equal(66.67))
		})
	})

	Describe("ObjectiveCompletionPercent", func() {
		It("returns 0 for an objective with no goals", func() {
			Expect(okr.ObjectiveCompletionPercent(nil)).To(Equal(0.0))
		})

		It("averages goal progress without weighting by task count", func() {
			Expect(okr.ObjectiveCompletionPercent([]float64{0, 100, 50})).To(Equal(50.0))
		})

		It("passes a single goal's progress through unchanged", func() {
			Expect(okr.ObjectiveCompletionPercent([]float64{42.5})).To(Equal(42.5))
		})

		It("rounds the mean to two decimal places", func() {
			Expect(okr.ObjectiveCompletionPercent([]float64{33.33, 33.33, 33.34})).To(Equal(33.33))
			Expect(okr.ObjectiveCompletionPercent([]float64{50, 50, 100})).To(Equal(66.67))
		})
	})
})
