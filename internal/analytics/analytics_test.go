package analytics_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/analytics"
	"github.com/talenthub/performance-management/internal/feedback"
	"github.com/talenthub/performance-management/internal/identity"
	"github.com/talenthub/performance-management/internal/okr"
	"github.com/talenthub/performance-management/internal/review"
)

func TestAnalytics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Analytics Suite")
}

func appErrStatus(err error) int {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

var _ = Describe("ParseParams", func() {
	It("parses dates, user_id and interval", func() {
		p, err := analytics.ParseParams(url.Values{
			"start_date": {"2026-01-01"},
			"end_date":   {"2026-03-31"},
			"user_id":    {"7"},
			"interval":   {"monthly"},
			"department": {"engineering"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.StartDate.Format("2006-01-02")).To(Equal("2026-01-01"))
		Expect(*p.UserID).To(Equal(int64(7)))
		Expect(p.Interval).To(Equal(analytics.IntervalMonthly))
		Expect(p.DepartmentName).To(Equal("engineering"))
	})

	It("treats the end date as inclusive", func() {
		p, err := analytics.ParseParams(url.Values{"end_date": {"2026-03-31"}})
		Expect(err).NotTo(HaveOccurred())
		lastMoment := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
		Expect(p.EndDate.After(lastMoment)).To(BeTrue())
	})

	It("rejects malformed dates", func() {
		_, err := analytics.ParseParams(url.Values{"start_date": {"03/01/2026"}})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a non-integer user_id", func() {
		_, err := analytics.ParseParams(url.Values{"user_id": {"abc"}})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown interval", func() {
		_, err := analytics.ParseParams(url.Values{"interval": {"daily"}})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ApplyRoleScope", func() {
	It("pins individual contributors to themselves and clears the department", func() {
		ic := &identity.User{ID: 3, Role: identity.RoleIndividualContributor, DepartmentID: 1}
		other := int64(999)
		p := &analytics.Params{UserID: &other, DepartmentName: "engineering"}

		p.ApplyRoleScope(ic)
		Expect(*p.UserID).To(Equal(int64(3)))
		Expect(p.DepartmentName).To(BeEmpty())
		Expect(p.DepartmentID).To(BeNil())
	})

	It("defaults managers to their own department", func() {
		manager := &identity.User{ID: 2, Role: identity.RoleManager, DepartmentID: 4}
		p := &analytics.Params{}

		p.ApplyRoleScope(manager)
		Expect(*p.DepartmentID).To(Equal(int64(4)))
	})

	It("keeps an explicit department filter for managers", func() {
		manager := &identity.User{ID: 2, Role: identity.RoleManager, DepartmentID: 4}
		p := &analytics.Params{DepartmentName: "sales"}

		p.ApplyRoleScope(manager)
		Expect(p.DepartmentID).To(BeNil())
		Expect(p.DepartmentName).To(Equal("sales"))
	})

	It("leaves HR admin parameters untouched", func() {
		admin := &identity.User{ID: 1, Role: identity.RoleHRAdmin, DepartmentID: 1}
		p := &analytics.Params{DepartmentName: "sales"}

		p.ApplyRoleScope(admin)
		Expect(p.DepartmentName).To(Equal("sales"))
		Expect(p.UserID).To(BeNil())
	})
})

var _ = Describe("BucketTrend", func() {
	It("orders monthly buckets ascending regardless of input order", func() {
		times := []time.Time{
			time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		}
		buckets := analytics.BucketTrend(times, analytics.IntervalMonthly)
		Expect(buckets).To(Equal([]analytics.TrendBucket{
			{Period: "2026-01", Count: 1},
			{Period: "2026-02", Count: 1},
			{Period: "2026-03", Count: 2},
		}))
	})

	It("uses ISO week labels for weekly buckets", func() {
		times := []time.Time{
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
		}
		buckets := analytics.BucketTrend(times, analytics.IntervalWeekly)
		Expect(buckets).To(HaveLen(2))
		Expect(buckets[0].Period < buckets[1].Period).To(BeTrue())
		Expect(buckets[1].Count).To(Equal(int64(2)))
	})

	It("returns no buckets for no data", func() {
		Expect(analytics.BucketTrend(nil, analytics.IntervalWeekly)).To(BeEmpty())
	})
})

var _ = Describe("AnalyticsService", func() {
	var (
		gdb     *gorm.DB
		svc     *analytics.Service
		admin *identity.User
		ic    *identity.User
		ctx   context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		var err error
		gdb, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = gdb.AutoMigrate(
			&identity.User{}, &identity.Department{},
			&okr.Objective{}, &okr.ObjectiveDepartment{}, &okr.Goal{}, &okr.Task{},
			&feedback.Feedback{},
			&review.ReviewCycle{}, &review.ReviewParticipant{},
			&review.SelfAssessment{}, &review.PeerReview{}, &review.ManagerReview{},
		)
		Expect(err).NotTo(HaveOccurred())

		sqlDB, err := gdb.DB()
		Expect(err).NotTo(HaveOccurred())
		svc = analytics.NewService(sqlx.NewDb(sqlDB, "sqlite3"), testLogger)

		admin = &identity.User{ID: 1, Role: identity.RoleHRAdmin, DepartmentID: 1}
		ic = &identity.User{ID: 3, Role: identity.RoleIndividualContributor, DepartmentID: 1}
		ctx = context.Background()
	})

	Describe("role gates", func() {
		It("rejects individual contributors from the restricted endpoints", func() {
			_, err := svc.ReviewParticipation(ctx, ic, &analytics.Params{})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))

			_, err = svc.Sentiment(ctx, ic, &analytics.Params{})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))

			_, err = svc.CycleCompletion(ctx, ic, &analytics.Params{})
			Expect(appErrStatus(err)).To(Equal(http.StatusForbidden))
		})
	})

	Describe("OKRProgress", func() {
		BeforeEach(func() {
			Expect(gdb.Create(&okr.Objective{ID: 1, Title: "Ship v2", OwnerID: 2, CreatedBy: 1, Status: "active", ProgressPercentage: 40}).Error).To(Succeed())
			Expect(gdb.Create(&okr.Objective{ID: 2, Title: "Hiring", OwnerID: 2, CreatedBy: 1, Status: "active", ProgressPercentage: 60}).Error).To(Succeed())
			Expect(gdb.Create(&okr.Goal{ID: 1, ObjectiveID: 1, Title: "API", AssignedTo: 3, CreatedBy: 2, Status: "in_progress"}).Error).To(Succeed())
			Expect(gdb.Create(&okr.Goal{ID: 2, ObjectiveID: 2, Title: "Interviews", AssignedTo: 4, CreatedBy: 2, Status: "completed"}).Error).To(Succeed())
			Expect(gdb.Create(&okr.Task{ID: 1, GoalID: 1, Title: "Handlers", AssignedTo: 3, CreatedBy: 2, Status: "completed", ProgressPercentage: 100}).Error).To(Succeed())
			Expect(gdb.Create(&okr.Task{ID: 2, GoalID: 1, Title: "Docs", AssignedTo: 3, CreatedBy: 2, Status: "in_progress", ProgressPercentage: 50}).Error).To(Succeed())
		})

		It("aggregates the full population for HR admins", func() {
			report, err := svc.OKRProgress(ctx, admin, &analytics.Params{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalObjectives).To(Equal(int64(2)))
			Expect(report.AverageObjectiveProgress).To(BeNumerically("~", 50, 0.001))
			Expect(report.GoalsByStatus["in_progress"]).To(Equal(int64(1)))
			Expect(report.GoalsByStatus["completed"]).To(Equal(int64(1)))
			Expect(report.TasksTotal).To(Equal(int64(2)))
			Expect(report.TasksCompleted).To(Equal(int64(1)))
			Expect(report.TaskCompletionRate).To(BeNumerically("~", 50, 0.001))
		})

		It("restricts individual contributors to their own records", func() {
			other := int64(999)
			report, err := svc.OKRProgress(ctx, ic, &analytics.Params{UserID: &other})
			Expect(err).NotTo(HaveOccurred())
			// Only objective 1 has a goal assigned to user 3.
			Expect(report.TotalObjectives).To(Equal(int64(1)))
			Expect(report.GoalsByStatus).NotTo(HaveKey("completed"))
			Expect(report.TasksTotal).To(Equal(int64(2)))
		})
	})

	Describe("FeedbackEngagement", func() {
		BeforeEach(func() {
			rows := []feedback.Feedback{
				{FromUserID: 2, ToUserID: 3, FeedbackType: "praise", Content: "great sprint", Visibility: "public", CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
				{FromUserID: 3, ToUserID: 2, FeedbackType: "suggestion", Content: "more pairing", Visibility: "public", CreatedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
				{FromUserID: 2, ToUserID: 3, FeedbackType: "concern", Content: "missed standups", Visibility: "private", CreatedAt: time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)},
			}
			for i := range rows {
				Expect(gdb.Create(&rows[i]).Error).To(Succeed())
			}
		})

		It("counts totals and buckets the trend ascending", func() {
			report, err := svc.FeedbackEngagement(ctx, admin, &analytics.Params{Interval: analytics.IntervalMonthly})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Total).To(Equal(int64(3)))
			Expect(report.ByType["praise"]).To(Equal(int64(1)))
			Expect(report.Trend).To(Equal([]analytics.TrendBucket{
				{Period: "2026-01", Count: 1},
				{Period: "2026-02", Count: 2},
			}))
		})

		It("reports given and received for a user scope", func() {
			report, err := svc.FeedbackEngagement(ctx, ic, &analytics.Params{Interval: analytics.IntervalMonthly})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Given).To(Equal(int64(1)))
			Expect(report.Received).To(Equal(int64(2)))
			Expect(report.Total).To(Equal(int64(3)))
		})

		It("honors the date range filter", func() {
			start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			report, err := svc.FeedbackEngagement(ctx, admin, &analytics.Params{
				StartDate: &start, Interval: analytics.IntervalMonthly,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Total).To(Equal(int64(2)))
		})
	})

	Describe("Sentiment", func() {
		BeforeEach(func() {
			rows := []feedback.Feedback{
				{FromUserID: 2, ToUserID: 3, FeedbackType: "praise", Content: "solid", Visibility: "public"},
				{FromUserID: 2, ToUserID: 3, FeedbackType: "praise", Content: "fast", Visibility: "public"},
				{FromUserID: 2, ToUserID: 3, FeedbackType: "concern", Content: "late", Visibility: "private"},
				{FromUserID: 2, ToUserID: 3, FeedbackType: "suggestion", Content: "pair more", Visibility: "public"},
			}
			for i := range rows {
				Expect(gdb.Create(&rows[i]).Error).To(Succeed())
			}
		})

		It("maps feedback types onto a sentiment distribution", func() {
			report, err := svc.Sentiment(ctx, admin, &analytics.Params{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Total).To(Equal(int64(4)))
			Expect(report.Positive).To(Equal(int64(2)))
			Expect(report.Negative).To(Equal(int64(1)))
			Expect(report.Neutral).To(Equal(int64(1)))
			Expect(report.Score).To(BeNumerically("~", 0.25, 0.001))
		})
	})

	Describe("CycleCompletion and ReviewParticipation", func() {
		BeforeEach(func() {
			base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			Expect(gdb.Create(&review.ReviewCycle{
				ID: 1, Name: "Q1 2026", ReviewType: review.TypeQuarterly, Status: review.CycleStatusActive,
				SelfAssessmentStart: base, SelfAssessmentEnd: base.AddDate(0, 0, 9),
				PeerReviewStart: base.AddDate(0, 0, 10), PeerReviewEnd: base.AddDate(0, 0, 19),
				ManagerReviewStart: base.AddDate(0, 0, 20), ManagerReviewEnd: base.AddDate(0, 0, 30),
				CreatedBy: 1,
			}).Error).To(Succeed())
			Expect(gdb.Create(&review.ReviewCycle{
				ID: 2, Name: "Draft", ReviewType: review.TypeQuarterly, Status: review.CycleStatusDraft,
				SelfAssessmentStart: base, SelfAssessmentEnd: base.AddDate(0, 0, 9),
				PeerReviewStart: base.AddDate(0, 0, 10), PeerReviewEnd: base.AddDate(0, 0, 19),
				ManagerReviewStart: base.AddDate(0, 0, 20), ManagerReviewEnd: base.AddDate(0, 0, 30),
				CreatedBy: 1,
			}).Error).To(Succeed())

			Expect(gdb.Create(&review.ReviewParticipant{CycleID: 1, UserID: 3, IsActive: true}).Error).To(Succeed())
			Expect(gdb.Create(&review.ReviewParticipant{CycleID: 1, UserID: 4, IsActive: true}).Error).To(Succeed())
			Expect(gdb.Create(&review.SelfAssessment{CycleID: 1, UserID: 3, Status: review.StatusCompleted}).Error).To(Succeed())
			Expect(gdb.Create(&review.SelfAssessment{CycleID: 1, UserID: 4, Status: review.StatusPending}).Error).To(Succeed())
			Expect(gdb.Create(&review.PeerReview{CycleID: 1, ReviewerID: 3, RevieweeID: 4, Status: review.StatusCompleted}).Error).To(Succeed())
			Expect(gdb.Create(&review.PeerReview{CycleID: 1, ReviewerID: 4, RevieweeID: 3, Status: review.StatusPending}).Error).To(Succeed())
			Expect(gdb.Create(&review.ManagerReview{CycleID: 1, ManagerID: 2, EmployeeID: 3, Status: review.StatusCompleted}).Error).To(Succeed())
			Expect(gdb.Create(&review.ManagerReview{CycleID: 1, ManagerID: 2, EmployeeID: 4, Status: review.StatusPending}).Error).To(Succeed())
		})

		It("excludes draft cycles and computes the completion percentage", func() {
			report, err := svc.CycleCompletion(ctx, admin, &analytics.Params{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Cycles).To(HaveLen(1))
			Expect(report.Cycles[0].CycleID).To(Equal(int64(1)))
			// 3 of 6 records are completed.
			Expect(report.Cycles[0].CompletionPercentage).To(BeNumerically("~", 50, 0.001))
		})

		It("reports per-kind participation counts", func() {
			report, err := svc.ReviewParticipation(ctx, admin, &analytics.Params{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Cycles).To(HaveLen(1))

			c := report.Cycles[0]
			Expect(c.Participants).To(Equal(int64(2)))
			Expect(c.SelfSubmitted).To(Equal(int64(1)))
			Expect(c.SelfTotal).To(Equal(int64(2)))
			Expect(c.PeerCompleted).To(Equal(int64(1)))
			Expect(c.ManagerCompleted).To(Equal(int64(1)))
			Expect(c.Rate).To(BeNumerically("~", 50, 0.001))
		})
	})
})
