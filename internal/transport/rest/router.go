package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/talenthub/performance-management/internal/analytics"
	"github.com/talenthub/performance-management/internal/auth"
	"github.com/talenthub/performance-management/internal/draftgen"
	"github.com/talenthub/performance-management/internal/feedback"
	"github.com/talenthub/performance-management/internal/identity"
	"github.com/talenthub/performance-management/internal/okr"
	"github.com/talenthub/performance-management/internal/review"
	"github.com/talenthub/performance-management/internal/transport/middleware"
	"github.com/talenthub/performance-management/internal/transport/swagger"
)

// Handlers bundles every domain handler the router mounts.
type Handlers struct {
	Auth      *auth.Handler
	Identity  *identity.Handler
	OKR       *okr.Handler
	Feedback  *feedback.Handler
	Review    *review.Handler
	Analytics *analytics.Handler
	DraftGen  *draftgen.Handler
}

// RegisterAllRoutes mounts the full API under /api/v1. Everything except
// health, swagger and the auth endpoints requires an authenticated actor.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Identity.Me)
			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/", h.Identity.ListUsers)
				ur.Post("/", h.Identity.CreateUser)
				ur.Get("/{id}", h.Identity.GetUser)
				ur.Patch("/{id}", h.Identity.UpdateUser)
			})
			pr.Route("/departments", func(dr chi.Router) {
				dr.Get("/", h.Identity.ListDepartments)
				dr.Post("/", h.Identity.CreateDepartment)
			})

			pr.Route("/objectives", func(or chi.Router) {
				or.Get("/", h.OKR.ListObjectives)
				or.Post("/", h.OKR.CreateObjective)
				or.Get("/{id}", h.OKR.GetObjective)
				or.Patch("/{id}", h.OKR.UpdateObjective)
				or.Delete("/{id}", h.OKR.DeleteObjective)
				or.Get("/{id}/goals", h.OKR.ListGoals)
				or.Post("/{id}/goals", h.OKR.CreateGoal)
			})
			pr.Route("/goals", func(gr chi.Router) {
				gr.Get("/{id}", h.OKR.GetGoal)
				gr.Patch("/{id}", h.OKR.UpdateGoal)
				gr.Delete("/{id}", h.OKR.DeleteGoal)
				gr.Get("/{id}/tasks", h.OKR.ListTasks)
				gr.Post("/{id}/tasks", h.OKR.CreateTask)
			})
			pr.Route("/tasks", func(tr chi.Router) {
				tr.Get("/{id}", h.OKR.GetTask)
				tr.Patch("/{id}", h.OKR.UpdateTask)
				tr.Delete("/{id}", h.OKR.DeleteTask)
				tr.Patch("/{id}/progress", h.OKR.UpdateTaskProgress)
				tr.Get("/{id}/history", h.OKR.TaskHistory)
			})

			pr.Route("/feedback", func(fr chi.Router) {
				fr.Get("/", h.Feedback.List)
				fr.Post("/", h.Feedback.Create)
				fr.Get("/{id}", h.Feedback.Get)
				fr.Patch("/{id}", h.Feedback.Update)
				fr.Delete("/{id}", h.Feedback.Delete)
				fr.Post("/{id}/tags", h.Feedback.AddTag)
				fr.Delete("/{id}/tags/{tag}", h.Feedback.RemoveTag)
				fr.Post("/{id}/comments", h.Feedback.AddComment)
			})

			pr.Route("/review-cycles", func(rr chi.Router) {
				rr.Get("/", h.Review.ListCycles)
				rr.Post("/", h.Review.CreateCycle)
				rr.Get("/{id}", h.Review.GetCycle)
				rr.Patch("/{id}", h.Review.UpdateCycle)
				rr.Delete("/{id}", h.Review.DeleteCycle)
				rr.Post("/{id}/start", h.Review.StartCycle)
				rr.Post("/{id}/participants", h.Review.AddParticipant)
				rr.Get("/{id}/progress", h.Review.Progress)

				rr.Get("/{id}/self-assessment", h.Review.GetSelfAssessment)
				rr.Patch("/{id}/self-assessment", h.Review.UpdateSelfAssessment)
				rr.Post("/{id}/self-assessment/submit", h.Review.SubmitSelfAssessment)

				rr.Get("/{id}/peer-reviews", h.Review.ListPeerReviews)
				rr.Post("/{id}/peer-reviews", h.Review.CreatePeerReview)
				rr.Get("/{id}/manager-reviews", h.Review.ListManagerReviews)
				rr.Post("/{id}/manager-reviews", h.Review.CreateManagerReview)
				rr.Post("/{id}/upward-reviews", h.Review.CreateUpwardReview)
				rr.Get("/{id}/meetings", h.Review.ListMeetings)
				rr.Post("/{id}/meetings", h.Review.ScheduleMeeting)
			})
			pr.Route("/peer-reviews", func(rr chi.Router) {
				rr.Get("/{id}", h.Review.GetPeerReview)
				rr.Post("/{id}/submit", h.Review.SubmitPeerReview)
			})
			pr.Route("/manager-reviews", func(rr chi.Router) {
				rr.Get("/{id}", h.Review.GetManagerReview)
				rr.Post("/{id}/submit", h.Review.SubmitManagerReview)
			})
			pr.Post("/upward-reviews/{id}/submit", h.Review.SubmitUpwardReview)
			pr.Post("/meetings/{id}/complete", h.Review.CompleteMeeting)

			pr.Route("/analytics", func(ar chi.Router) {
				ar.Get("/okr-progress", h.Analytics.OKRProgress)
				ar.Get("/feedback-engagement", h.Analytics.FeedbackEngagement)
				ar.Get("/review-participation", h.Analytics.ReviewParticipation)
				ar.Get("/sentiment", h.Analytics.Sentiment)
				ar.Get("/cycle-completion", h.Analytics.CycleCompletion)
			})

			pr.Post("/drafts/generate", h.DraftGen.Generate)
		})
	})
}
