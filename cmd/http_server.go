package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/accesscontrol"
	"github.com/talenthub/performance-management/internal/analytics"
	"github.com/talenthub/performance-management/internal/auth"
	"github.com/talenthub/performance-management/internal/core/events"
	"github.com/talenthub/performance-management/internal/draftgen"
	"github.com/talenthub/performance-management/internal/feedback"
	feedbackpg "github.com/talenthub/performance-management/internal/feedback/postgres"
	"github.com/talenthub/performance-management/internal/identity"
	identitypg "github.com/talenthub/performance-management/internal/identity/postgres"
	"github.com/talenthub/performance-management/internal/okr"
	okrpg "github.com/talenthub/performance-management/internal/okr/postgres"
	"github.com/talenthub/performance-management/internal/review"
	reviewpg "github.com/talenthub/performance-management/internal/review/postgres"
	"github.com/talenthub/performance-management/internal/transport/rest"
	"github.com/talenthub/performance-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm shares the pgx connection pool sqlx already opened.
	gdb, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	identityRepo := identitypg.NewIdentityRepository(gdb)
	identitySvc := identity.NewService(identityRepo, config.Security.BCryptCost, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.JWTAccessSecret,
		config.Security.JWTRefreshSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authSvc := auth.NewService(identityRepo, tokenGen)

	engine := accesscontrol.NewEngine(identitySvc, lg)
	bus := events.NewEventBus(lg)
	registerEventLogging(bus, lg)

	okrRepo := okrpg.NewOKRRepository(gdb)
	okrSvc := okr.NewService(okrRepo, engine, identitySvc, bus, lg)

	feedbackRepo := feedbackpg.NewFeedbackRepository(gdb)
	feedbackSvc := feedback.NewService(feedbackRepo, identitySvc, bus, lg)

	reviewRepo := reviewpg.NewReviewRepository(gdb)
	reviewSvc := review.NewService(reviewRepo, identitySvc, bus, lg)

	analyticsSvc := analytics.NewService(db, lg)

	var textClient draftgen.TextClient
	if config.DraftGen.APIURL != "" {
		textClient = draftgen.NewHTTPTextClient(config.DraftGen, lg)
	}
	draftSvc := draftgen.NewService(reviewRepo, feedbackRepo, identitySvc, textClient, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:      auth.NewHandler(authSvc),
		Identity:  identity.NewHandler(identitySvc),
		OKR:       okr.NewHandler(okrSvc),
		Feedback:  feedback.NewHandler(feedbackSvc),
		Review:    review.NewHandler(reviewSvc),
		Analytics: analytics.NewHandler(lg, analyticsSvc),
		DraftGen:  draftgen.NewHandler(lg, draftSvc),
	}, lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// registerEventLogging attaches audit-log subscribers for the domain events
// the services publish in-process.
func registerEventLogging(bus *events.EventBus, lg *slog.Logger) {
	for _, eventType := range []string{
		events.EventTypeCycleStarted,
		events.EventTypeTaskProgressUpdated,
		events.EventTypeAssessmentSubmitted,
		events.EventTypeFeedbackCreated,
	} {
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			lg.Info("domain event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"payload", event.Payload())
			return nil
		})
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
