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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	authPostgres "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/category"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/currency"
	"github.com/frahmantamala/expense-approval/internal/directory"
	directoryPostgres "github.com/frahmantamala/expense-approval/internal/directory/postgres"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/ocr"
	"github.com/frahmantamala/expense-approval/internal/policy"
	policyPostgres "github.com/frahmantamala/expense-approval/internal/policy/postgres"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
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
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
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
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
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
	lg := logger.L()

	sqlxDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ORM: %w", err)
	}

	router := chi.NewRouter()

	authHandler, err := buildAuthHandler(config, gormDB)
	if err != nil {
		return nil, err
	}

	expenseHandler := buildExpenseHandler(config, gormDB, lg)

	userService := user.NewService(userPostgres.NewUserRepository(gormDB))
	userHandler := user.NewHandler(userService)

	categoryHandler := category.NewHandler(transport.NewBaseHandler(lg), category.NewService())

	rest.RegisterAllRoutes(router, sqlxDB.DB, authHandler, userHandler, expenseHandler, categoryHandler, lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     sqlxDB,
		Router: router,
	}, nil
}

func buildAuthHandler(config *internal.Config, gormDB *gorm.DB) (*auth.Handler, error) {
	privateKey, err := config.Security.GetPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT private key: %w", err)
	}
	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT public key: %w", err)
	}

	tokenGen := auth.NewRSATokenGenerator(privateKey, publicKey,
		config.Security.AccessTokenDuration, config.Security.RefreshTokenDuration)
	authService := auth.NewService(authPostgres.NewRepository(gormDB), tokenGen, config.Security.BCryptCost)
	return auth.NewHandler(authService), nil
}

func buildExpenseHandler(config *internal.Config, gormDB *gorm.DB, lg *slog.Logger) *expense.Handler {
	eventBus := events.NewEventBus(lg)
	registerEventHandlers(eventBus, lg)

	directoryService := directory.NewService(directoryPostgres.NewDirectoryRepository(gormDB), lg)
	policyService := policy.NewService(policyPostgres.NewPolicyRepository(gormDB), lg)

	rateCache := currency.NewRateCache(config.Currency.CacheTTL)
	converter := currency.NewConverter(config.Currency, rateCache, lg)
	extractor := ocr.NewExtractor(config.OCR, lg)

	expenseService := expense.NewService(
		expensePostgres.NewExpenseRepository(gormDB),
		converter,
		extractor,
		policyService,
		directoryService,
		eventBus,
		config.OCR.MinConfidence,
		lg,
	)
	return expense.NewHandler(expenseService)
}

// registerEventHandlers attaches in-process listeners to lifecycle events.
// Today they only log; notification fan-out hangs off the same bus.
func registerEventHandlers(bus *events.EventBus, lg *slog.Logger) {
	bus.Subscribe(events.EventTypeExpenseSubmitted, func(ctx context.Context, event events.Event) error {
		lg.Info("expense submitted", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypeExpenseApproved, func(ctx context.Context, event events.Event) error {
		lg.Info("expense approved", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypeExpenseRejected, func(ctx context.Context, event events.Event) error {
		lg.Info("expense rejected", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})
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
