package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/auth"
	"sleep-diagnosis/internal/config"
	"sleep-diagnosis/internal/diagnosis"
	"sleep-diagnosis/internal/feedback"
	"sleep-diagnosis/internal/graph"
	"sleep-diagnosis/internal/knowledge"
	"sleep-diagnosis/internal/platform/httpserver"
	"sleep-diagnosis/internal/platform/telegram"
	"sleep-diagnosis/internal/report"
	"sleep-diagnosis/internal/session"
)

const dbConnectAttempts = 10

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kb, err := loadKnowledge(cfg.Knowledge.Path, logger)
	if err != nil {
		return err
	}

	app, cleanup, err := buildApp(ctx, cfg, kb, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return httpserver.ListenAndRun(ctx, cfg.HTTP.Addr(), newRouter(app), logger)
}

// loadKnowledge loads the knowledge base and logs where a malformed file
// went wrong.
func loadKnowledge(path string, logger *zap.Logger) (*knowledge.KnowledgeBase, error) {
	kb, err := knowledge.Load(path)
	if err != nil {
		var loadErr *knowledge.LoadError
		if errors.As(err, &loadErr) {
			logger.Error("knowledge base rejected",
				zap.String("source", loadErr.Source),
				zap.Int("index", loadErr.Index),
				zap.String("field", loadErr.Field),
				zap.Error(loadErr.Err))
		}
		return nil, err
	}
	stats := kb.Stats()
	logger.Info("knowledge base loaded",
		zap.String("source", kb.Source()),
		zap.Int("disorders", stats.Disorders),
		zap.Int("symptoms", stats.Symptoms))
	return kb, nil
}

// buildApp wires the adapters selected by cfg around kb. cleanup releases
// whatever was opened and is safe to call after an error.
func buildApp(ctx context.Context, cfg config.Config, kb *knowledge.KnowledgeBase, logger *zap.Logger) (*app, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sessions := session.NewMemoryStore(cfg.Session.TTL)
	feedbackRepo := feedback.NewMemoryRepository()
	if cfg.Database.URL != "" {
		db, err := openDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = db.Close() })
		sessions = session.NewRepository(db, cfg.Session.TTL)
		feedbackRepo = feedback.NewRepository(db)
	} else {
		logger.Info("DATABASE_URL not set, keeping sessions and feedback in memory")
	}

	graphs, closeGraphs := newGraphStore(ctx, cfg.Graph, kb, logger)
	closers = append(closers, closeGraphs)

	verifier, err := newVerifier(cfg.Auth, logger)
	if err != nil {
		return nil, cleanup, err
	}

	var notifier feedback.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.FeedbackChatID != 0 {
		notifier = telegram.NewClient(cfg.Telegram.Token)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN or FEEDBACK_CHAT_ID not set, feedback will only be stored")
	}

	manager := session.NewManager(sessions, cfg.Session.CookieName, cfg.Session.SecureCookie, logger)
	reports := report.NewService(cfg.Report.FontPaths, logger)
	diagnoses := diagnosis.NewService(kb, graphs, reports, cfg.Coverage.LowThreshold, logger)
	feedbacks := feedback.NewService(feedbackRepo, notifier, cfg.Telegram.FeedbackChatID, logger)

	a := &app{
		kb:         kb,
		corsOrigin: cfg.HTTP.CORSOrigin,
		logger:     logger,
		sessions:   manager,
		session:    session.NewHandler(manager, logger),
		auth:       auth.NewHandler(verifier, manager, logger),
		diagnosis:  diagnosis.NewHandler(diagnoses, manager, logger),
		feedback:   feedback.NewHandler(feedbacks, logger),
	}
	return a, cleanup, nil
}

// openDatabase connects to Postgres, waiting for it to come up, and applies
// pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i == dbConnectAttempts {
			_ = db.Close()
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		logger.Info("waiting for database", zap.Int("attempt", i), zap.Int("of", dbConnectAttempts))
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	logger.Info("connected to database")

	if err := runMigrations(cfg); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("migrations applied")
	return db, nil
}

func runMigrations(cfg config.DatabaseConfig) error {
	m, err := migrate.New(cfg.MigrationsPath, cfg.URL)
	if err != nil {
		return fmt.Errorf("migration init failed: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// newGraphStore returns the configured graph store. An unreachable Neo4j
// falls back to the graph derived from the knowledge base.
func newGraphStore(ctx context.Context, cfg config.GraphConfig, kb *knowledge.KnowledgeBase, logger *zap.Logger) (graph.Store, func()) {
	if cfg.Backend != config.GraphNeo4j {
		return graph.NewKnowledgeStore(kb), func() {}
	}

	store, err := graph.NewNeo4jStore(ctx, graph.Neo4jConfig{
		URI:      cfg.URI,
		Username: cfg.Username,
		Password: cfg.Password,
		Database: cfg.Database,
	})
	if err != nil {
		logger.Warn("neo4j unavailable, serving graphs from the knowledge base", zap.Error(err))
		return graph.NewKnowledgeStore(kb), func() {}
	}
	logger.Info("graph store connected", zap.String("uri", cfg.URI))
	return store, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.Warn("failed to close neo4j driver", zap.Error(err))
		}
	}
}

func newVerifier(cfg config.AuthConfig, logger *zap.Logger) (auth.Verifier, error) {
	if len(cfg.Users) == 0 {
		logger.Warn("AUTH_USERS not set, only the demo account can log in", zap.String("username", auth.DemoUsername))
		return auth.NewStaticVerifier(map[string]string{auth.DemoUsername: auth.DemoPassword}), nil
	}
	v, err := auth.NewBcryptVerifier(cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("AUTH_USERS: %w", err)
	}
	return v, nil
}
