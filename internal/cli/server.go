package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/infra/fs"
	"quizmaster-service/internal/infra/memory"
	pgloader "quizmaster-service/internal/infra/postgres"
	infraredis "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/questions"
	"quizmaster-service/internal/snapshot"
	transport "quizmaster-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// sessionFactory is the composition root's session ownership: one machine
// per mode, rebuilt per category over the shared storage and resolver.
type sessionFactory struct {
	kv       snapshot.KV
	resolver *questions.Resolver
	clock    func() time.Time
	ledger   *app.Ledger
	board    *app.Scoreboard
	cfg      app.SessionConfig
}

func (f *sessionFactory) Quiz(category string) *app.QuizSession {
	cfg := f.cfg
	cfg.Category = category
	return app.NewQuizSession(f.kv, f.resolver, f.clock, cfg)
}

func (f *sessionFactory) Daily(category string) *app.DailySession {
	cfg := f.cfg
	cfg.Category = category
	return app.NewDailySession(f.kv, f.resolver, f.clock, f.ledger, f.board, cfg)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	snapshotTTL := config.TTLDuration(cfg.Redis.TTL, 0)

	// Snapshot backend: redis when configured, else the data directory,
	// else process memory.
	var kv snapshot.KV
	switch {
	case redisClient != nil:
		kv = infraredis.NewStorage(redisClient, "quizmaster", snapshotTTL)
	case cfg.Storage.Dir != "":
		kv = fs.NewStorage(cfg.Storage.Dir)
	default:
		kv = memory.NewStorage()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	loadTimeout := config.TTLDuration(cfg.Quiz.LoadTimeout, 5*time.Second)

	// Question source chain: postgres packs when configured, cached in
	// redis or memory; the resolver falls back to the embedded packs.
	var source questions.Source
	if pool != nil {
		source = pgloader.NewPackLoader(pool)
	}
	if source != nil {
		if redisClient != nil {
			source = infraredis.NewQuestionCache(redisClient, source, quizTTL)
		} else {
			source = questions.NewCachedSource(source, quizTTL)
		}
	}
	resolver := questions.NewResolver(source, loadTimeout)

	clock := time.Now
	ledger := app.NewLedger(kv, clock)
	board := app.NewScoreboard(kv, clock)
	unlocks := app.NewUnlockEvaluator(kv, app.DefaultUnlockRules())

	sessions := &sessionFactory{
		kv:       kv,
		resolver: resolver,
		clock:    clock,
		ledger:   ledger,
		board:    board,
		cfg: app.SessionConfig{
			QuestionCount:   cfg.Quiz.Questions,
			QuestionSeconds: cfg.Quiz.QuestionSeconds,
		},
	}
	playHandler := transport.NewPlayHandler(sessions, transport.Rewards{
		Ledger:  ledger,
		Unlocks: unlocks,
		Board:   board,
	}, clock)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/play", playHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizmaster service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
