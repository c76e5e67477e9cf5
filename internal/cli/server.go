package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/config"
	"quiz-score-service/internal/infra/memory"
	pgstore "quiz-score-service/internal/infra/postgres"
	redisstore "quiz-score-service/internal/infra/redis"
	transport "quiz-score-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the score service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores bundles the repository views of whichever backend is configured.
type stores struct {
	participants app.ParticipantRepository
	scores       app.ScoreRepository
	pinger       app.Pinger
	close        func()
}

// openStores selects the backend by configuration: Postgres when a URL is
// set, Redis when an address is set, in-memory otherwise.
func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return stores{}, err
		}
		st := pgstore.NewStore(pool)
		return stores{participants: st, scores: st, pinger: st, close: pool.Close}, nil
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st := redisstore.NewStore(client)
		return stores{participants: st, scores: st, pinger: st, close: func() { _ = client.Close() }}, nil
	}

	st := memory.NewStore()
	return stores{participants: st, scores: st, pinger: st, close: func() {}}, nil
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

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	profiles := app.NewProfileService(st.participants)
	submissions := app.NewSubmissionService(st.participants, st.scores)
	stats := app.NewStatsService(st.participants, st.scores)
	handler := transport.NewHandler(profiles, submissions, stats, st.pinger)

	mux := http.NewServeMux()
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Printf("starting score service on :%s", finalPort)
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
