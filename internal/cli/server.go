package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-attempt-engine/internal/config"
	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
	"quiz-attempt-engine/internal/infra/memory"
	pgloader "quiz-attempt-engine/internal/infra/postgres"
	redisinfra "quiz-attempt-engine/internal/infra/redis"
	transport "quiz-attempt-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the grading authority and quiz session gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.DefinitionLoader = memory.NewStaticDefinitionLoader(sampleDefinitions())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var quizzes grading.QuizStore
	if redisClient != nil {
		quizzes = redisinfra.NewQuizStore(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizStore(loader, quizTTL)
	}

	attemptTTL := config.Duration(cfg.Attempt.TTL, 2*time.Hour)
	var attempts grading.AttemptStore
	if redisClient != nil {
		attempts = redisinfra.NewAttemptStore(redisClient, attemptTTL)
	} else {
		attempts = memory.NewAttemptStore()
	}

	grace := config.Duration(cfg.Attempt.SubmitGrace, 5*time.Second)
	service := grading.NewService(quizzes, attempts, grace)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAuthorityHandler(service).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz attempt engine on :%s", finalPort)
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

// sampleDefinitions provides a minimal quiz set for running without a
// database; swap the loader for the Postgres-backed one in production.
func sampleDefinitions() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			Quiz: domain.Quiz{
				ID:                  "quiz-1",
				Title:               "Arithmetic basics",
				PassingScorePercent: 70,
				TimeLimitSeconds:    120,
				Active:              true,
			},
			Questions: []domain.KeyedQuestion{
				{
					Question: domain.Question{
						ID:         "q1",
						Text:       "What is 2 + 2?",
						Options:    []string{"3", "4", "5"},
						Type:       domain.SingleChoice,
						Points:     1,
						Difficulty: domain.Easy,
					},
					CorrectIndexes: []int{1},
					Explanation:    "2 + 2 = 4.",
				},
				{
					Question: domain.Question{
						ID:         "q2",
						Text:       "Which of these are even numbers?",
						Options:    []string{"1", "2", "3", "4"},
						Type:       domain.MultipleSelect,
						Points:     2,
						Difficulty: domain.Medium,
					},
					CorrectIndexes: []int{1, 3},
				},
			},
		},
	}
}
