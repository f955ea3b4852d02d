package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"training-quiz-service/internal/app"
	"training-quiz-service/internal/badges"
	"training-quiz-service/internal/config"
	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/event"
	"training-quiz-service/internal/infra/memory"
	mongostore "training-quiz-service/internal/infra/mongo"
	pgstore "training-quiz-service/internal/infra/postgres"
	rediscache "training-quiz-service/internal/infra/redis"
	"training-quiz-service/internal/metrics"
	"training-quiz-service/internal/progress"
	"training-quiz-service/internal/scoring"
	"training-quiz-service/internal/timer"
	transport "training-quiz-service/internal/transport/http"
)

const (
	defaultSweepSchedule = "@every 1m"
	defaultIntroTTL      = 30 * time.Minute
	defaultRetention     = time.Hour
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

// quizCatalog serves quiz content and can enumerate modules.
type quizCatalog interface {
	app.QuizRepository
	app.ModuleLister
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
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(moduleIndex(sampleModules()))
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo quizCatalog
	if redisClient != nil {
		quizRepo = rediscache.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = rediscache.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	progressRepo, closeRepo, err := openProgressRepository(ctx, cfg, redisClient, pool)
	if err != nil {
		return err
	}
	defer closeRepo()

	publisher, err := event.NewPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		return err
	}
	defer publisher.Close()

	recorder := metrics.NewRecorder()
	persistTimeout := config.TTLDuration(cfg.Quiz.PersistTimeout, progress.DefaultTimeout)

	service := app.NewQuizService(
		sessions,
		quizRepo,
		progress.NewStore(progressRepo, progress.WithTimeout(persistTimeout)),
		scoring.NewEngine(scoringConfig(cfg)),
		badges.NewEngine(badges.DefaultCatalog(), badges.DefaultRules(ruleConfig(cfg)), cfg.Location()),
		app.WithModuleLister(quizRepo),
		app.WithEvents(publisher),
		app.WithMetrics(recorder),
		app.WithTimeouts(config.TTLDuration(cfg.Quiz.FetchTimeout, app.DefaultFetchTimeout), persistTimeout),
		app.WithDefaultTimeLimit(config.TTLDuration(cfg.Quiz.DefaultTimeLimit, app.DefaultSessionTimeLimit)),
		app.WithTimerOptions(timer.WithTickInterval(config.TTLDuration(cfg.Quiz.TickInterval, time.Second))),
	)

	schedule := cfg.Sessions.SweepSchedule
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	janitor := app.NewJanitor(service,
		schedule,
		config.TTLDuration(cfg.Sessions.IntroTTL, defaultIntroTTL),
		config.TTLDuration(cfg.Sessions.Retention, defaultRetention),
	)
	if err := janitor.Start(); err != nil {
		return err
	}
	defer janitor.Stop()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, recorder.Handler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s (progress backend %s)", finalPort, cfg.ProgressBackend())
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

// openProgressRepository connects the configured progress backend. The
// returned close func releases connections owned by the repository.
func openProgressRepository(ctx context.Context, cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) (progress.Repository, func(), error) {
	nop := func() {}
	switch cfg.ProgressBackend() {
	case config.BackendRedis:
		return rediscache.NewProgressRepository(redisClient), nop, nil
	case config.BackendPostgres:
		return pgstore.NewProgressRepository(pool), nop, nil
	case config.BackendMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI, 10*time.Second)
		if err != nil {
			return nil, nop, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Printf("disconnect mongo: %v", err)
			}
		}
		return mongostore.NewProgressRepository(client, cfg.MongoDatabase()), closeFn, nil
	default:
		log.Printf("progress backend memory: records are lost on restart")
		return memory.NewProgressRepository(), nop, nil
	}
}

func scoringConfig(cfg config.Config) scoring.Config {
	sc := scoring.DefaultConfig()
	if cfg.Scoring.DefaultPoints > 0 {
		sc.DefaultPoints = cfg.Scoring.DefaultPoints
	}
	if cfg.Scoring.SpeedBonus > 0 {
		sc.SpeedBonus = cfg.Scoring.SpeedBonus
	}
	sc.FastAnswerThreshold = config.TTLDuration(cfg.Scoring.FastAnswerThreshold, sc.FastAnswerThreshold)
	return sc
}

func ruleConfig(cfg config.Config) badges.RuleConfig {
	rc := badges.DefaultRuleConfig()
	rc.SpeedDemonLimit = config.TTLDuration(cfg.Badges.SpeedDemonLimit, rc.SpeedDemonLimit)
	if cfg.Badges.ExpertPercentage > 0 {
		rc.ExpertPercentage = cfg.Badges.ExpertPercentage
	}
	if len(cfg.Badges.ModuleBadges) > 0 {
		rc.ModuleBadges = cfg.Badges.ModuleBadges
	}
	return rc
}

func moduleIndex(quizzes []domain.ModuleQuiz) map[string]domain.ModuleQuiz {
	out := make(map[string]domain.ModuleQuiz, len(quizzes))
	for _, q := range quizzes {
		out[q.ModuleID] = q
	}
	return out
}
