package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"science-quiz/internal/app"
	"science-quiz/internal/bank"
	"science-quiz/internal/config"
	"science-quiz/internal/domain"
	"science-quiz/internal/infra/llm"
	"science-quiz/internal/infra/memory"
	"science-quiz/internal/infra/postgres"
	redisinfra "science-quiz/internal/infra/redis"
	"science-quiz/internal/infra/sqlstore"
)

// deps is everything a front end needs, built once from config.
type deps struct {
	service  *app.QuizService
	history  *app.HistoryStore
	sessions *redisinfra.SessionStore
	closers  []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger, metrics app.Metrics, opts ...app.SessionOption) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
	}

	storage, err := openStorage(ctx, cfg, redisClient, pool, d)
	if err != nil {
		d.Close()
		return nil, err
	}

	loader, err := bankLoader(cfg, pool)
	if err != nil {
		d.Close()
		return nil, err
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var banks app.BankRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
		d.sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		sessions = d.sessions
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
		sessions = memory.NewSessionStore()
	}

	d.history = app.NewHistoryStore(storage, app.HistoryConfig{
		Key:         cfg.History.Key,
		MaxAttempts: cfg.History.MaxAttempts,
	}, logger.Named("history"), metrics)
	d.history.Load(ctx)

	client := llm.NewClient(
		cfg.Explainer.APIKey,
		cfg.Explainer.URL,
		cfg.Explainer.Model,
		config.TTLDuration(cfg.Explainer.Timeout, 60*time.Second),
	)
	explainer := app.NewExplanationService(client, logger.Named("explainer"), metrics)

	d.service = app.NewQuizService(sessions, banks, d.history, explainer, app.ServiceConfig{
		BankID:  cfg.Quiz.BankID,
		Session: sessionConfig(cfg),
	}, logger, metrics, opts...)
	return d, nil
}

func sessionConfig(cfg config.Config) app.SessionConfig {
	sc := app.DefaultSessionConfig()
	if cfg.Quiz.QuestionsPerQuiz > 0 {
		sc.QuestionsPerQuiz = cfg.Quiz.QuestionsPerQuiz
	}
	sc.Duration = config.TTLDuration(cfg.Quiz.Duration, sc.Duration)
	sc.WarningThreshold = config.TTLDuration(cfg.Quiz.WarningThreshold, sc.WarningThreshold)
	sc.WarningDisplay = config.TTLDuration(cfg.Quiz.WarningDisplay, sc.WarningDisplay)
	return sc
}

func openStorage(ctx context.Context, cfg config.Config, client *redis.Client, pool *pgxpool.Pool, d *deps) (app.Storage, error) {
	switch cfg.History.Driver {
	case config.DriverMemory:
		return memory.NewKVStore(), nil
	case config.DriverSQLite:
		store, err := sqlstore.OpenSQLite(ctx, cfg.History.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite history: %w", err)
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		return store, nil
	case config.DriverMySQL:
		store, err := sqlstore.OpenMySQL(ctx, cfg.History.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql history: %w", err)
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		return store, nil
	case config.DriverRedis:
		return redisinfra.NewKVStore(client, cfg.Redis.Prefix), nil
	case config.DriverPostgres:
		return postgres.NewKVStore(pool), nil
	}
	return nil, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
}

// bankLoader serves the embedded bank, an optional bank file, and Postgres rows when configured.
func bankLoader(cfg config.Config, pool *pgxpool.Pool) (memory.BankLoader, error) {
	embedded, err := bank.Embedded()
	if err != nil {
		return nil, err
	}
	banks := []domain.Bank{embedded}
	if cfg.Quiz.BankFile != "" {
		fromFile, err := bank.ReadFile(cfg.Quiz.BankFile)
		if err != nil {
			return nil, fmt.Errorf("read bank file: %w", err)
		}
		banks = append(banks, fromFile)
	}

	var loader memory.BankLoader = bank.NewLoader(banks...)
	if pool != nil {
		loader = chainLoader{postgres.NewBankLoader(pool), loader}
	}
	return loader, nil
}

// chainLoader asks each loader in turn until one knows the bank.
type chainLoader []memory.BankLoader

func (c chainLoader) LoadBank(ctx context.Context, id string) (domain.Bank, error) {
	for _, l := range c {
		b, err := l.LoadBank(ctx, id)
		if errors.Is(err, domain.ErrBankNotFound) {
			continue
		}
		return b, err
	}
	return domain.Bank{}, domain.ErrBankNotFound
}
