package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/ai/gemini"
	aiopenai "github.com/spigell/hh-interviewer/internal/ai/openai"
	"github.com/spigell/hh-interviewer/internal/ai/questioner"
	"github.com/spigell/hh-interviewer/internal/ai/scorer"
	"github.com/spigell/hh-interviewer/internal/headhunter"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/jobs"
	"github.com/spigell/hh-interviewer/internal/lock/redislock"
	"github.com/spigell/hh-interviewer/internal/secrets"
	"github.com/spigell/hh-interviewer/internal/store/memory"
	"github.com/spigell/hh-interviewer/internal/store/mongostore"
	"github.com/spigell/hh-interviewer/internal/store/sqlstore"
)

const (
	backendMemory   = "memory"
	backendMongo    = "mongo"
	backendRedis    = "redis"
	sourceFile      = "file"
	sourceHH        = "headhunter"
	defaultJobsFile = "jobs.yaml"
)

// closer releases a component on shutdown.
type closer func(ctx context.Context) error

func closeAll(ctx context.Context, log *zap.Logger, closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			log.Warn("closing resource", zap.Error(err))
		}
	}
}

// newProvider returns nil when no provider or no api key is configured; the
// engine then runs on fallbacks only. An unreadable key file is an error.
func newProvider(ctx context.Context, cfg AIConfig, log *zap.Logger) (ai.Provider, error) {
	name := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch name {
	case "", "none":
		log.Info("no ai provider configured, using built-in questions and heuristic scoring")
		return nil, nil
	case gemini.ProviderName:
		if cfg.Gemini == nil {
			cfg.Gemini = &GeminiConfig{}
		}
		apiKey, err := secrets.Optional(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, err
		}
		if apiKey == "" {
			log.Warn("gemini api key not configured, using built-in questions and heuristic scoring",
				zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY_FILE"))
			return nil, nil
		}
		return gemini.NewGenerator(ctx, gemini.Options{
			APIKey:     apiKey,
			Model:      cfg.Gemini.Model,
			MaxRetries: cfg.Gemini.MaxRetries,
			Logger:     log,
		})
	case aiopenai.ProviderName:
		if cfg.OpenAI == nil {
			cfg.OpenAI = &OpenAIConfig{}
		}
		apiKey, err := secrets.Optional(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			Env:   "OPENAI_API_KEY",
			File:  cfg.OpenAI.APIKeyFile,
		})
		if err != nil {
			return nil, err
		}
		if apiKey == "" {
			log.Warn("openai api key not configured, using built-in questions and heuristic scoring",
				zap.String("hint", "set ai.openai.api-key-file or OPENAI_API_KEY_FILE"))
			return nil, nil
		}
		return aiopenai.NewClient(aiopenai.Options{
			APIKey:     apiKey,
			Model:      cfg.OpenAI.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			MaxRetries: cfg.OpenAI.MaxRetries,
			Logger:     log,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newStore(ctx context.Context, cfg StoreConfig, log *zap.Logger) (interview.Store, closer, error) {
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "", backendMemory:
		return memory.New(), nil, nil
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		dsn, err := secrets.Load(secrets.Source{
			Name:  backend + " dsn",
			Value: cfg.DSN,
			File:  cfg.DSNFile,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlstore.Open(ctx, backend, dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func(context.Context) error { return store.Close() }, nil
	case backendMongo:
		mongoCfg := cfg.Mongo
		if mongoCfg == nil {
			mongoCfg = &MongoConfig{}
		}
		uri, err := secrets.Load(secrets.Source{
			Name:  "mongo uri",
			Value: mongoCfg.URI,
			File:  mongoCfg.URIFile,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := mongostore.Open(ctx, mongostore.Options{
			URI:        uri,
			Database:   mongoCfg.Database,
			Collection: mongoCfg.Collection,
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

func newLocker(ctx context.Context, cfg LockConfig, log *zap.Logger) (interview.Locker, closer, error) {
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "", backendMemory:
		return interview.NewKeyedMutex(), nil, nil
	case backendRedis:
		redisCfg := cfg.Redis
		if redisCfg == nil || strings.TrimSpace(redisCfg.Address) == "" {
			return nil, nil, errors.New("lock.redis.address is required for the redis lock")
		}
		password, err := secrets.Optional(secrets.Source{
			Name:  "redis password",
			Value: redisCfg.Password,
			File:  redisCfg.PasswordFile,
		})
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{redisCfg.Address},
			Password: password,
			DB:       redisCfg.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		locker := redislock.New(rdb, redislock.Options{
			Prefix:      redisCfg.Prefix,
			TTL:         redisCfg.TTL,
			WaitTimeout: redisCfg.WaitTimeout,
			Logger:      log,
		})
		return locker, func(context.Context) error { return rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lock backend: %s", cfg.Backend)
	}
}

func newHeadhunter(cfg *HeadhunterConfig, log *zap.Logger) (*headhunter.Client, error) {
	if cfg == nil {
		cfg = &HeadhunterConfig{}
	}
	token, err := secrets.Optional(secrets.Source{
		Name: "headhunter token",
		File: cfg.TokenFile,
	})
	if err != nil {
		return nil, err
	}

	hh := headhunter.New(log, token)
	if cfg.UserAgent != "" {
		hh.UserAgent = cfg.UserAgent
	}
	if cfg.APIURL != "" {
		hh.APIURL = strings.TrimRight(cfg.APIURL, "/")
	}
	return hh, nil
}

func newJobs(cfg JobsConfig, log *zap.Logger) (interview.JobLookup, error) {
	switch strings.TrimSpace(strings.ToLower(cfg.Source)) {
	case "", sourceFile:
		path := strings.TrimSpace(cfg.File)
		if path == "" {
			path = defaultJobsFile
		}
		catalog, err := jobs.LoadFile(path)
		if err != nil {
			return nil, err
		}
		log.Info("loaded job catalog", zap.String("file", path), zap.Int("jobs", len(catalog.List())))
		return catalog, nil
	case sourceHH:
		return newHeadhunter(cfg.Headhunter, log)
	default:
		return nil, fmt.Errorf("unsupported jobs source: %s", cfg.Source)
	}
}

type engineParts struct {
	Store  interview.Store
	Jobs   interview.JobLookup
	Locker interview.Locker
}

// newEngine wires providers, fallbacks and the given parts into an engine.
func newEngine(ctx context.Context, config *Config, parts engineParts, log *zap.Logger) (*interview.Engine, error) {
	provider, err := newProvider(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building ai provider: %w", err)
	}

	opts := questioner.Options{
		Timeout:      config.Interview.ProviderTimeout,
		MaxLogLength: config.Interview.MaxLogLength,
		Logger:       log,
	}

	return interview.NewEngine(interview.Deps{
		Store:     parts.Store,
		Jobs:      parts.Jobs,
		Questions: questioner.New(provider, opts),
		Scorer: scorer.New(provider, scorer.Options{
			Timeout:      opts.Timeout,
			MaxLogLength: opts.MaxLogLength,
			Logger:       log,
		}),
		Locker: parts.Locker,
		Logger: log,
	}, interview.Options{
		MaxQuestions: config.Interview.MaxQuestions,
	}), nil
}
