package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	orchestratorx "github.com/thoriqalqi/VISTARA/agent/agents/orchestrator"
	"github.com/thoriqalqi/VISTARA/agent/agents/specialist"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	llmx "github.com/thoriqalqi/VISTARA/agent/llm"
	schedulex "github.com/thoriqalqi/VISTARA/agent/schedule"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
	configx "github.com/thoriqalqi/VISTARA/pkg/config"
	_ "github.com/thoriqalqi/VISTARA/pkg/logger/autoload"
	metricsx "github.com/thoriqalqi/VISTARA/pkg/metrics"
	openrouterx "github.com/thoriqalqi/VISTARA/pkg/openrouter"
	qstashx "github.com/thoriqalqi/VISTARA/pkg/qstash"
	tracingx "github.com/thoriqalqi/VISTARA/pkg/tracing"
	"github.com/thoriqalqi/VISTARA/server"
)

type AppConfig struct {
	HistoryLimit int           `envconfig:"HISTORY_LIMIT" default:"200"`
	ProfileCache int           `envconfig:"PROFILE_CACHE" default:"512"`
	ProfileTTL   time.Duration `envconfig:"PROFILE_TTL" default:"5m"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("vistara exited")
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[AppConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	httpCfg := configx.MustNew[server.Config]("HTTP")
	authCfg := configx.MustNew[server.AuthConfig]("AUTH")
	dbCfg := configx.MustNew[statex.PostgresConfig]("DATABASE")
	cacheCfg := configx.MustNew[statex.RedisCacheConfig]("UPSTASH_REDIS")
	schedCfg := configx.MustNew[schedulex.Config]("SCHEDULER")
	traceCfg := configx.MustNew[tracingx.Config]("TRACING")

	shutdownTracing, err := tracingx.Setup(ctx, *traceCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	metrics := metricsx.Default()

	stores, closeStores, err := openStores(ctx, *dbCfg, *cacheCfg, *appCfg)
	if err != nil {
		return err
	}
	defer closeStores()

	registry, err := specialist.NewRegistry(ctx, *llmCfg, imageGenerator(*llmCfg), metrics)
	if err != nil {
		return err
	}

	orchestrator, err := orchestratorx.New(stores.conversations, stores.history, stores.profiles, registry, orchestratorx.Config{
		HistoryLimit: appCfg.HistoryLimit,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}

	loc, err := schedCfg.Location()
	if err != nil {
		return err
	}
	events := &schedulex.EventDetectionJob{
		Profiles:      stores.profiles,
		Notifications: stores.notifications,
		Creative:      registry.Creative(),
		Metrics:       metrics,
	}
	reviews := &schedulex.ReviewMonitorJob{
		Profiles:      stores.profiles,
		Notifications: stores.notifications,
		Creative:      registry.Creative(),
		Reviews:       schedulex.NoReviews{},
		Metrics:       metrics,
	}

	deps := server.Deps{
		Chat:          orchestrator,
		Agents:        registry,
		Notifications: stores.notifications,
		Events:        events,
		Reviews:       reviews,
		Gatherer:      prometheus.DefaultGatherer,
		Location:      loc,
	}

	if strings.TrimSpace(os.Getenv("QSTASH_URL")) != "" {
		qstashClient := qstashx.MustNew(*configx.MustNew[qstashx.Config]("QSTASH"))
		deps.Verifier = qstashClient
		if schedCfg.Mode == schedulex.ModeQStash {
			if schedCfg.PublicURL == "" {
				schedCfg.PublicURL = httpCfg.PublicURL
			}
			if err := schedulex.RegisterQStash(ctx, qstashClient, *schedCfg); err != nil {
				return err
			}
		}
	} else if schedCfg.Mode == schedulex.ModeQStash {
		return errors.New("scheduler mode qstash needs QSTASH_* configuration")
	}

	if schedCfg.Mode == schedulex.ModeCron {
		scheduler, err := schedulex.NewScheduler(*schedCfg, events, reviews)
		if err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	srv, err := server.New(*httpCfg, *authCfg, deps)
	if err != nil {
		return err
	}
	log.Info().Str("scheduler", schedCfg.Mode).Bool("postgres", dbCfg.DSN != "").Bool("cache", cacheCfg.Enabled()).Msg("vistara starting")
	return srv.Run(ctx)
}

type storeSet struct {
	conversations statex.Store
	history       statex.HistoryStore
	profiles      statex.ProfileStore
	notifications statex.NotificationStore
}

func openStores(ctx context.Context, db statex.PostgresConfig, cache statex.RedisCacheConfig, app AppConfig) (storeSet, func(), error) {
	var (
		set     storeSet
		closeFn = func() {}
	)

	if strings.TrimSpace(db.DSN) == "" {
		log.Warn().Msg("DATABASE_DSN not set, using in-memory stores")
		mem := statex.NewMemoryStore()
		set = storeSet{conversations: mem, history: mem, profiles: mem, notifications: mem}
	} else {
		pg, err := statex.OpenPostgres(db)
		if err != nil {
			return storeSet{}, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return storeSet{}, nil, err
		}
		closeFn = func() {
			if err := pg.Close(); err != nil {
				log.Warn().Err(err).Msg("close postgres")
			}
		}
		set = storeSet{conversations: pg, history: pg, profiles: pg, notifications: pg}
	}

	if cache.Enabled() {
		redis, err := statex.NewRedisCache(cache)
		if err != nil {
			closeFn()
			return storeSet{}, nil, err
		}
		set.conversations = statex.NewTieredStore(redis, set.conversations)
	}

	set.profiles = statex.NewCachedProfiles(set.profiles, app.ProfileCache, app.ProfileTTL)
	return set, closeFn, nil
}

// imageGenerator returns nil when no image model is configured, so the
// registry sees a nil interface rather than a nil *ImageClient.
func imageGenerator(cfg llmx.Config) contractx.ImageGenerator {
	if strings.TrimSpace(cfg.ImageModel) == "" {
		return nil
	}
	client := openrouterx.NewClient(cfg.OpenRouterFor(contractx.RoleCreative))
	if client == nil {
		return nil
	}
	return llmx.NewImageClient(client, cfg.ImageModel, cfg.CallTimeout())
}
