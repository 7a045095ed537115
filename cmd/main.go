// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/cache"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/capacity"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/config"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/database"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/handler"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/logger"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/publisher"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/service"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "event-rsvp: %v\n", err)
		os.Exit(1)
	}
}

// stores is the set of repositories behind the services.
type stores struct {
	events        service.EventStore
	participants  service.ParticipantStore
	registrations interface {
		capacity.Store
		service.RegistrationReader
	}
	members      service.MemberStore
	interactions service.InteractionStore
	stats        service.StatsStore
	close        func()
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Configuration and logging ─────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OTel.Enabled,
		ServiceName:   cfg.OTel.ServiceName,
		Environment:   cfg.App.Environment,
		CollectorAddr: cfg.OTel.CollectorAddr,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	// ── 2. Storage ───────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 3. Cache, publisher, metrics ─────────────────────────────────────
	var cacheClient redis.Cmdable
	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		cacheClient = client
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}
	views := cache.New(cacheClient, cfg.Redis.CacheTTL, log)

	var pub publisher.Publisher = publisher.Noop{}
	if cfg.Kafka.Enabled {
		k, err := publisher.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		pub = k
		log.Info("connected to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer pub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ── 4. Wire up layers ────────────────────────────────────────────────
	eventSvc := service.NewEventService(st.events, st.members, views, log)
	registrationSvc := service.NewRegistrationService(service.RegistrationDeps{
		Events:        st.events,
		Participants:  st.participants,
		Registrations: st.registrations,
		Members:       st.members,
		Manager:       capacity.NewManager(st.registrations),
		Views:         views,
		Publisher:     pub,
		Metrics:       m,
		Logger:        log,
	})
	interactionSvc := service.NewInteractionService(st.events, st.participants, st.interactions, st.members, log)
	adminSvc := service.NewAdminService(st.stats, st.events, st.registrations, st.interactions)

	h := handler.New(eventSvc, registrationSvc, interactionSvc, adminSvc, log)
	router := handler.NewRouter(h, handler.RouterConfig{
		ServiceName: cfg.OTel.ServiceName,
		Verifier:    auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		Metrics:     m,
		Logger:      log,
	})

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage),
			zap.String("env", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// openStores connects the configured storage driver.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Storage == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		db := memory.New()
		return &stores{
			events:        memory.NewEventRepository(db),
			participants:  memory.NewParticipantRepository(db),
			registrations: memory.NewRegistrationRepository(db),
			members:       memory.NewMemberRepository(db),
			interactions:  memory.NewInteractionRepository(db),
			stats:         memory.NewStatsRepository(db),
			close:         func() {},
		}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	return &stores{
		events:        repository.NewEventRepository(pool),
		participants:  repository.NewParticipantRepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
		members:       repository.NewMemberRepository(pool),
		interactions:  repository.NewInteractionRepository(pool),
		stats:         repository.NewStatsRepository(pool),
		close:         pool.Close,
	}, nil
}
