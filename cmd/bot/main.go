// Command bot is the composition root: it loads configuration, opens the
// database and the conversation store, wires the gateways into the engine and
// the notifier, and serves the ops/webhook HTTP endpoint until interrupted.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/warrantyhub/warranty-bot/internal/cert"
	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/config"
	"github.com/warrantyhub/warranty-bot/internal/crm"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/engine"
	httpapi "github.com/warrantyhub/warranty-bot/internal/http"
	"github.com/warrantyhub/warranty-bot/internal/mailer"
	"github.com/warrantyhub/warranty-bot/internal/metrics"
	"github.com/warrantyhub/warranty-bot/internal/notify"
	"github.com/warrantyhub/warranty-bot/internal/observability"
	"github.com/warrantyhub/warranty-bot/internal/repo"
	"github.com/warrantyhub/warranty-bot/internal/services"
	"github.com/warrantyhub/warranty-bot/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.InitLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Conversation store: Redis when configured, in-process otherwise.
	var store engine.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		store = engine.NewRedisStore(rdb, cfg.ConvTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis conversation store")
	} else {
		store = engine.NewMemoryStore()
		log.Info().Msg("using in-memory conversation store")
	}

	var messenger chat.Messenger
	if cfg.OutboxURL != "" {
		messenger = chat.NewHTTPMessenger(cfg.OutboxURL, &http.Client{Timeout: 30 * time.Second})
	} else {
		messenger = chat.LogMessenger{Log: log.Logger}
		log.Warn().Msg("no OUTBOX_URL configured; outgoing messages are logged only")
	}

	var crmSync *services.CRMSync
	if cfg.CRM.WebhookURL != "" {
		crmSync = &services.CRMSync{
			DB:             db,
			Gateway:        crm.NewBitrix(cfg.CRM.WebhookURL, &http.Client{Timeout: cfg.CRM.Timeout}),
			Log:            log.Logger,
			DealCategoryID: cfg.CRM.DealCategoryID,
			SerialField:    cfg.CRM.SerialField,
			ModelField:     cfg.CRM.ModelField,
		}
	} else {
		log.Warn().Msg("no CRM_WEBHOOK_URL configured; crm sync disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	admins := make(map[int64]struct{}, len(cfg.AdminChatIDs))
	for _, id := range cfg.AdminChatIDs {
		admins[id] = struct{}{}
	}

	eng := &engine.Engine{
		Store:     store,
		Messenger: messenger,
		Users:     &services.UserService{DB: db},
		Devices:   &services.DeviceService{DB: db},
		Guarantees: &services.GuaranteeService{
			DB:  db,
			Log: log.Logger,
			Prices: map[domain.Tier]int{
				domain.TierComfort: cfg.ComfortPrice,
				domain.TierPremium: cfg.PremiumPrice,
			},
			CRM: crmSync,
		},
		Mail: &mailer.SMTP{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Enabled:  cfg.VerificationEnabled,
		},
		Certs:    cert.File{},
		Log:      log.Logger,
		Metrics:  m,
		AdminIDs: admins,
	}

	notifier := &notify.Notifier{
		DB:        db,
		Messenger: messenger,
		Log:       log.Logger,
		Clock:     notify.SystemClock{},
		Metrics:   m,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.NotifyRPS), cfg.NotifyBurst),
	}
	go notifier.Run(ctx, cfg.NotifyInterval)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, eng, reg, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
