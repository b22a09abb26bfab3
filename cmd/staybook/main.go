package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"staybook/internal/app/notify"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/payments"
	"staybook/internal/app/reservation"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/rules"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	infrapayments "staybook/internal/infra/payments"
	"staybook/internal/infra/storage/memory"
	redisstore "staybook/internal/infra/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	for _, runner := range app.runners {
		r := runner
		go func() {
			if err := r.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "name", r.name, "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type runner struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	handlers ginserver.Handlers
	runners  []runner
	ready    func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	engine, err := rules.NewEngine(rules.ArrivalRules{
		ArrivalDay:                 cfg.ArrivalDay,
		DepartureDay:               cfg.DepartureDay,
		MinimumStayNights:          cfg.MinimumStayNights,
		MinimumAdvanceBusinessDays: cfg.MinimumAdvanceBizDays,
	})
	if err != nil {
		return application{}, fmt.Errorf("admission rules: %w", err)
	}

	hub := notify.NewHub()

	var (
		units     unit.Repository
		bookings  booking.Repository
		slots     availability.Store
		outboxDst appoutbox.Outbox
		ready     = func() error { return nil }
		runners   []runner
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		units = mongodb.NewUnitRepository(client.DB)
		bookings = mongodb.NewBookingRepository(client.DB)
		slots = mongodb.NewAvailabilityStore(client.DB)
		outboxStore := infraoutbox.NewStore(client.DB)
		outboxDst = outboxStore
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka producer: %w", err)
			}
			worker := &infraoutbox.Worker{
				Store:       outboxStore,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
			runners = append(runners, runner{name: "outbox-worker", run: worker.Run})
		} else {
			logger.Warn("no kafka brokers configured, outbox events will accumulate unsent")
		}
	default:
		unitRepo := memory.NewUnitRepository()
		seedUnits(unitRepo, logger)
		units = unitRepo
		bookings = memory.NewBookingRepository()
		slots = memory.NewAvailabilityStore()
		outboxDst = memory.NewOutbox()
	}

	var dedupe payments.DedupeStore
	if cfg.RedisAddr != "" {
		dedupe = redisstore.NewDedupeStore(redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), 0)
	} else {
		dedupe = memory.NewDedupeStore()
	}

	coordinator := &reservation.Coordinator{
		Units:    units,
		Bookings: bookings,
		Slots:    slots,
		Rules:    engine,
		Outbox:   outboxDst,
		Notifier: hub,
		HoldTTL:  cfg.HoldTTL,
		Backoff:  cfg.RetryBackoff,
		Logger:   logger,
	}

	reaper := &reservation.Reaper{
		Coordinator: coordinator,
		Bookings:    bookings,
		Interval:    cfg.ReaperInterval,
		Logger:      logger,
	}
	runners = append(runners, runner{name: "hold-reaper", run: reaper.Run})

	paymentHandler := &payments.Handler{
		Coordinator: coordinator,
		Verifier:    infrapayments.StripeVerifier{WebhookSecret: cfg.StripeWebhookSecret},
		Dedupe:      dedupe,
		Logger:      logger,
	}

	auth := ginserver.AuthMiddleware{Resolver: tokenResolver(cfg.Env, logger)}

	var checkout ginserver.CheckoutStarter
	if cfg.StripeSecretKey != "" {
		checkout = infrapayments.NewCheckoutClient(cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	} else {
		logger.Warn("no stripe secret key configured, checkout endpoint disabled")
	}

	return application{
		handlers: ginserver.Handlers{
			Reservation: ginserver.ReservationHandler{
				Coordinator: coordinator,
				Bookings:    bookings,
				Units:       units,
				Sessions:    checkout,
			},
			Calendar: ginserver.CalendarHandler{
				Units: units,
				Slots: slots,
			},
			Admin: ginserver.AdminHandler{
				Coordinator: coordinator,
			},
			Webhook: ginserver.WebhookHandler{
				Payments: paymentHandler,
			},
			Changes: ginserver.ChangesHandler{
				Hub: hub,
			},
			AuthMiddleware: auth.Handle,
		},
		runners: runners,
		ready:   ready,
	}, nil
}

// tokenResolver builds the static token table from API_TOKENS, formatted as
// "token=user-id:role|role,...". Dev mode seeds two well-known tokens so
// the API works out of the box.
func tokenResolver(env string, logger *slog.Logger) ginserver.StaticTokenResolver {
	tokens := map[string]ginserver.StaticPrincipal{}
	for _, entry := range strings.Split(os.Getenv("API_TOKENS"), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, rest, ok := strings.Cut(entry, "=")
		if !ok {
			logger.Warn("skipping malformed API_TOKENS entry")
			continue
		}
		id, rolesRaw, _ := strings.Cut(rest, ":")
		var roles []string
		for _, r := range strings.Split(rolesRaw, "|") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
		tokens[strings.TrimSpace(token)] = ginserver.StaticPrincipal{ID: strings.TrimSpace(id), Roles: roles}
	}
	if len(tokens) == 0 && (env == "dev" || env == "local") {
		tokens["dev-guest"] = ginserver.StaticPrincipal{ID: "guest-1", Roles: []string{"guest"}}
		tokens["dev-admin"] = ginserver.StaticPrincipal{ID: "admin-1", Roles: []string{"admin"}}
		logger.Info("seeded dev tokens", "tokens", []string{"dev-guest", "dev-admin"})
	}
	return ginserver.StaticTokenResolver{Tokens: tokens}
}

func seedUnits(repo *memory.UnitRepository, logger *slog.Logger) {
	path := getenv("UNIT_FIXTURES", filepath.Join("data", "units.json"))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			repo.Seed(defaultUnits()...)
			logger.Info("unit fixtures not found, seeded defaults", "path", path)
			return
		}
		logger.Warn("unit fixtures unreadable, seeded defaults", "path", path, "error", err)
		repo.Seed(defaultUnits()...)
		return
	}

	var fixtures []unitFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		logger.Warn("unit fixtures invalid, seeded defaults", "path", path, "error", err)
		repo.Seed(defaultUnits()...)
		return
	}
	seeded := make([]unit.Unit, 0, len(fixtures))
	for _, fx := range fixtures {
		rate, err := money.New(fx.WeeklyRateCents, fallback(fx.Currency, "EUR"))
		if err != nil {
			logger.Warn("unit fixture skipped", "unit_id", fx.ID, "error", err)
			continue
		}
		seeded = append(seeded, unit.Unit{
			ID:             unit.UnitID(fx.ID),
			Title:          fx.Title,
			InventoryCount: fx.InventoryCount,
			WeeklyRate:     rate,
		})
	}
	repo.Seed(seeded...)
	logger.Info("unit fixtures imported", "count", len(seeded), "path", path)
}

type unitFixture struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	InventoryCount  int    `json:"inventory_count"`
	WeeklyRateCents int64  `json:"weekly_rate_cents"`
	Currency        string `json:"currency"`
}

func defaultUnits() []unit.Unit {
	return []unit.Unit{
		{ID: "U1", Title: "Seaside cabin", InventoryCount: 1, WeeklyRate: money.Must(91000, "EUR")},
		{ID: "U2", Title: "Forest lodge", InventoryCount: 1, WeeklyRate: money.Must(70000, "EUR")},
	}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
