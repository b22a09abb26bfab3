package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration loaded from environment
// variables.
type Config struct {
	Env      string
	HTTPAddr string

	// memory | mongo
	StorageMode string
	MongoURI    string
	MongoDB     string

	KafkaBrokers     []string
	KafkaTopicPrefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	ArrivalDay            time.Weekday
	DepartureDay          time.Weekday
	MinimumStayNights     int
	MinimumAdvanceBizDays int

	HoldTTL            time.Duration
	ReaperInterval     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		StorageMode:         strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "staybook"),
		KafkaTopicPrefix:    getEnv("KAFKA_TOPIC_PREFIX", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cancel"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB

	arrival, err := parseWeekdayEnv("ARRIVAL_DAY", time.Sunday)
	if err != nil {
		return Config{}, err
	}
	cfg.ArrivalDay = arrival

	departure, err := parseWeekdayEnv("DEPARTURE_DAY", time.Saturday)
	if err != nil {
		return Config{}, err
	}
	cfg.DepartureDay = departure

	minStay, err := parseIntEnv("MIN_STAY_NIGHTS", 7)
	if err != nil {
		return Config{}, err
	}
	cfg.MinimumStayNights = minStay

	advance, err := parseIntEnv("MIN_ADVANCE_BUSINESS_DAYS", 3)
	if err != nil {
		return Config{}, err
	}
	cfg.MinimumAdvanceBizDays = advance

	holdTTL, err := parseDurationEnv("HOLD_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.HoldTTL = holdTTL

	reap, err := parseDurationEnv("REAPER_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.ReaperInterval = reap

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	retryStr := getEnv("RETRY_BACKOFF", "100ms,500ms,2s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.StorageMode == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseWeekdayEnv(key string, def time.Weekday) (time.Weekday, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(raw, wd.String()) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("invalid %s weekday: %q", key, raw)
}
