package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sheetsync-bridge/hubspot"
	"sheetsync-bridge/ingest"
	"sheetsync-bridge/ingest/application"
	"sheetsync-bridge/ingest/domain"
	"sheetsync-bridge/ingest/infra"
	"sheetsync-bridge/middleware/cors"
	"sheetsync-bridge/middleware/ratelimit"
	rlinfra "sheetsync-bridge/middleware/ratelimit/infra"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Local runs keep secrets in a .env next to the binary; in the
	// container everything arrives through real environment variables.
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	store, err := infra.OpenEventStore(cfg.dbPath)
	if err != nil {
		log.Fatalf("event store error: %v", err)
	}
	defer store.Close()

	crm := hubspot.NewClient(cfg.hubspotToken,
		hubspot.WithBaseURL(cfg.hubspotBaseURL),
		hubspot.WithRateLimit(cfg.hubspotRPS, cfg.hubspotBurst),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var stats domain.SyncStats
	if cfg.statsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		stats = infra.NewRedisSyncStats(rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackSheets(cfg.statsTrackSheets),
		)
	}

	svc := application.Service{
		Store:    store,
		Upserter: crm,
		Stats:    stats,
	}

	var guard func(http.Handler) http.Handler
	if cfg.rateEnabled {
		limStore := rlinfra.NewStore(cfg.rateRPS, cfg.rateBurst)
		limStore.StartJanitor(ctx)

		rateMw := ratelimit.Middleware(ratelimit.Options{
			Store:               limStore,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
		})
		concMw := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Max:            cfg.concurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
		})
		guard = func(next http.Handler) http.Handler {
			return rateMw(concMw(next))
		}
	}

	api := ingest.NewHandler(ingest.Options{
		Service:         svc,
		Secret:          cfg.bridgeSecret,
		TokenConfigured: crm.Configured(),
		Guard:           guard,
	})

	mux := http.NewServeMux()
	api.Register(mux)

	h := cors.Middleware(cors.Options{
		AllowedOrigins:   cfg.corsOrigins,
		AllowCredentials: true,
	})(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("sheetsync bridge listening on :%s", cfg.port)
	log.Printf("db: %s", cfg.dbPath)
	log.Printf("hubspot: configured=%v baseURL=%s rps=%.2f", crm.Configured(), cfg.hubspotBaseURL, cfg.hubspotRPS)
	log.Printf("rate: enabled=%v rps=%.3f burst=%d keyHeader=%q trustXFF=%v", cfg.rateEnabled, cfg.rateRPS, cfg.rateBurst, cfg.rateKeyHeader, cfg.trustXFF)
	log.Printf("stats: enabled=%v redisAddr=%q bucket=%q ttl=%s trackSheets=%v", cfg.statsEnabled, cfg.statsRedisAddr, cfg.statsBucket, cfg.statsTTL, cfg.statsTrackSheets)
	log.Printf("concurrency: max=%d acquireTimeout=%s", cfg.concurrencyMax, cfg.concurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	port           string
	bridgeSecret   string
	hubspotToken   string
	hubspotBaseURL string
	hubspotRPS     float64
	hubspotBurst   int
	dbPath         string
	corsOrigins    []string

	rateEnabled   bool
	rateRPS       float64
	rateBurst     int
	rateKeyHeader string
	trustXFF      bool
	retryAfter    time.Duration
	addHeaders    bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsEnabled       bool
	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackSheets   bool
}

func readConfig() (config, error) {
	cfg := config{}

	// The hosting platform injects PORT at run time; 8000 keeps local
	// runs working without any environment at all.
	cfg.port = getenvDefault("PORT", "8000")
	if _, err := strconv.Atoi(cfg.port); err != nil {
		return config{}, errors.New("PORT must be numeric")
	}

	cfg.bridgeSecret = getenvDefault("BRIDGE_SECRET", "change-me")
	cfg.hubspotToken = os.Getenv("HUBSPOT_ACCESS_TOKEN")
	cfg.hubspotBaseURL = getenvDefault("HUBSPOT_BASE_URL", hubspot.DefaultBaseURL)
	cfg.hubspotRPS = getenvFloatDefault("HUBSPOT_RPS", 8)
	cfg.hubspotBurst = getenvIntDefault("HUBSPOT_BURST", 8)
	cfg.dbPath = getenvDefault("DB_PATH", "sheetsync.db")

	// tighten in prod
	origins := getenvDefault("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.corsOrigins = append(cfg.corsOrigins, o)
		}
	}

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	// Burst allows an initial run of requests through. With a very low
	// RPS the default of 20 makes the limiter look broken because the
	// first ~20 pass, so clamp it to 1 in that case.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.statsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "sheetsync:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackSheets = getenvBoolDefault("STATS_TRACK_SHEETS", false)

	if cfg.statsEnabled && strings.TrimSpace(cfg.statsRedisAddr) == "" {
		return config{}, errors.New("STATS_REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if cfg.rateEnabled && cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateEnabled && cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.hubspotRPS < 0 {
		return config{}, errors.New("HUBSPOT_RPS must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
