package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm/logger"

	"github.com/deskwatch/deskwatch/internal/config"
	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/handlers"
	"github.com/deskwatch/deskwatch/internal/jobs"
	"github.com/deskwatch/deskwatch/internal/kb"
	"github.com/deskwatch/deskwatch/internal/llm"
	"github.com/deskwatch/deskwatch/internal/metrics"
	"github.com/deskwatch/deskwatch/internal/middleware"
	"github.com/deskwatch/deskwatch/internal/monitoring"
	"github.com/deskwatch/deskwatch/internal/notify"
	"github.com/deskwatch/deskwatch/internal/pipeline"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Deskwatch...")

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}
	db := database.GetDB()

	// Select LLM provider. No API key means the deterministic mock,
	// which keeps the whole system runnable offline.
	client := buildLLMClient(cfg)
	if client.IsMock() {
		log.Printf("OPENAI_API_KEY not set, using mock LLM provider")
	} else {
		log.Printf("Using OpenAI provider (model: %s)", cfg.OpenAIModel)
	}

	// Operator rule overrides for thresholds and SLAs
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load rules file: %v", err)
	}
	if cfg.RulesFile != "" {
		log.Printf("Loaded rule overrides from %s", cfg.RulesFile)
	}

	// Knowledge base index
	retriever, err := kb.NewRetriever(client, cfg.KBDir)
	if err != nil {
		log.Printf("Warning: knowledge base unavailable (%v), continuing with empty index", err)
		retriever, err = kb.NewRetrieverFromChunks(client, nil)
		if err != nil {
			log.Fatalf("Failed to build empty knowledge base index: %v", err)
		}
	}
	log.Printf("Knowledge base indexed: %d chunks from %s", retriever.Size(), cfg.KBDir)

	// Ticket pipeline
	history := kb.NewTicketHistory(db, client)
	router := pipeline.NewRouter().WithSLAOverrides(rules.SLAHours)
	processor := pipeline.NewProcessor(client, retriever, history).WithRouter(router)

	// Monitoring pipeline
	generator := monitoring.NewGenerator(monitoring.GeneratorConfig{
		EventInterval: cfg.EventInterval,
	})
	checker := monitoring.NewThresholdCheckerWithTable(thresholdTable(rules))
	analyst := monitoring.NewAnalyst(client)
	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertsChannel)
	if notifier.Enabled() {
		log.Printf("Slack notifications enabled for channel %s", cfg.SlackAlertsChannel)
	} else {
		log.Printf("Slack notifications disabled (SLACK_BOT_TOKEN not set)")
	}

	poller := jobs.NewMonitorPoller(generator, checker, analyst, db, notifier)
	pollerStop := make(chan struct{})
	go poller.Start(cfg.PollInterval, pollerStop)
	log.Printf("Monitor poller started (interval: %v)", cfg.PollInterval)

	// Prometheus metrics
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Authentication. An empty admin password disables enforcement.
	jwtAuthMiddleware, authEnabled := buildAuth(cfg)
	if authEnabled {
		log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)
	} else {
		log.Printf("JWT authentication DISABLED (set ADMIN_PASSWORD to enable)")
	}

	// HTTP routes
	mux := http.NewServeMux()
	handlers.NewHTTPHandler().SetupRoutes(mux)
	handlers.NewMonitorHandler(generator, analyst, db).SetupRoutes(mux)
	handlers.NewTicketHandler(processor, retriever, history, db).SetupRoutes(mux)
	handlers.NewAuthHandler(jwtAuthMiddleware).SetupRoutes(mux)
	handlers.NewEventsWSHandler(generator).SetupRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Request ID, then CORS, then authentication
	corsMiddleware := middleware.NewCORSMiddleware()
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Deskwatch is running! Press Ctrl+C to exit.")
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)
	log.Printf("Event stream: ws://localhost:%d/ws/events", cfg.HTTPPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(pollerStop)
	generator.Stop()
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	log.Println("Shutdown complete")
}

// buildLLMClient returns the OpenAI client when configured, the mock
// provider otherwise
func buildLLMClient(cfg *config.Config) llm.Client {
	if cfg.OpenAIAPIKey == "" {
		return llm.NewMockClient()
	}
	client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
	})
	if err != nil {
		log.Printf("Warning: OpenAI client unavailable (%v), falling back to mock provider", err)
		return llm.NewMockClient()
	}
	return client
}

// buildAuth assembles the JWT middleware. Auth is enforced only when an
// admin password is configured.
func buildAuth(cfg *config.Config) (*middleware.JWTAuthMiddleware, bool) {
	enabled := cfg.AdminPassword != ""

	passwordHash := ""
	if enabled {
		hash, err := middleware.HashPassword(cfg.AdminPassword)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		passwordHash = hash
	}

	return middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           enabled,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/auth/login",
			"/ws/*",
		},
	}), enabled
}

// thresholdTable merges rule-file threshold overrides over the built-in
// defaults. An event type present in the rules file replaces its whole
// threshold list.
func thresholdTable(rules *config.Rules) map[monitoring.EventType][]monitoring.MetricThreshold {
	table := monitoring.DefaultThresholds()
	for eventType, list := range rules.Thresholds {
		converted := make([]monitoring.MetricThreshold, len(list))
		for i, rule := range list {
			converted[i] = monitoring.MetricThreshold{Metric: rule.Metric, Value: rule.Value}
		}
		table[monitoring.EventType(eventType)] = converted
	}
	return table
}
