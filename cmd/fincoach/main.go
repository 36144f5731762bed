package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fincoach/internal/advice"
	"fincoach/internal/agents"
	"fincoach/internal/amqp"
	"fincoach/internal/auth"
	"fincoach/internal/cache"
	"fincoach/internal/categorize"
	"fincoach/internal/cli"
	apphttp "fincoach/internal/http"
	"fincoach/internal/importer"
	"fincoach/internal/llm"
	applog "fincoach/internal/log"
	"fincoach/internal/middleware/ratelimit"
	"fincoach/internal/services"
	"fincoach/internal/sheets"
	gsheet "fincoach/internal/sheets/google"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentApp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := cli.OpenStore(ctx, cfg, logger)
	defer cli.Close(result, logger)
	store := result.Store

	completer, llmCloser, err := llm.New(ctx, llm.Config{
		Provider:       cfg.LLMProvider,
		AnthropicKey:   cfg.AnthropicKey,
		AnthropicModel: cfg.AnthropicModel,
		GeminiKey:      cfg.GeminiKey,
		GeminiModel:    cfg.GeminiModel,
		Timeout:        cfg.LLMTimeout,
	})
	if err != nil {
		logger.Error("Failed to initialize LLM provider", applog.FieldError, err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	defer llmCloser.Close()
	logger.Info("LLM provider ready", "provider", cfg.LLMProvider)

	catOpts := []categorize.Option{
		categorize.WithCompleter(completer),
		categorize.WithMemoTTL(cfg.CategoryCacheTTL),
		categorize.WithLogger(logger),
	}
	if cfg.CategoryRulesPath != "" {
		rules, err := categorize.LoadRules(cfg.CategoryRulesPath)
		if err != nil {
			logger.Error("Failed to load category rules", applog.FieldError, err, "path", cfg.CategoryRulesPath)
			os.Exit(1)
		}
		catOpts = append(catOpts, categorize.WithRules(rules))
	}
	categorizer := categorize.New(catOpts...)

	// AMQP is optional; without it insights are refreshed inline.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, refreshing insights inline", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var rows sheets.RowReader
	if cfg.GoogleServiceAccountJSON != "" || cfg.GoogleServiceAccountFile != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		rows = client
	} else {
		logger.Info("Google Sheets import disabled - no service account configured")
	}

	caches := cache.NewManager(logger)
	analysisCache := cache.NewLRUCache[any](1000, cfg.AnalysisCacheTTL)
	caches.Register("analysis", analysisCache)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	analysis := services.NewAnalysisService(store, advice.NewComposer(completer, logger), analysisCache,
		services.AnalysisConfig{EmergencyFundMonths: cfg.EmergencyFundMonths, SavingsRateTarget: cfg.SavingsRateTarget}, logger)
	insightSvc := services.NewInsightService(store, nil, logger)
	txSvc := services.NewTransactionService(store, categorizer, insightSvc, publisher, analysis, logger)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      ratelimit.Config{RequestsPerSecond: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		TrustedProxies: cfg.TrustedProxies,
	}, apphttp.Services{
		Accounts:     services.NewAccountService(store, auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL), analysis, logger),
		Transactions: txSvc,
		Insights:     insightSvc,
		Analysis:     analysis,
		Tasks:        services.NewTaskService(store, agents.NewManager(completer, logger), logger),
		Imports:      services.NewImportService(importer.New(importer.NewMapper(completer), categorizer, logger), rows, txSvc, logger),
		Categorizer:  categorizer,
		Store:        store,
	}, logger)
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting fincoach server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", publisher != nil,
		"sheets", rows != nil,
		"trusted_proxies", strings.Join(cfg.TrustedProxies, ","))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
