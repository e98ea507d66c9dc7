package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/bankfolio/backend/src/config"
	"github.com/username/bankfolio/backend/src/database"
	"github.com/username/bankfolio/backend/src/handlers"
	"github.com/username/bankfolio/backend/src/logger"
	"github.com/username/bankfolio/backend/src/security"
	"github.com/username/bankfolio/backend/src/services"
	"github.com/username/bankfolio/backend/src/suppliers"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
			} else if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Bankfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath, config.Cfg.MigrationsPath)

	registry := suppliers.NewRegistry(config.Cfg.RegistryPath)
	registry.Load()
	resolver := suppliers.NewResolver(registry)
	learner := suppliers.NewLearner(registry, resolver)

	fetchCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	bankClient := services.NewBankClient(config.Cfg.BankAPIURL, config.Cfg.BankAPIToken, config.Cfg.UpstreamTimeout)
	txService := services.NewTransactionService(
		bankClient,
		fetchCache,
		learner,
		resolver,
		database.DB,
		config.Cfg.PageDelay,
		config.Cfg.FetchCacheTTL,
	)

	txHandler := handlers.NewTransactionHandler(txService)
	supplierHandler := handlers.NewSupplierHandler(registry, resolver, learner)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS(config.Cfg.AllowedOrigins))
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Bankfolio Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		if config.Cfg.JWTSecret != "" {
			authService := security.NewAuthService(config.Cfg.JWTSecret)
			r.Use(handlers.BearerAuthMiddleware(authService))
		}

		r.Get("/transactions", txHandler.HandleGetTransactions)
		r.Get("/transactions/period", txHandler.HandleGetTransactionsByPeriod)
		r.Get("/transactions/credits", txHandler.HandleGetCredits)
		r.Get("/transactions/debits", txHandler.HandleGetDebits)
		r.Get("/transactions/search", txHandler.HandleSearchTransactions)
		r.Get("/transactions/stats", txHandler.HandleGetStats)
		r.Get("/transactions/archive", txHandler.HandleGetArchive)
		r.Post("/transactions/cache/flush", txHandler.HandleFlushCache)

		r.Get("/suppliers", supplierHandler.HandleListSuppliers)
		r.Post("/suppliers", supplierHandler.HandleAddSupplier)
		r.Delete("/suppliers/{key}", supplierHandler.HandleRemoveSupplier)
		r.Get("/suppliers/resolve", supplierHandler.HandleResolveSupplier)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
