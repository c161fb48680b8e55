package main

import (
    "net/http"
    "time"

    "github.com/gorilla/mux"
    "github.com/joho/godotenv"
    "github.com/rs/cors"
    "isp-netops.com/engine/internal/coa"
    "isp-netops.com/engine/internal/compliance"
    "isp-netops.com/engine/internal/config"
    "isp-netops.com/engine/internal/handlers"
    "isp-netops.com/engine/internal/middleware"
    "isp-netops.com/engine/internal/provisioning"
    "isp-netops.com/engine/internal/queue"
    "isp-netops.com/engine/internal/radiusstore"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
    "isp-netops.com/engine/pkg/redis"
)

func main() {
    // Load environment variables
    godotenv.Load()

    // Initialize logger
    log := logger.New()
    log.Info("Starting ISP NetOps Provisioning Engine API v1.0.0...")

    cfg := config.Load()

    // Connect to database
    db, err := database.Connect()
    if err != nil {
        log.Fatal("Failed to connect to database", "error", err)
    }
    defer db.Close()
    log.Info("Database connected successfully")

    // Run migrations
    if err := db.RunMigrations("./migrations"); err != nil {
        log.Fatal("Failed to run migrations", "error", err)
    }
    log.Info("Migrations completed")

    // Redis is optional: without it the rate limiter is a no-op and the
    // enforcement sweep falls back to single-instance guarding.
    redisClient, err := redis.Connect()
    if err != nil {
        log.Warn("Redis unavailable, continuing without it", "error", err.Error())
        redisClient = nil
    }

    // Wire the engine
    radiusStore := radiusstore.New(db)
    queueStore := queue.New(db)
    coaSender := coa.NewSender(cfg.RadiusCoAPort)
    orchestrator := provisioning.NewOrchestrator(db, radiusStore, queueStore, coaSender, log,
        cfg.RouterTimeout, cfg.ConnectTimeout)
    checker := compliance.NewChecker(db, log, cfg.RouterTimeout)
    enforcer := compliance.NewWorker(db, checker, queueStore, redisClient, log,
        cfg.RadiusServerIP, cfg.EnforceLeaseTTL, cfg.RouterTimeout)

    h := handlers.New(db, log, cfg, orchestrator, radiusStore, checker, enforcer, queueStore)
    rateLimiter := middleware.NewRateLimiter(redisClient, 20, time.Minute)

    // Create router
    r := mux.NewRouter()

    // ============== PUBLIC ROUTES (No Auth) ==============
    r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
    r.Handle("/api/auth/login", rateLimiter.Middleware(http.HandlerFunc(h.Login))).Methods("POST")
    r.Handle("/api/auth/register", rateLimiter.Middleware(http.HandlerFunc(h.Register))).Methods("POST")

    // ============== PROTECTED ROUTES (JWT Auth) ==============
    api := r.PathPrefix("/api").Subrouter()
    api.Use(middleware.Auth(cfg.JWTSecret))

    // Auth
    api.HandleFunc("/auth/refresh", h.RefreshToken).Methods("POST")

    // Routers
    api.HandleFunc("/routers", h.GetRouters).Methods("GET")
    api.HandleFunc("/routers", h.CreateRouter).Methods("POST")
    api.HandleFunc("/routers/capabilities", h.GetRouterCapabilities).Methods("GET")
    api.HandleFunc("/routers/{id}", h.GetRouter).Methods("GET")
    api.HandleFunc("/routers/{id}/status", h.UpdateRouterStatus).Methods("PUT")
    api.HandleFunc("/routers/{id}/script", h.GetRouterScript).Methods("GET")
    api.HandleFunc("/routers/{id}/health", h.GetRouterHealth).Methods("GET")
    api.HandleFunc("/routers/{id}/sessions", h.GetRouterSessions).Methods("GET")
    api.HandleFunc("/routers/{id}/logs", h.GetRouterLogs).Methods("GET")

    // User credential provisioning
    api.HandleFunc("/users/provision", h.ProvisionUserCredentials).Methods("POST")
    api.HandleFunc("/users/deprovision", h.DeprovisionUserCredentials).Methods("POST")
    api.HandleFunc("/users/suspend", h.SuspendUserCredentials).Methods("POST")
    api.HandleFunc("/users/unsuspend", h.UnsuspendUserCredentials).Methods("POST")
    api.HandleFunc("/users/speed", h.ChangeUserSpeed).Methods("POST")
    api.HandleFunc("/users/{username}/access", h.GetUserAccessStatus).Methods("GET")

    api.HandleFunc("/plans", h.GetPlans).Methods("GET")

    // Service lifecycle
    api.HandleFunc("/services/{id}/provision", h.ProvisionService).Methods("POST")
    api.HandleFunc("/services/{id}/deprovision", h.DeprovisionService).Methods("POST")
    api.HandleFunc("/services/sweep", h.RunProvisionSweep).Methods("POST")

    // Billing proration
    api.HandleFunc("/billing/proration", h.PreviewProration).Methods("POST")

    // Compliance & enforcement
    api.HandleFunc("/compliance", h.GetCompliance).Methods("GET")
    api.HandleFunc("/compliance/check", h.CheckAllRouters).Methods("POST")
    api.HandleFunc("/compliance/{id}", h.GetRouterCompliance).Methods("GET")
    api.HandleFunc("/compliance/{id}/check", h.CheckRouterCompliance).Methods("POST")
    // Enforcement mutates device config; operators can read compliance
    // but only admin/NOC may trigger repairs.
    enforce := middleware.RequireRole("admin", "noc")
    api.Handle("/enforcement/run", enforce(http.HandlerFunc(h.RunEnforcement))).Methods("POST")
    api.Handle("/enforcement/{id}", enforce(http.HandlerFunc(h.EnforceRouter))).Methods("POST")
    api.Handle("/users/{username}/attributes", enforce(http.HandlerFunc(h.GetUserAttributes))).Methods("GET")

    // Provisioning queue
    api.HandleFunc("/queue", h.GetQueue).Methods("GET")

    // System logs
    r.HandleFunc("/api/logs", h.CreateSystemLog).Methods("POST")
    api.HandleFunc("/logs", h.GetSystemLogs).Methods("GET")
    api.HandleFunc("/logs/stats", h.GetLogStats).Methods("GET")
    api.HandleFunc("/logs/cleanup", h.DeleteOldLogs).Methods("DELETE")

    // CORS configuration
    c := cors.New(cors.Options{
        AllowedOrigins:   []string{"*"},
        AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
        AllowedHeaders:   []string{"Authorization", "Content-Type"},
        AllowCredentials: true,
    })

    // Create server
    srv := &http.Server{
        Handler:      c.Handler(r),
        Addr:         ":" + cfg.Port,
        WriteTimeout: 15 * time.Second,
        ReadTimeout:  15 * time.Second,
        IdleTimeout:  60 * time.Second,
    }

    log.Info("Server starting", "port", cfg.Port)

    if err := srv.ListenAndServe(); err != nil {
        log.Fatal("Server failed", "error", err)
    }
}
