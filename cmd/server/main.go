package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"uniportal/internal/config"
	"uniportal/internal/database"
	"uniportal/internal/handlers"
	"uniportal/internal/models"
	"uniportal/internal/repository"
	"uniportal/internal/security"
	"uniportal/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	// Security primitives
	tokens := security.NewTokenIssuer(cfg.SessionSecret, cfg.SessionDuration)
	csrf := security.NewCSRFGenerator(cfg.SessionSecret)
	limiter := security.NewRateLimiter(10, time.Minute)

	// Services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.EmailDebug, cfg.OTPLifetime)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	authService := service.NewAuthService(accountRepo, otpRepo, emailService, tokens, cfg.OTPLifetime)

	if err := seedAdminAccount(accountRepo, cfg); err != nil {
		log.Printf("Warning: failed to seed admin account: %v", err)
	}

	// Handlers
	middleware := handlers.NewMiddleware(tokens, csrf, limiter)
	authHandler := handlers.NewAuthHandler(authService, tokens, csrf)
	userHandler := handlers.NewUserHandler(authService)
	announcementHandler := handlers.NewAnnouncementHandler(announcementRepo)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", middleware.RateLimit(authHandler.Signup))
	mux.HandleFunc("POST /api/auth/verify-signup", middleware.RateLimit(authHandler.VerifySignup))
	mux.HandleFunc("POST /api/auth/resend-otp", middleware.RateLimit(authHandler.ResendOTP))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/forgot-password", middleware.RateLimit(authHandler.ForgotPassword))
	mux.HandleFunc("POST /api/auth/verify-reset-otp", middleware.RateLimit(authHandler.VerifyResetOTP))
	mux.HandleFunc("POST /api/auth/reset-password", middleware.RateLimit(authHandler.ResetPassword))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/user", middleware.RequireAuth(userHandler.CurrentUser))
	mux.HandleFunc("GET /api/auth/csrf", middleware.RequireAuth(authHandler.CSRFToken))

	mux.HandleFunc("POST /api/user/setup-profile", middleware.RequireAuth(middleware.CSRFProtect(userHandler.SetupProfile)))

	mux.HandleFunc("GET /api/announcements", middleware.RequireAuth(announcementHandler.List))
	mux.HandleFunc("POST /api/announcements", middleware.RequireAuth(middleware.CSRFProtect(announcementHandler.Create)))
	mux.HandleFunc("POST /api/announcements/{id}/approve", middleware.RequireAdmin(middleware.CSRFProtect(announcementHandler.Approve)))

	handler := handlers.Logging(mux)

	// Background pruning of expired codes and abandoned registrations
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		if err := authService.CleanupExpired(); err != nil {
			log.Printf("Error pruning expired auth state: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule cleanup job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedAdminAccount creates the configured admin account when the portal has
// no accounts yet. Normal accounts only come into existence through OTP
// promotion; this is the one pre-seeded exception.
func seedAdminAccount(accounts *repository.AccountRepository, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	count, err := accounts.CountAccounts()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	if _, err := accounts.Create(cfg.AdminEmail, "admin", "Portal Admin", hash, models.RoleAdmin, true); err != nil {
		return err
	}

	log.Printf("Seeded admin account: %s", cfg.AdminEmail)
	return nil
}
