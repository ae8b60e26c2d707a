package main

import (
	"context"
	"fmt"
	"log"
	"membership-service/internal/config"
	"membership-service/internal/database/mongo"
	"membership-service/internal/database/redis"
	"membership-service/internal/event"
	"membership-service/internal/handlers"
	"membership-service/internal/middleware"
	"membership-service/internal/repository"
	"membership-service/internal/service"
	"membership-service/pkg/discovery"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	mongo_driver "go.mongodb.org/mongo-driver/v2/mongo"
)

func setupLogging(logDir string) (*os.File, error) {
	if logDir == "" {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		return nil, nil
	}

	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := setupLogging(cfg.Log.Dir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"*"},
	}))

	// Storage
	profileRepo := repository.NewProfileRepository(cfg.Storage.ProfilesPath())
	registrationRepo := repository.NewRegistrationRepository(cfg.Storage.RegistrationsPath())

	var mirror service.ProfileMirror
	var mongoClient *mongo_driver.Client
	if cfg.MongoDB.URI != "" {
		client, db, err := mongo.Connect(cfg.MongoDB)
		if err != nil {
			log.Printf("Warning: profile mirror disabled: %v", err)
		} else {
			mongoClient = client
			mirror = repository.NewMirrorRepository(db, cfg.MongoDB.Collection)
		}
	}

	var sessionStore service.SessionStore
	if cfg.Redis.Address != "" {
		sessionStore = repository.NewSessionRepository(redis.NewClient(cfg.Redis))
	} else {
		log.Println("Warning: Redis address is empty, sessions are kept in memory")
		sessionStore = repository.NewMemorySessionRepository()
	}

	// Events
	var publisher event.Publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher, _ = event.NewEventPublisher("", cfg.RabbitMQ.Exchange)
	}
	publisher = eventPublisher

	// Services
	profileService := service.NewProfileService(profileRepo, mirror, publisher)
	registrationService := service.NewRegistrationService(registrationRepo, publisher)
	sessionService := service.NewSessionService(sessionStore, cfg.Session.JWTSecret, cfg.Session.TTL)
	verifier := service.NewAssertionVerifier(cfg.Identity.VerifierURL, cfg.Identity.Audience, cfg.Identity.Timeout)

	var google handlers.GoogleIdentity
	if cfg.Google.Enabled() {
		google = service.NewGoogleOAuthService(cfg.Google)
	}

	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.AdminExchange, cfg.RabbitMQ.QueueName, registrationService, profileService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else if err := eventConsumer.Start(); err != nil {
		log.Printf("Warning: Failed to start event consumer: %v", err)
		eventConsumer.Close()
	} else {
		defer eventConsumer.Close()
	}

	// Handlers
	app.Use(middleware.RequestTimer())
	app.Use(middleware.SessionGate(sessionService, cfg.Session.CookieName))

	handlers.NewIndexHandler(registrationService, google != nil).RegisterRoutes(app)
	handlers.NewAuthHandler(sessionService, profileService, verifier, google, handlers.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
	}).RegisterRoutes(app)
	handlers.NewProfileHandler(profileService).RegisterRoutes(app)
	handlers.NewRegistrationHandler(registrationService).RegisterRoutes(app)

	var registry *discovery.ServiceRegistry
	if cfg.Consul.Address != "" {
		registry, err = discovery.NewServiceRegistry(cfg)
		if err != nil {
			log.Printf("Warning: Service discovery init failed: %v", err)
		} else if err := registry.Register(); err != nil {
			log.Printf("Warning: %v", err)
			registry = nil
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if err := publisher.Close(); err != nil {
		log.Printf("Error closing event publisher: %v", err)
	}

	mongo.Disconnect(mongoClient)

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
