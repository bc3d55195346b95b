package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/unilodge/unilodge-api/internal/config"
	"github.com/unilodge/unilodge-api/internal/database"
	"github.com/unilodge/unilodge-api/internal/handler"
	"github.com/unilodge/unilodge-api/internal/middleware"
	"github.com/unilodge/unilodge-api/internal/models"
	"github.com/unilodge/unilodge-api/internal/repository"
	"github.com/unilodge/unilodge-api/internal/router"
	"github.com/unilodge/unilodge-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Schema migration happens here, at startup, never lazily inside a
	// request handler.
	if err := db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, cross-node relay limited to redis")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userDirectory := repository.NewUserDirectory(db)
	propertyDirectory := repository.NewPropertyDirectory(db)
	typingStore := repository.NewTypingStore(redisClient, cfg.TypingWindow)
	unitOfWork := repository.NewUnitOfWork(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.EventChannelBase, natsConn, logger)
	conversationService := service.NewConversationService(conversationRepo, userDirectory, propertyDirectory, unitOfWork, validate, logger)
	messageService := service.NewMessageService(conversationService, userDirectory, messageRepo, typingStore, unitOfWork, notificationService, validate, logger)
	streamService := service.NewStreamService(conversationService, messageRepo, typingStore, userDirectory, cfg.StreamPollInterval, cfg.StreamLifetime, logger)

	conversationHandler := handler.NewConversationHandler(conversationService, validate, logger)
	messageHandler := handler.NewMessageHandler(messageService, streamService, validate, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive)

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notificationService.Start(serviceCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ConversationHandler: conversationHandler,
		MessageHandler:      messageHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopServices)
}

func waitForShutdown(app *fiber.App, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
