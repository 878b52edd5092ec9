package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quocanhngo/airguard/internal/config"
	"github.com/quocanhngo/airguard/internal/handler"
	"github.com/quocanhngo/airguard/internal/middleware"
	"github.com/quocanhngo/airguard/internal/mqtt"
	"github.com/quocanhngo/airguard/internal/repository"
	"github.com/quocanhngo/airguard/internal/service"
	"github.com/quocanhngo/airguard/internal/ws"
	"github.com/quocanhngo/airguard/migrations"
	"github.com/quocanhngo/airguard/pkg/auth"
	"github.com/quocanhngo/airguard/pkg/mailer"
	"github.com/quocanhngo/airguard/pkg/notification"
	"github.com/quocanhngo/airguard/pkg/storage"
	"github.com/quocanhngo/airguard/pkg/stream"
	"github.com/quocanhngo/airguard/pkg/telegram"
	"github.com/quocanhngo/airguard/pkg/weather"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, MQTT ingestion, sweep loop and websocket hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	log.Printf("🚀 Starting AirGuard server [env=%s]", cfg.App.Env)

	// ==================== Database ====================
	db, err := repository.Open(cfg.DB, cfg.App.Env)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Printf("✅ Connected to %s", cfg.DB.Driver)

	// ==================== Run Migrations ====================
	if cfg.DB.Driver == "postgres" {
		if err := migrations.Run(cfg.DB.URL()); err != nil {
			log.Printf("⚠️  Migration warning: %v", err)
			log.Println("📦 Falling back to GORM AutoMigrate...")
			if err := repository.AutoMigrate(db); err != nil {
				log.Fatalf("❌ Failed to migrate database: %v", err)
			}
		}
	} else if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis")
	} else {
		log.Println("⚠️  Redis disabled: single-instance websocket fan-out, no weather cache, no logout")
	}

	// ==================== Collaborators ====================
	var channel service.MessageChannel
	if cfg.Telegram.BotToken != "" {
		tg, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Timeout)
		if err != nil {
			log.Fatalf("❌ Failed to start Telegram bot: %v", err)
		}
		channel = tg
		log.Printf("✅ Telegram channel ready (chat %d)", cfg.Telegram.ChatID)
	} else {
		channel = telegram.NewLogChannel(nil)
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set, status messages go to the log")
	}

	var weatherProvider weather.Provider = weather.NewOpenMeteo(cfg.Weather.BaseURL, cfg.Weather.Timeout)
	if rdb != nil {
		weatherProvider = weather.NewCached(weatherProvider, rdb, cfg.Weather.CacheTTL, nil)
	}

	thresholds, err := config.LoadThresholds(cfg.ThresholdsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load thresholds: %v", err)
	}

	var notifiers []service.AlertNotifier
	if pusher := notification.NewAlertPusher(cfg.Firebase.CredentialsFile, cfg.Firebase.Topic); pusher != nil {
		notifiers = append(notifiers, pusher)
	}
	if cfg.SMTP.Host != "" && len(cfg.SMTP.AlertTo) > 0 {
		notifiers = append(notifiers, mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, cfg.SMTP.AlertTo))
		log.Printf("📧 Alert emails to %v via %s:%s", cfg.SMTP.AlertTo, cfg.SMTP.Host, cfg.SMTP.Port)
	}

	var measurementStream service.MeasurementPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := stream.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		measurementStream = publisher
		log.Printf("✅ Kafka publisher ready (topic %s)", cfg.Kafka.Topic)
	}

	var archive storage.Storage
	minioStorage, err := storage.NewMinIO(ctx, storage.Config{
		Endpoint:   cfg.MinIO.Endpoint,
		PublicURL:  cfg.MinIO.PublicURL,
		AccessKey:  cfg.MinIO.AccessKey,
		SecretKey:  cfg.MinIO.SecretKey,
		Bucket:     cfg.MinIO.Bucket,
		UseSSL:     cfg.MinIO.UseSSL,
		LinkExpiry: cfg.MinIO.LinkExpiry,
	})
	if err != nil {
		log.Printf("⚠️  MinIO not available: %v (export disabled)", err)
	} else {
		archive = minioStorage
		log.Println("✅ Connected to MinIO")
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	deviceRepo := repository.NewDeviceRepository(db)
	measurementRepo := repository.NewMeasurementRepository(db)

	hub := ws.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	reconciler := service.NewReconciler(deviceRepo, channel, cfg.Telegram.Timeout, nil)
	statusService := service.NewStatusService(reconciler, service.StatusServiceConfig{
		Measurements:   measurementRepo,
		Thresholds:     thresholds,
		Weather:        weatherProvider,
		WeatherTimeout: cfg.Weather.Timeout,
		Defaults: service.OutdoorDefaults{
			Temperature: cfg.Weather.OutdoorTemp,
			Humidity:    cfg.Weather.OutdoorHumidity,
			CO2:         cfg.Weather.OutdoorCO2,
			Latitude:    cfg.Weather.DefaultLat,
			Longitude:   cfg.Weather.DefaultLon,
		},
		Alerts:    deviceRepo,
		Notifiers: notifiers,
		Publisher: hub,
	})
	ingestService := service.NewIngestService(deviceRepo, measurementRepo, statusService, service.IngestServiceConfig{
		Publisher: measurementStream,
	})
	deviceService := service.NewDeviceService(deviceRepo, measurementRepo, statusService, archive, 0)
	adminService := service.NewAdminService(cfg.Admin.Username, cfg.Admin.Password, jwtManager, rdb)

	sweeper := service.NewSweeper(deviceRepo, measurementRepo, statusService, cfg.Sweep.Interval, cfg.Sweep.Concurrency, nil)
	sweeper.Start(context.Background())

	var subscriber *mqtt.Subscriber
	if cfg.MQTT.BrokerURL != "" {
		subscriber = mqtt.NewSubscriber(cfg.MQTT, ingestService, nil)
		if err := subscriber.Start(); err != nil {
			log.Printf("⚠️  MQTT not available: %v (HTTP ingestion only)", err)
			subscriber = nil
		}
	}

	// Handlers
	dataHandler := handler.NewDataHandler(ingestService, measurementRepo)
	adminHandler := handler.NewAdminHandler(adminService, deviceService)
	wsHandler := handler.NewWSHandler(hub, jwtManager, cfg.CORS.Origins)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "airguard",
			"clients": hub.ConnectedClients(),
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, dataHandler, adminHandler, wsHandler, middleware.AdminAuthMiddleware(jwtManager, rdb))

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 AirGuard API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("📈 Metrics: http://0.0.0.0:%s/metrics", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>&device=<uid>", cfg.App.Port)
	log.Printf("🧹 Sweep every %s (concurrency %d)", cfg.Sweep.Interval, cfg.Sweep.Concurrency)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sweep.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}
	if subscriber != nil {
		subscriber.Stop()
	}
	if err := ingestService.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Background reconciliations abandoned: %v", err)
	}
	sweeper.Stop(cfg.Sweep.ShutdownGrace)

	hubCancel()
	log.Println("✅ Server exited gracefully")
	return nil
}
