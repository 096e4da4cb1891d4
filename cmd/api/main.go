package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/api"
	"github.com/sanosuguru/go-reservation-service/internal/api/handler"
	custommiddleware "github.com/sanosuguru/go-reservation-service/internal/api/middleware"
	"github.com/sanosuguru/go-reservation-service/internal/application"
	"github.com/sanosuguru/go-reservation-service/internal/config"
	"github.com/sanosuguru/go-reservation-service/internal/infrastructure/eventsapi"
	"github.com/sanosuguru/go-reservation-service/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-reservation-service/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-reservation-service/internal/infrastructure/redis"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/metrics"
)

func main() {
	// .env があれば読み込む（本番では環境変数を直接使う）
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal("データベース接続エラー", zap.Error(err))
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		log.Fatal("マイグレーションエラー", zap.Error(err))
	}

	// Redis（キャッシュ用、接続できなくても起動は継続する）
	var eventCache application.EventCache
	if redisClient, err := redisinfra.NewClient(&cfg.Redis); err != nil {
		log.Warn("Redis接続エラー、キャッシュなしで起動します", zap.Error(err))
	} else {
		defer redisClient.Close()
		eventCache = redisinfra.NewEventCache(redisClient)
	}

	// イベント情報サービスクライアント
	eventClient := eventsapi.NewClient(cfg, m)

	// RabbitMQ（バックグラウンドで接続、失敗時は自動再接続）
	connector := rabbitmq.NewConnector(&cfg.Broker, m)
	connector.Start()
	defer connector.Close()

	// リポジトリとサービス
	reservationRepo := postgres.NewReservationRepository(db)
	reservationService := application.NewReservationService(
		reservationRepo, eventClient, connector, eventCache, m)
	eventService := application.NewEventService(eventClient, eventCache)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommiddleware.SetupMiddleware(e)
	e.Use(custommiddleware.PrometheusMiddleware(m))

	// ハンドラー
	reservationHandler := handler.NewReservationHandler(reservationService)
	eventHandler := handler.NewEventHandler(eventService)
	healthHandler := handler.NewHealthHandler(connector.Connected)

	// ルーティング
	e.GET("/api/v1/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommiddleware.MetricsBasicAuth())

	apiGroup := e.Group("/api")
	apiGroup.POST("/reservations", reservationHandler.Create)
	apiGroup.GET("/reservations", reservationHandler.GetAll)
	apiGroup.GET("/reservations/user/:userId", reservationHandler.GetByUserID)
	apiGroup.GET("/reservations/:id", reservationHandler.GetByID)
	apiGroup.PUT("/reservations/:id/cancel", reservationHandler.Cancel)
	apiGroup.GET("/events", eventHandler.GetAll)
	apiGroup.GET("/events/:id", eventHandler.GetByID)

	// サーバー起動
	go func() {
		addr := ":" + cfg.Server.Port
		log.Info("サーバーを起動します", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("サーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error("サーバーシャットダウンエラー", zap.Error(err))
	}

	log.Info("サーバーが正常にシャットダウンしました")
}
