package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	commonauth "toolhub/server/common/auth"
	"toolhub/server/common/infra/cache"
	"toolhub/server/common/infra/db"
	"toolhub/server/common/infra/mq"
	"toolhub/server/common/log"
	"toolhub/server/common/middleware"
	toolapi "toolhub/server/toolhub/api"
	"toolhub/server/toolhub/repository"
	"toolhub/server/toolhub/service"

	"toolhub/server/common/infra/object"
)

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool

	scheduler *cron.Cron
	amqpConn  interface{ Close() error }
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	minioClient, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		return nil, fmt.Errorf("initialize minio: %w", err)
	}
	if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
		return nil, fmt.Errorf("ensure minio bucket: %w", err)
	}
	store := object.NewStore(minioClient, cfg.MinioBucket, cfg.PublicBaseURL)

	dbPool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}
	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var publisher *mq.UsagePublisher
	var amqpConn interface{ Close() error }
	if cfg.UsageEventsEnabled {
		conn, err := mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("initialize amqp: %w", err)
		}
		publisher, err = mq.NewUsagePublisher(conn)
		if err != nil {
			conn.Close()
			dbPool.Close()
			return nil, fmt.Errorf("initialize usage publisher: %w", err)
		}
		amqpConn = conn
	}

	authSvc := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	usageRepo := repository.NewUsageRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)

	convertSvc := service.NewConvertService(store)
	userSvc := service.NewUserService(userRepo, authSvc)
	sweeper := service.NewSweeper(store, time.Duration(cfg.RetentionDays)*24*time.Hour)

	var usageSvc *service.UsageService
	if publisher != nil {
		usageSvc = service.NewUsageService(usageRepo, publisher)
	} else {
		usageSvc = service.NewUsageService(usageRepo, nil)
	}

	limiter := middleware.RateLimit(cache.NewLimiter(cache.NewClient(cfg.RedisAddr)))

	h := toolapi.NewHandler(convertSvc, userSvc, sweeper, authSvc, usageSvc, limiter)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.RegisterRoutes(r)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer sweepCancel()
		if _, err := sweeper.Sweep(sweepCtx); err != nil {
			log.Errorf("scheduled retention sweep: %v", err)
		}
	}); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("schedule retention sweep: %w", err)
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer: httpServer,
		DB:         dbPool,
		scheduler:  scheduler,
		amqpConn:   amqpConn,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.amqpConn != nil {
		_ = s.amqpConn.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
