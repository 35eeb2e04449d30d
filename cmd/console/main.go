package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/xela07ax/libra-console/internal/approval"
	"github.com/xela07ax/libra-console/internal/backend"
	"github.com/xela07ax/libra-console/internal/console/handler"
	"github.com/xela07ax/libra-console/internal/console/server"
	"github.com/xela07ax/libra-console/internal/infra"
	"github.com/xela07ax/libra-console/internal/infra/auth"
	"github.com/xela07ax/libra-console/internal/journal"
	"github.com/xela07ax/libra-console/internal/metrics"
	"github.com/xela07ax/libra-console/internal/notify"
	"github.com/xela07ax/libra-console/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для фоновых горутин: cancel() по SIGTERM остановит слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 2. gRPC health (состояние бэкенда библиотеки)
	var grpcSrv *grpc.Server
	backendHealth := server.NewBackendHealth()
	if cfg.GRPC.HealthPort > 0 {
		grpcSrv = grpc.NewServer()
		backendHealth.Register(grpcSrv)
		go func() {
			lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.HealthPort))
			if err != nil {
				logger.Fatal("failed to listen gRPC health", zap.Error(err))
			}
			logger.Info("gRPC health started", zap.Int("port", cfg.GRPC.HealthPort))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC health stopped", zap.Error(err))
			}
		}()
	}

	// 3. Клиент бэкенда (лимитер + Circuit Breaker)
	client := backend.NewClient(cfg.Backend, nil, logger)
	guarded := backend.NewGuarded(client, cfg.Backend, m, logger, backendHealth.SetBackendOpen)

	// 4. Уведомления оператору
	feed := notify.NewFeed(cfg.Workflow.NotificationHistory)
	notifiers := notify.Fanout{notify.NewLogNotifier(logger), feed}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		notifiers = append(notifiers, notify.NewRedisNotifier(rdb, infra.RedisChanNotifications, logger))
	}

	// 5. Журнал решений (опционально)
	var recorder approval.Recorder
	var decisionH *handler.DecisionHandler
	if cfg.Database.URL != "" {
		repo, err := postgres.NewDecisionRepo(cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			logger.Fatal("database init failed", zap.Error(err))
		}
		defer repo.Close()

		ctx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
		if err := repo.Ping(ctx); err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		pingCancel()

		jr := journal.New(repo, cfg.Workflow.JournalBufferSize, cfg.Workflow.JournalFlushInterval, m, logger)
		jr.Start()
		defer jr.Stop()

		recorder = jr
		decisionH = handler.NewDecisionHandler(repo)
	}

	// 6. Проверка токенов операторов
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("auth key", zap.Error(err))
		}
		validator = auth.NewValidator(pubKey)
	} else {
		logger.Warn("auth.public_key_path is not set: console API is unauthenticated")
	}

	// 7. Сессия согласования
	session := approval.NewSession(guarded, notifiers, recorder, m, logger, approval.Options{
		SearchDebounce:       cfg.Workflow.SearchDebounce,
		ReconcileAfterCommit: cfg.Workflow.ReconcileAfterCommit,
	})
	defer session.Close()

	loadCtx, loadCancel := context.WithTimeout(appCtx, cfg.Backend.Timeout+time.Second)
	if err := session.Load(loadCtx); err != nil {
		// Не фатально: оператор повторит загрузку вручную
		logger.Warn("initial queue load failed", zap.Error(err))
	}
	loadCancel()

	if rdb != nil {
		go approval.ListenQueueSignals(appCtx, rdb, logger, infra.RedisChanQueueChanged, session)
	}

	// 8. HTTP Server
	console := server.NewConsoleServer(logger, validator, reg, handler.NewBorrowHandler(session, feed, logger), decisionH)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      console,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("Console API stopping...")
	cancel()
	backendHealth.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	logger.Info("Console API exited properly")
}
