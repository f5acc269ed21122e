package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/arjun7095/Chat-Application/config"
	"github.com/arjun7095/Chat-Application/database"
	"github.com/arjun7095/Chat-Application/handlers"
	"github.com/arjun7095/Chat-Application/logging"
	"github.com/arjun7095/Chat-Application/middleware"
	"github.com/arjun7095/Chat-Application/signaling"
	"github.com/arjun7095/Chat-Application/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors" // 引入 CORS 庫
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Setup("info", "console")
		log.Fatal().Err(err).Str("module", "main").Msg("invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		// 儲存層無法連線時無法提供服務
		log.Fatal().Err(err).Str("module", "main").Str("driver", cfg.StoreDriver).Msg("persistence unreachable")
	}

	hub := signaling.NewHub(store, signaling.Options{
		PersistTimeout: cfg.PersistTimeout,
		Routing:        signaling.Routing(cfg.SignalRouting),
		SendBuffer:     cfg.SendBuffer,
	})
	guard := middleware.NewIdentityGuard(cfg.JWTSecret)

	router := handlers.NewRouter(handlers.Router{
		Auth:      handlers.NewAuthHandler(store, cfg.JWTSecret, cfg.TokenTTL, cfg.PersistTimeout),
		Rooms:     handlers.NewRoomHandler(hub, cfg.HistoryLimit),
		Guard:     guard,
		WebSocket: websocket.NewHandler(hub, guard, cfg.AllowedOrigins),
		Store:     store,
	})

	// 設置 CORS 中介軟體，只允許設定中的前端網域
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	scheduler := cron.New()
	if err := database.ScheduleRetention(scheduler, store, cfg.RetentionSchedule, cfg.MessageRetention, cfg.PersistTimeout); err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("invalid retention schedule")
	}
	scheduler.Start()

	// WebSocket 連線為長連線，不設定 ReadTimeout / WriteTimeout
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(router),
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("module", "main").Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Str("module", "main").Msg("received shutdown signal")
	case err := <-serveErr:
		log.Fatal().Err(err).Str("module", "main").Str("addr", srv.Addr).Msg("could not listen")
	}

	// 最多等 30 秒關閉，避免請求中斷
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()
	hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("module", "main").Msg("server forced to shutdown")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Str("module", "main").Msg("failed to close store")
	}

	log.Info().Str("module", "main").Msg("server exited gracefully")
}

// openStore 依 STORE_DRIVER 建立儲存層，設定 REDIS_URL 時加上房間快取
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	var (
		store database.Store
		err   error
	)
	switch cfg.StoreDriver {
	case "mongo":
		store, err = database.ConnectMongoDB(ctx, cfg.MongoDBURI, cfg.DBName)
	case "postgres":
		store, err = database.ConnectPostgres(ctx, cfg.PostgresDSN)
	case "memory":
		log.Warn().Str("module", "main").Msg("using in-memory store, data is lost on restart")
		store = database.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		return store, nil
	}
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return database.NewCachedStore(store, rdb, cfg.RoomCacheTTL), nil
}
