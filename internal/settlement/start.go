package settlement

import (
	"context"
	"time"

	"comanda-system/internal/config"
	"comanda-system/internal/connections/database"
	"comanda-system/internal/connections/rabbitmq"
	"comanda-system/internal/connections/redisc"
	"comanda-system/internal/httpx"
	"comanda-system/internal/logger"
	"comanda-system/internal/settlement/handlers"
	"comanda-system/internal/settlement/repository"
	"comanda-system/internal/settlement/service"
)

// Run wires and serves the settlement service until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("postgres_connected", nil)

	rmq, err := rabbitmq.Dial(cfg.RabbitURL)
	if err != nil {
		return err
	}
	defer rmq.Close()
	if err := rmq.DeclareTopology(); err != nil {
		return err
	}
	log.Info("rabbitmq_connected", nil)

	rdb := redisc.New(cfg.RedisAddr, cfg.RedisPassword)
	if rdb == nil {
		log.Info("redis_unavailable_cache_disabled", nil)
	} else {
		defer rdb.Close()
	}

	repo := repository.NewSettlementRepository(db.Pool)
	svc := service.NewSettlementService(repo, rmq, log, cfg.TableCount)
	h := handlers.NewSettlementHandler(svc)
	cache := handlers.NewCache(rdb, time.Duration(cfg.HistoryTTL)*time.Second)
	mux := handlers.Router(h, cache)

	go func() {
		if err := svc.RunControlConsumer(ctx); err != nil && ctx.Err() == nil {
			log.Error("control_consumer_stopped", err, nil)
		}
	}()

	srv := httpx.New(":"+cfg.ServerPort, mux)
	log.Info("http_listening", map[string]any{"port": cfg.ServerPort})
	return srv.Run(ctx)
}
