// Package main 低库存告警消费进程。
// 订阅台账事件交换机上的低库存告警并输出结构化日志，
// 后续接通知渠道时只需要替换处理函数。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/config"
	"github.com/MorseWayne/shop_ledger/internal/logger"
	"github.com/MorseWayne/shop_ledger/internal/mq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "alert-worker", cfg.App.Version)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if !cfg.MQ.Enabled {
		lg.Fatal("mq is disabled, set MQ_ENABLED=true to run the alert worker")
	}

	mqCfg := mq.DefaultConfig(cfg.MQ.URL, cfg.MQ.Exchange)
	conn, err := mq.Dial(mqCfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to connect to rabbitmq", "err", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			lg.Sugar().Errorw("failed to close mq connection", "err", err)
		}
	}()

	consumer := mq.NewAlertConsumer(conn, mqCfg, func(ctx context.Context, event *mq.LowStockAlertEvent) error {
		lg.Warn("low stock alert",
			zap.Int64("owner_id", event.OwnerID),
			zap.Int64("product_id", event.ProductID),
			zap.String("sku", event.ProductSKU),
			zap.String("name", event.ProductName),
			zap.Int("current_stock", event.CurrentStock),
			zap.Int("min_stock_level", event.MinStockLevel),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lg.Sugar().Infow("alert worker starting", "queue", mqCfg.LowStockQueue)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		lg.Sugar().Fatalw("alert worker exited", "err", err)
	}
	lg.Sugar().Infow("alert worker stopped")
}
