package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AlertHandler 处理一条低库存告警。返回错误时消息被重新入队一次，
// 再次失败则丢弃，避免毒消息无限循环。
type AlertHandler func(ctx context.Context, event *LowStockAlertEvent) error

// AlertConsumer 低库存告警消费者。
type AlertConsumer struct {
	conn    *Connection
	cfg     *Config
	handler AlertHandler
	logger  *zap.Logger
}

// NewAlertConsumer 创建低库存告警消费者。
func NewAlertConsumer(conn *Connection, cfg *Config, handler AlertHandler, logger *zap.Logger) *AlertConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertConsumer{
		conn:    conn,
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Run 声明队列并消费，直到上下文取消。
// 通道级故障后按重连间隔重新进入消费循环。
func (c *AlertConsumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("alert consume loop exited, restarting", zap.Error(err))

		select {
		case <-time.After(c.cfg.ReconnectInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *AlertConsumer) consume(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareExchange(ch, c.cfg.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.cfg.LowStockQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.LowStockQueue, err)
	}
	if err := ch.QueueBind(c.cfg.LowStockQueue, RoutingKeyLowStock, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.cfg.LowStockQueue, err)
	}
	if err := ch.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(c.cfg.LowStockQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("low stock alert consumer started", zap.String("queue", c.cfg.LowStockQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, &d)
		}
	}
}

func (c *AlertConsumer) handleDelivery(ctx context.Context, d *amqp.Delivery) {
	var event LowStockAlertEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Error("malformed low stock alert, dropping", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler(ctx, &event); err != nil {
		c.logger.Error("alert handler failed",
			zap.Int64("owner_id", event.OwnerID),
			zap.Int64("product_id", event.ProductID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		// 首次失败重新入队，重投后仍失败就丢弃
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	_ = d.Ack(false)
}
