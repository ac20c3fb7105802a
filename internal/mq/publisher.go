package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// Publisher 台账事件生产者，实现服务层的 EventPublisher 接口。
// 通道以confirm模式复用，broker未确认的发布视为失败并重试。
type Publisher struct {
	conn   *Connection
	cfg    *Config
	logger *zap.Logger

	mu       sync.Mutex
	ch       *amqp.Channel
	confirms chan amqp.Confirmation
	closed   bool
}

// NewPublisher 创建生产者并声明topic交换机。
func NewPublisher(conn *Connection, cfg *Config, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Publisher{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
	}

	ch, _, err := p.channel()
	if err != nil {
		return nil, err
	}
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		return nil, err
	}

	return p, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// PublishMovement 发布库存变动事件。
func (p *Publisher) PublishMovement(ctx context.Context, ownerID int64, movement *domain.StockMovement) error {
	routingKey := RoutingKeyMovementPrefix + string(movement.MovementType)
	return p.publish(ctx, routingKey, NewMovementEvent(ownerID, movement))
}

// PublishLowStockAlert 发布低库存告警事件。
func (p *Publisher) PublishLowStockAlert(ctx context.Context, ownerID int64, alert *domain.LowStockAlert) error {
	return p.publish(ctx, RoutingKeyLowStock, NewLowStockAlertEvent(ownerID, alert))
}

// publish 序列化并发布事件，失败时按配置重试。
func (p *Publisher) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	attempts := p.cfg.MaxPublishRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = p.publishOnce(ctx, routingKey, body)
		if lastErr == nil {
			return nil
		}

		p.logger.Warn("publish failed",
			zap.String("routing_key", routingKey),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)

		// 通道可能已失效，丢弃后下次发布重开
		p.resetChannel()

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(p.cfg.ReconnectInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("publish %s after %d attempts: %w", routingKey, attempts, lastErr)
}

func (p *Publisher) publishOnce(ctx context.Context, routingKey string, body []byte) error {
	ch, confirms, err := p.channel()
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	err = ch.PublishWithContext(publishCtx, p.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case confirmation, ok := <-confirms:
		if !ok {
			return fmt.Errorf("confirm channel closed")
		}
		if !confirmation.Ack {
			return fmt.Errorf("message nacked by broker")
		}
		return nil
	case <-time.After(p.cfg.ConfirmTimeout):
		return fmt.Errorf("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// channel 返回confirm模式的复用通道，没有则新开。
func (p *Publisher) channel() (*amqp.Channel, chan amqp.Confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, fmt.Errorf("publisher is closed")
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, p.confirms, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return p.ch, p.confirms, nil
}

func (p *Publisher) resetChannel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
		p.confirms = nil
	}
}

// Close 关闭生产者
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch.Close()
	}
	return nil
}
