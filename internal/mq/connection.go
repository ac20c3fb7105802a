package mq

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConnectionState 连接状态
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection 带自动重连的RabbitMQ连接。
// 使用方通过 Channel() 按需开通道，通道用完即关，
// 连接断开后后台重连，期间 Channel() 返回错误而不是阻塞。
type Connection struct {
	cfg    *Config
	logger *zap.Logger

	mu    sync.RWMutex
	conn  *amqp.Connection
	state int32

	stopCh chan struct{}
}

// Dial 建立RabbitMQ连接并启动断线监控。
func Dial(cfg *Config, logger *zap.Logger) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mq config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Connection{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	c.conn = conn
	atomic.StoreInt32(&c.state, int32(StateConnected))
	logger.Info("rabbitmq connected", zap.String("exchange", cfg.Exchange))

	go c.monitor(conn)

	return c, nil
}

func (c *Connection) dial() (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat: c.cfg.HeartbeatInterval,
		Dial:      amqp.DefaultDial(c.cfg.ConnectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}

// Channel 开一个新通道。
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("rabbitmq connection is not available (state=%s)", c.State())
	}
	return conn.Channel()
}

// State 返回当前连接状态。
func (c *Connection) State() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&c.state))
}

// IsConnected 检查是否已连接
func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

// Close 关闭连接并停止重连。
func (c *Connection) Close() error {
	if ConnectionState(atomic.SwapInt32(&c.state, int32(StateClosed))) == StateClosed {
		return nil
	}
	close(c.stopCh)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

// monitor 监听连接关闭事件，意外断开后进入重连循环。
func (c *Connection) monitor(conn *amqp.Connection) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case err := <-closeCh:
		if err == nil {
			return // 主动关闭
		}
		c.logger.Error("rabbitmq connection lost", zap.Error(err))
		c.reconnect()
	case <-c.stopCh:
	}
}

func (c *Connection) reconnect() {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateConnected), int32(StateReconnecting)) {
		return
	}

	attempts := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-time.After(c.cfg.ReconnectInterval):
		}

		attempts++
		c.logger.Info("reconnecting to rabbitmq",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", c.cfg.MaxReconnectAttempts),
		)

		conn, err := c.dial()
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			atomic.StoreInt32(&c.state, int32(StateConnected))
			c.logger.Info("rabbitmq reconnected", zap.Int("attempts", attempts))
			go c.monitor(conn)
			return
		}

		c.logger.Error("rabbitmq reconnect failed", zap.Int("attempt", attempts), zap.Error(err))

		if c.cfg.MaxReconnectAttempts > 0 && attempts >= c.cfg.MaxReconnectAttempts {
			c.logger.Error("rabbitmq reconnect attempts exhausted",
				zap.Int("max_attempts", c.cfg.MaxReconnectAttempts))
			atomic.StoreInt32(&c.state, int32(StateDisconnected))
			return
		}
	}
}
