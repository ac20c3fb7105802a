// Package mq 提供RabbitMQ消息队列配置和连接管理。
// 台账事件经由一个topic交换机对外广播，MQ禁用时整个包不会被实例化。
package mq

import (
	"fmt"
	"time"
)

// 路由键定义。变动事件的路由键带上变动类型，
// 订阅方可以只绑定自己关心的类型（例如 stock.movement.sale）。
const (
	RoutingKeyMovementPrefix = "stock.movement."
	RoutingKeyLowStock       = "stock.low_stock"
)

// Config RabbitMQ配置
type Config struct {
	URL      string
	Exchange string

	// LowStockQueue 低库存告警消费队列
	LowStockQueue string

	// 连接配置
	ConnectTimeout    time.Duration
	HeartbeatInterval time.Duration

	// 重连配置
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int // 0 表示不限次数

	// 生产者配置
	PublishTimeout    time.Duration
	ConfirmTimeout    time.Duration
	MaxPublishRetries int

	// 消费者配置
	PrefetchCount int
}

// DefaultConfig 返回默认配置
func DefaultConfig(url, exchange string) *Config {
	return &Config{
		URL:           url,
		Exchange:      exchange,
		LowStockQueue: exchange + ".low_stock_alerts",

		ConnectTimeout:    10 * time.Second,
		HeartbeatInterval: 10 * time.Second,

		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 0,

		PublishTimeout:    10 * time.Second,
		ConfirmTimeout:    5 * time.Second,
		MaxPublishRetries: 3,

		PrefetchCount: 10,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("mq url is required")
	}
	if c.Exchange == "" {
		return fmt.Errorf("mq exchange is required")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be greater than 0")
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect_interval must be greater than 0")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish_timeout must be greater than 0")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm_timeout must be greater than 0")
	}
	if c.PrefetchCount < 0 {
		return fmt.Errorf("prefetch_count must be >= 0")
	}
	return nil
}
