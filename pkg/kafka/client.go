// Package kafka 提供了登录态变更事件的消息发布功能。
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"smart-chat-go/internal/config"
	"smart-chat-go/internal/model"
	"smart-chat-go/pkg/log"
)

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// PublishAuthEvent 将一次登录态变更事件发送到 Kafka。
// 事件中不包含会话令牌，调用方应传入已脱敏的事件。
func PublishAuthEvent(ctx context.Context, event model.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return producer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.Event),
			Value: payload,
		},
	)
}

// Close 关闭生产者连接。
func Close() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}
