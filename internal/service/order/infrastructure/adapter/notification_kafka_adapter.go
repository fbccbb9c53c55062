package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/mq"
	"storefront/internal/service/order/domain"
)

// OrderEventKafkaAdapter 实现了 port.EventPublisher 接口。
// 以订单 ID 作为消息 key，同一订单的事件落在同一分区，保持顺序。
type OrderEventKafkaAdapter struct {
	writer *kafka.Writer
}

// NewOrderEventKafkaAdapter 创建一个新的订单事件生产者适配器。
func NewOrderEventKafkaAdapter(writer *kafka.Writer) *OrderEventKafkaAdapter {
	return &OrderEventKafkaAdapter{writer: writer}
}

func (a *OrderEventKafkaAdapter) Publish(ctx context.Context, event *domain.OrderEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}

	// mq.ProduceMessage 会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderID), eventBytes)
}

// Close 关闭底层的Kafka writer。
func (a *OrderEventKafkaAdapter) Close() error {
	return a.writer.Close()
}
