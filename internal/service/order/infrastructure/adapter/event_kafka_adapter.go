package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"marketplace/internal/pkg/mq"
	"marketplace/internal/service/order/domain"
)

// HeaderEventType 让消费者不解析消息体就能按事件类型路由
const HeaderEventType = "x-event-type"

// EventKafkaAdapter 实现了 port.EventPublisher 接口，事件以订单 ID 为 key 写入同一分区。
type EventKafkaAdapter struct {
	writer mq.MessageWriter
}

func NewEventKafkaAdapter(writer mq.MessageWriter) *EventKafkaAdapter {
	return &EventKafkaAdapter{writer: writer}
}

func (a *EventKafkaAdapter) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	err = mq.ProduceMessage(ctx, a.writer, []byte(event.OrderID), payload,
		kafka.Header{Key: HeaderEventType, Value: []byte(event.Type)})
	if err != nil {
		return errors.Wrapf(err, "produce %s", event.Type)
	}
	return nil
}

func (a *EventKafkaAdapter) Close() error {
	return a.writer.Close()
}
