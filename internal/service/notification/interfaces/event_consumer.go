package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/mq"
	"marketplace/internal/service/notification/application"
	"marketplace/internal/service/order/domain"
)

// EventConsumerAdapter 是一个驱动适配器，它监听 order-events 并驱动通知服务。
type EventConsumerAdapter struct {
	reader         mq.MessageReader
	topic          string
	svc            *application.NotificationService
	failureHandler *mq.FailureHandler
	retryDelay     time.Duration
}

func NewEventConsumerAdapter(reader mq.MessageReader, topic string, svc *application.NotificationService, failureHandler *mq.FailureHandler) *EventConsumerAdapter {
	return &EventConsumerAdapter{reader: reader, topic: topic, svc: svc, failureHandler: failureHandler, retryDelay: time.Second}
}

// Run 阻塞消费直到 ctx 被取消。
func (a *EventConsumerAdapter) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ Order event consumer started.")
	for {
		// 我们使用FetchMessage而不是ReadMessage，以便更好地控制提交
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("🛑 Order event consumer shutting down.")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not read message, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
		if err := a.processMessage(msgCtx, msg); err != nil {
			// 处理失败的消息必须先进入死信主题才能提交 offset：
			// FetchMessage 已经越过这条消息，后续提交会连带覆盖它
			if !a.deadLetter(msgCtx, msg, err) {
				logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("🛑 Order event consumer shutting down.")
				return nil
			}
		}

		// 无论成功或失败（已移交），都提交Offset
		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit message")
		}
	}
}

// deadLetter 重试转发直到成功；ctx 取消时返回 false，消息保持未提交。
func (a *EventConsumerAdapter) deadLetter(ctx context.Context, msg kafka.Message, cause error) bool {
	for {
		if err := a.failureHandler.Handle(ctx, msg, cause); err == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(a.retryDelay):
		}
	}
}

func (a *EventConsumerAdapter) processMessage(ctx context.Context, msg kafka.Message) error {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return errors.Wrap(err, "decode order event")
	}
	return a.svc.Notify(ctx, event)
}

func (a *EventConsumerAdapter) Close() error {
	return a.reader.Close()
}
