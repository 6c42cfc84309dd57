// cmd/notification-service/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"

	"marketplace/internal/pkg/bootstrap"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/mq"
	"marketplace/internal/service/notification/application"
	"marketplace/internal/service/notification/interfaces"
)

const serviceName = "notification-service"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	logger.Init(cfg.App.LogLevel, serviceName)

	kafkaCfg := cfg.Infra.Kafka

	// 1. 消费 order-events，失败的消息转发到死信主题
	dltWriter := mq.NewKafkaWriter(kafkaCfg.Brokers, kafkaCfg.DeadLetter)
	failureHandler := mq.NewFailureHandler(dltWriter)

	svc := application.NewNotificationService(otel.Tracer(serviceName))
	eventReader := mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.OrderTopic, kafkaCfg.ConsumerGroup)
	consumer := interfaces.NewEventConsumerAdapter(eventReader, kafkaCfg.OrderTopic, svc, failureHandler)

	// 2. 死信主题只记录日志
	dltReader := mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.DeadLetter, kafkaCfg.ConsumerGroup+"-dlt")
	dltConsumer := interfaces.NewDltConsumerAdapter(dltReader, kafkaCfg.DeadLetter)

	return bootstrap.StartService(cfg, bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		Workers:     []func(ctx context.Context) error{consumer.Run, dltConsumer.Run},
		Closers: []func(ctx context.Context) error{
			func(context.Context) error { return dltWriter.Close() },
			func(context.Context) error { return consumer.Close() },
			func(context.Context) error { return dltConsumer.Close() },
		},
	})
}
