package event

import (
	"context"
	"time"

	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/writer"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	RETRY_COUNT   = 3
	WRITE_TIMEOUT = 2 * time.Second
)

// MessageWriter *kafka.Writer 满足
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaDepositEventWriter 账本事件写入 Kafka, 以 owner 为 key 保证同一 owner 有序
type KafkaDepositEventWriter struct {
	mq    MessageWriter
	tl    *zap.Logger
	topic string
}

func NewKafkaDepositEventWriter(mq MessageWriter, tl *zap.Logger, topic string) writer.BatchWriter[model.DepositEvent] {
	return &KafkaDepositEventWriter{mq: mq, tl: tl, topic: topic}
}

// NewKafkaWriter kafka-go 生产者, topic 放在消息上
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func (w *KafkaDepositEventWriter) BWrite(ctx context.Context, events []model.DepositEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := w.marshalToMsg(e)
		if err != nil {
			w.tl.Warn("marshal deposit event failed", zap.String("id", e.Event.ID), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	var err error
	for attempt := 0; attempt < RETRY_COUNT; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, WRITE_TIMEOUT)
		err = w.mq.WriteMessages(writeCtx, msgs...)
		cancel()
		if err == nil {
			return nil
		}
	}
	w.tl.Warn("MQ write failed, exceeded the maximum number of retries", zap.Int("count", len(msgs)), zap.Error(err))
	return err
}

// Close 生产者由 repository 持有并关闭
func (w *KafkaDepositEventWriter) Close() error {
	return nil
}

func (w *KafkaDepositEventWriter) marshalToMsg(e model.DepositEvent) (kafka.Message, error) {
	data, err := sonic.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: w.topic,
		Key:   []byte(e.Event.Owner),
		Value: data,
	}, nil
}
