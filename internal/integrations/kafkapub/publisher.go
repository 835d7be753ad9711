// Package kafkapub публикует события бронирований в Kafka.
package kafkapub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrPublish = errors.New("kafkapub: publish failed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher синхронный продюсер: Publish возвращается после подтверждения всех реплик.
// Ключ сообщения - код бронирования, события одного бронирования попадают в одну партицию
type Publisher struct {
	w messageWriter
}

// NewPublisher создает продюсера для топика
func NewPublisher(brokers []string, topic string, timeout time.Duration) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: timeout,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: key=%s: %v", ErrPublish, key, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
