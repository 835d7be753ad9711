// Package rabbitpub публикует события бронирований в RabbitMQ.
package rabbitpub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrPublish = errors.New("rabbitpub: publish failed")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc открывает соединение и канал с объявленной очередью
type dialFunc func() (channel, func() error, error)

// Publisher публикует persistent-сообщения в durable-очередь через default exchange.
// Соединение открывается лениво и переоткрывается после ошибки публикации
type Publisher struct {
	queue string
	dial  dialFunc

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

// NewPublisher создает издателя. Соединение устанавливается при первой публикации
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{
		queue: queue,
		dial: func() (channel, func() error, error) {
			conn, err := amqp.Dial(url)
			if err != nil {
				return nil, nil, fmt.Errorf("dial: %w", err)
			}

			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("open channel: %w", err)
			}

			if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
			}

			return ch, conn.Close, nil
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		ch, closeConn, err := p.dial()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublish, err)
		}
		p.ch, p.closeConn = ch, closeConn
	}

	err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    key,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("%w: key=%s: %v", ErrPublish, key, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reset()
}

func (p *Publisher) reset() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.closeConn != nil {
		if cerr := p.closeConn(); err == nil {
			err = cerr
		}
	}
	p.ch, p.closeConn = nil, nil
	return err
}
