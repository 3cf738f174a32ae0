package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"rideshare/internal/shared/events"
	"rideshare/internal/shared/models"
)

func dsn(cfg *models.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Password, cfg.Host, cfg.Port)
}

func ConnectToRMQ(cfg *models.RabbitMQConfig) (*amqp091.Connection, *amqp091.Channel, error) {
	url := dsn(cfg)

	var conn *amqp091.Connection
	var ch *amqp091.Channel
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			ch, err = conn.Channel()
			if err == nil {
				return conn, ch, nil
			}
		}
		log.Printf("RabbitMQ not ready, retrying... (%d/10)", i+1)
		time.Sleep(3 * time.Second)
	}

	return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
}

// OnReconnect receives the fresh connection and channel after an outage, so
// the service can re-point its publisher and restart its consumers. It runs
// on the monitor goroutine, after topology has been re-declared.
type OnReconnect func(conn *amqp091.Connection, ch *amqp091.Channel)

// MonitorConnection redials after the broker drops the connection and hands
// the rewired channel back through onReconnect. Without the handoff a
// redial would be useless: the old channel every publisher and consumer
// holds stays dead.
func MonitorConnection(conn *amqp091.Connection, cfg *models.RabbitMQConfig, onReconnect OnReconnect) {
	url := dsn(cfg)

	go func() {
		for {
			closeErr := <-conn.NotifyClose(make(chan *amqp091.Error, 1))
			if closeErr == nil {
				// closed cleanly
				return
			}
			log.Printf("RabbitMQ connection lost: %v. Attempting to reconnect...", closeErr)

			backoff := 5 * time.Second
			maxBackoff := 60 * time.Second

			for {
				time.Sleep(backoff)

				newConn, err := amqp091.Dial(url)
				if err != nil {
					log.Printf("Reconnection failed: %v. Retrying in %v...", err, backoff)
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
					continue
				}

				newCh, err := newConn.Channel()
				if err == nil {
					err = DeclareTopology(newCh)
				}
				if err != nil {
					log.Printf("Rewire after reconnect failed: %v. Retrying...", err)
					newConn.Close()
					continue
				}

				log.Println("Reconnected to RabbitMQ, channel rewired")
				onReconnect(newConn, newCh)
				conn = newConn
				break
			}
		}
	}()
}

// DeclareTopology declares the shared topic exchange and the booking-event
// queue the ride registry reads. Safe to call from every service.
func DeclareTopology(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(
		events.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		events.BookingQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(events.BookingQueue, "booking.*", events.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// wireChannel is the slice of amqp091.Channel the publisher needs; narrowed
// so a reconnect can swap the live channel and tests can stand in for the
// broker.
type wireChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type Publisher struct {
	mu sync.RWMutex
	ch wireChannel
}

func NewPublisher(ch wireChannel) *Publisher {
	return &Publisher{ch: ch}
}

// Swap re-points the publisher at a fresh channel after a reconnect.
func (p *Publisher) Swap(ch wireChannel) {
	p.mu.Lock()
	p.ch = ch
	p.mu.Unlock()
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()

	err = ch.PublishWithContext(ctx,
		events.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
