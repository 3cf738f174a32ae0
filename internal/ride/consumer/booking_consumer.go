package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"rideshare/internal/ride/app"
	"rideshare/internal/shared/events"
	"rideshare/internal/shared/util"
)

// BookingConsumer feeds booking lifecycle events into the registry's
// open-booking projection. The registry never calls the ledger; this queue
// is its only view of the ledger's state.
type BookingConsumer struct {
	service *app.RideService
	channel *amqp.Channel
	logger  *util.Logger
}

func NewBookingConsumer(service *app.RideService, ch *amqp.Channel, logger *util.Logger) *BookingConsumer {
	return &BookingConsumer{service: service, channel: ch, logger: logger}
}

func (c *BookingConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		events.BookingQueue,
		"",    // consumer tag
		false, // auto-ack: ack only after the projection is updated
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", events.BookingQueue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.handle(ctx, msg)
			}
		}
	}()

	c.logger.Info("BookingConsumer", "booking event consumer started")
	return nil
}

func (c *BookingConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	instance := "BookingConsumer.handle"

	var ev events.BookingEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		c.logger.Warn(instance, fmt.Sprintf("invalid booking event: %v", err))
		_ = msg.Nack(false, false) // malformed, do not requeue
		return
	}

	if err := c.service.HandleBookingEvent(ctx, ev); err != nil {
		c.logger.Warn(instance, fmt.Sprintf("booking ref update failed for %s: %v", ev.BookingID, err))
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
