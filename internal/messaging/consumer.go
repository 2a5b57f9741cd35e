// Package messaging consumes design updates produced by the AI pipeline.
// The pipeline normally posts updates over HTTP; the queue path exists for
// deployments where the pipeline and this server do not share a network edge.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"poster-server/internal/live"
	"poster-server/internal/models"
	"poster-server/internal/service"
)

const consumerTag = "poster-server-consumer"

// updateMessage is the queue payload: one finished design for a project.
type updateMessage struct {
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Image     json.RawMessage `json:"image"`
}

// Consumer reads update messages off RabbitMQ, records them in the image
// history and pushes them to the live registry.
type Consumer struct {
	conn        *amqp.Connection
	registry    *live.Registry
	images      *service.ImageService
	queueName   string
	stopChannel chan struct{}
	logger      *zap.Logger
}

// NewConsumer creates a new Consumer.
func NewConsumer(
	conn *amqp.Connection,
	registry *live.Registry,
	images *service.ImageService,
	queueName string,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		conn:        conn,
		registry:    registry,
		images:      images,
		queueName:   queueName,
		stopChannel: make(chan struct{}),
		logger:      logger.Named("UpdateConsumer"),
	}
}

// StartConsuming listens on the queue until Stop is called or the channel
// closes. Blocking; run it in its own goroutine.
func (c *Consumer) StartConsuming() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	defer ch.Close()

	// Declare the queue in case the pipeline has not created it yet; the
	// parameters must match the publisher side (durable in particular).
	q, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", c.queueName, err)
	}

	// One message at a time; updates for the same project must be recorded in
	// arrival order.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		consumerTag,
		false, // auto-ack off, acked after the history insert succeeds
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started", zap.String("queue", q.Name))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("RabbitMQ message channel closed")
				return nil
			}
			c.handleDelivery(d)
		case <-c.stopChannel:
			c.logger.Info("Consumer stop signal received")
			return nil
		}
	}
}

func (c *Consumer) handleDelivery(d amqp.Delivery) {
	var msg updateMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("Failed to decode update message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if msg.ProjectID == "" {
		c.logger.Error("Update message without projectId")
		_ = d.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := &models.GeneratedImage{
		ProjectID: msg.ProjectID,
		Status:    msg.Status,
		Image:     msg.Image,
	}
	if msg.Title != "" {
		record.Title = &msg.Title
	}
	if err := c.images.Record(ctx, record); err != nil {
		c.logger.Error("Failed to record update from queue",
			zap.String("project_id", msg.ProjectID),
			zap.Error(err),
		)
		// Requeue once the insert fails; the message itself is fine.
		_ = d.Nack(false, true)
		return
	}

	delivered := c.registry.Publish(msg.ProjectID, live.Event{
		Title:  msg.Title,
		Status: msg.Status,
		Image:  msg.Image,
	})
	c.logger.Debug("Update consumed",
		zap.String("project_id", msg.ProjectID),
		zap.Bool("delivered", delivered),
	)
	_ = d.Ack(false)
}

// Stop signals the consume loop to exit.
func (c *Consumer) Stop() {
	close(c.stopChannel)
}
