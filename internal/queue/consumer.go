package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks a message that can never succeed. It is sent to the
// dead-letter queue without retries.
var ErrPermanent = errors.New("permanent failure")

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Consume delivers the messages of queueName one at a time to handle until
// ctx is done. Successful messages are acked; failed ones are republished
// to the retry queue, or to the dead-letter queue after too many retries.
func Consume(ctx context.Context, conn *amqp091.Connection, queueName string, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(queueName, queueName+"_consumer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
	}

	logger.Info("[Queue] Listening for messages", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel of %s closed", queueName)
			}
			handleDelivery(ctx, ch, queueName, msg, handle)
		}
	}
}

func handleDelivery(ctx context.Context, p Publisher, queueName string, msg amqp091.Delivery, handle Handler) {
	start := time.Now()
	logger.Info("[Queue] Received message", "queue", queueName)

	if err := handle(ctx, msg.Body); err != nil {
		logger.Error("[Queue] Error processing message", "queue", queueName, "err", err)
		handleProcessingError(p, msg, queueName, errors.Is(err, ErrPermanent))
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "queue", queueName, "err", err)
	}
	logger.Info("[Queue] Message processed", "queue", queueName, "duration", time.Since(start))
}

// handleProcessingError republishes msg to the retry queue with an
// incremented x-retries header, or to the dead-letter queue once the
// retries are used up or the failure is permanent. If publishing fails the
// message is requeued.
func handleProcessingError(p Publisher, msg amqp091.Delivery, queueName string, permanent bool) {
	retries := retryCount(msg.Headers)

	target := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if permanent || retries >= maxRetries {
		target = queueName + "_dlq"
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries)
	} else {
		headers["x-retries"] = int32(retries + 1)
	}

	err := p.Publish("", target, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}
