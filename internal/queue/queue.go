// Package queue moves import jobs through RabbitMQ: the API publishes to
// import_queue, the worker consumes it, failed jobs go through a delayed
// retry queue and end in a dead-letter queue.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/util"

	"github.com/rabbitmq/amqp091-go"
)

// ImportQueue carries ImportMsg jobs.
const ImportQueue = "import_queue"

const (
	retryDelay = 10 * time.Second
	maxRetries = 10
)

// Publisher is the part of *amqp091.Channel used to publish messages.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// URLFromEnv builds the broker URL from RABBITMQ_USER, RABBITMQ_PASSWORD,
// RABBITMQ_HOST and RABBITMQ_PORT.
func URLFromEnv() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
}

// Init connects to the broker, retrying a few times while it starts up.
func Init(ctx context.Context, url string) (*amqp091.Connection, error) {
	conn, err := util.RetryWithContext(ctx, 5, 2*time.Second, func(ctx context.Context) (*amqp091.Connection, error) {
		return amqp091.Dial(url)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue with its "_retry" and "_dlq"
// companions. Messages in the retry queue return to the main queue after
// the retry delay.
func SetupQueues(ch *amqp091.Channel, queueNames ...string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
		if _, err := ch.QueueDeclare(name+"_dlq", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s_dlq: %w", name, err)
		}
		_, err := ch.QueueDeclare(name+"_retry", true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(retryDelay.Milliseconds()),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("failed to declare queue %s_retry: %w", name, err)
		}
	}
	return nil
}

// PublishFIFO publishes a persistent message to queueName on the default
// exchange.
func PublishFIFO(p Publisher, queueName string, data []byte) error {
	return p.Publish("", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
