package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoArmGo/GiftList/internal/config"
	"github.com/GoArmGo/GiftList/internal/messaging/payloads"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client — клиент RabbitMQ для задач поиска картинок.
// Реализует ports.ImageInferencePublisher и ports.ImageInferenceConsumer.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger

	// amqp.Channel не рассчитан на конкурентную публикацию
	publishMu sync.Mutex
}

// NewClient подключается к RabbitMQ и объявляет очередь задач.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logger.Info("connected to RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.RabbitMQQueueName, // name
		true,                           // durable
		false,                          // delete when unused
		false,                          // exclusive
		false,                          // no-wait
		nil,                            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}
	logger.Info("queue declared", "queue", q.Name, "messages", q.Messages)

	return &Client{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

// Close закрывает канал и соединение.
func (c *Client) Close() {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ connection", "error", err)
		} else {
			c.logger.Info("RabbitMQ connection closed")
		}
	}
}

// PublishImageInference публикует задачу поиска картинки для подарка.
func (c *Client) PublishImageInference(ctx context.Context, payload payloads.ImageInferencePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload to JSON: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	c.logger.Info("image inference job published", "queue", c.queue.Name, "gift_id", payload.GiftID)
	return nil
}

// StartConsumingImageInference регистрирует потребителя и обрабатывает сообщения
// в отдельной горутине до отмены ctx или закрытия канала.
func (c *Client) StartConsumingImageInference(ctx context.Context, handler func(context.Context, payloads.ImageInferencePayload) error) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}
	c.logger.Info("consumer registered, waiting for messages", "queue", c.queue.Name)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("RabbitMQ channel closed, stopping consumer")
					return
				}
				c.settle(msg, handleDelivery(ctx, msg.Body, msg.Redelivered, handler, c.logger))
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping RabbitMQ consumer")
				return
			}
		}
	}()
	return nil
}

func (c *Client) settle(msg amqp.Delivery, action ackAction) {
	var err error
	switch action {
	case actionAck:
		err = msg.Ack(false)
	case actionRequeue:
		err = msg.Nack(false, true)
	default:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("failed to settle message", "action", action, "error", err)
	}
}

type ackAction string

const (
	actionAck     ackAction = "ack"
	actionRequeue ackAction = "requeue"
	actionDrop    ackAction = "drop"
)

// handleDelivery декодирует сообщение и вызывает handler.
// Битые сообщения отбрасываются; неудачная задача возвращается в очередь один раз.
func handleDelivery(
	ctx context.Context,
	body []byte,
	redelivered bool,
	handler func(context.Context, payloads.ImageInferencePayload) error,
	logger *slog.Logger,
) ackAction {
	var payload payloads.ImageInferencePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("error unmarshalling message", "error", err, "body", string(body))
		return actionDrop
	}

	if err := handler(ctx, payload); err != nil {
		logger.Warn("error processing message",
			"gift_id", payload.GiftID,
			"redelivered", redelivered,
			"error", err,
		)
		if redelivered {
			return actionDrop
		}
		return actionRequeue
	}

	logger.Info("message processed", "gift_id", payload.GiftID)
	return actionAck
}
