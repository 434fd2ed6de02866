package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stayvault/pkg/logger"

	"github.com/IBM/sarama"
)

// Notifier receives decoded escrow events. Actual delivery (email, push) is
// out of scope; LoggingNotifier is the provided implementation.
type Notifier interface {
	Notify(ctx context.Context, event *Event) error
}

// LoggingNotifier writes each event to the structured log
type LoggingNotifier struct {
	log *logger.Logger
}

func NewLoggingNotifier(log *logger.Logger) *LoggingNotifier {
	return &LoggingNotifier{log: log}
}

func (n *LoggingNotifier) Notify(ctx context.Context, event *Event) error {
	n.log.InfoWithContext(ctx, "Escrow event received", map[string]interface{}{
		"event_type": string(event.Type),
		"booking_id": event.BookingID.String(),
		"amount":     event.Amount,
		"decision":   event.Decision,
	})
	return nil
}

// ConsumerConfig contains configuration for the event consumer group
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Topics         []string
	SessionTimeout time.Duration
	Heartbeat      time.Duration
	OffsetOldest   bool
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "stayvault-notifications",
		Topics:         []string{"escrow-events"},
		SessionTimeout: 30 * time.Second,
		Heartbeat:      3 * time.Second,
		OffsetOldest:   false,
	}
}

// Consumer runs a Kafka consumer group and hands events to a Notifier
type Consumer struct {
	group    sarama.ConsumerGroup
	config   *ConsumerConfig
	notifier Notifier
	log      *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewConsumer(config *ConsumerConfig, notifier Notifier, log *logger.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = config.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = config.Heartbeat
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		group:    group,
		config:   config,
		notifier: notifier,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the consume loop in the background
func (c *Consumer) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel

	go c.handleErrors()
	go func() {
		defer close(c.done)
		handler := &groupHandler{notifier: c.notifier, log: c.log}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := c.group.Consume(ctx, c.config.Topics, handler); err != nil {
					c.log.ErrorWithContext(ctx, "Consumer error", err, nil)
					time.Sleep(time.Second)
				}
			}
		}
	}()
}

func (c *Consumer) handleErrors() {
	for err := range c.group.Errors() {
		c.log.ErrorWithContext(context.Background(), "Consumer group error", err, nil)
	}
}

func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

type groupHandler struct {
	notifier Notifier
	log      *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			var event Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.log.ErrorWithContext(session.Context(), "Failed to decode event", err, map[string]interface{}{
					"topic":  message.Topic,
					"offset": message.Offset,
				})
				session.MarkMessage(message, "")
				continue
			}

			if err := h.notifier.Notify(session.Context(), &event); err != nil {
				h.log.ErrorWithContext(session.Context(), "Notifier failed", err, map[string]interface{}{
					"event_type": string(event.Type),
					"booking_id": event.BookingID.String(),
				})
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
