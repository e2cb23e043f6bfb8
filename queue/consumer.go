// Package queue consumes video job requests from Kafka so other
// services can enqueue article URLs for production.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/IBM/sarama"
)

// JobRequest is the wire format of one enqueued job.
type JobRequest struct {
	URL   string `json:"url"`
	Focus string `json:"focus,omitempty"`
}

// RunFunc executes one job. A returned error leaves the message
// unmarked so it can be retried.
type RunFunc func(ctx context.Context, req JobRequest) error

// Consumer reads job requests from a topic through a consumer group.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	groupID string
	run     RunFunc
	ready   chan bool
}

// Config holds the connection settings. Brokers is a comma separated list.
type Config struct {
	Brokers string
	Topic   string
	GroupID string
}

func NewConsumer(cfg Config, run RunFunc) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(strings.Split(cfg.Brokers, ","), cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		group:   group,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		run:     run,
		ready:   make(chan bool),
	}, nil
}

// Start begins consuming until the context ends.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{run: c.run, ready: c.ready}

	go func() {
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
				if err == context.Canceled {
					log.Println("Kafka consumer context canceled")
					return
				}
				log.Printf("Error from Kafka consumer: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	<-c.ready
	log.Printf("Kafka consumer started (group %s, topic %s)", c.groupID, c.topic)

	go func() {
		for err := range c.group.Errors() {
			log.Printf("Kafka consumer error: %v", err)
		}
	}()
	return nil
}

func (c *Consumer) Close() error {
	log.Println("Closing Kafka consumer")
	return c.group.Close()
}

type groupHandler struct {
	run   RunFunc
	ready chan bool
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			log.Printf("Received job message: partition=%d, offset=%d", message.Partition, message.Offset)

			var req JobRequest
			if err := json.Unmarshal(message.Value, &req); err != nil || req.URL == "" {
				// Malformed messages are marked; retrying cannot fix them.
				log.Printf("Warning: skipping malformed job message: %v", err)
				session.MarkMessage(message, "")
				continue
			}

			if err := h.run(session.Context(), req); err != nil {
				// Leave unmarked so the job is retried after a rebalance.
				log.Printf("Job for %s failed: %v", req.URL, err)
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
