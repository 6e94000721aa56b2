package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront_service/internal/domain"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	PublishOrderEvent(event OrderEvent)
	Close() error
}

type kafkaProducer struct {
	syncProducer sarama.SyncProducer
	log          *logrus.Logger
}

func NewKafkaProducer(brokers []string, logger *logrus.Logger) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("error creating producer: %w", err)
	}

	return &kafkaProducer{syncProducer: p, log: logger}, nil
}

// PublishOrderEvent is strictly fire-and-forget: failures are logged, never
// surfaced, so order creation and payment completion do not depend on the
// broker being reachable.
func (p *kafkaProducer) PublishOrderEvent(event OrderEvent) {
	jsonMsg, err := json.Marshal(event)
	if err != nil {
		p.log.Errorf("Failed to encode %s event for order %d: %v", event.Type, event.OrderID, err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: TopicOrderEvents,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", event.OrderID)),
		Value: sarama.StringEncoder(jsonMsg),
	}

	partition, offset, err := p.syncProducer.SendMessage(msg)
	if err != nil {
		p.log.Errorf("Failed to publish %s event for order %d: %v", event.Type, event.OrderID, err)
		return
	}
	p.log.Infof("Published %s event for order %d (partition: %d, offset: %d)", event.Type, event.OrderID, partition, offset)
}

func (p *kafkaProducer) Close() error {
	return p.syncProducer.Close()
}

// NewOrderCreatedEvent and NewOrderPaidEvent build payloads from the order
// aggregate so callers never hand-assemble event fields.
func NewOrderCreatedEvent(order *domain.Order) OrderEvent {
	return orderEvent(EventOrderCreated, order)
}

func NewOrderPaidEvent(order *domain.Order) OrderEvent {
	return orderEvent(EventOrderPaid, order)
}

func orderEvent(eventType string, order *domain.Order) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Email:      order.Email,
		FullName:   order.FullName,
		Total:      order.TotalAmount,
		OccurredAt: time.Now().UTC(),
	}
}
