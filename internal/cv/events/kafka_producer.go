package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyCreated     EventType = "company_created"
	CompanyDeleted     EventType = "company_deleted"
	SubmissionRecorded EventType = "submission_recorded"
)

// Event is published keyed by CompanyID so all events of one company land
// on the same partition.
type Event struct {
	Type       EventType          `json:"type"`
	CompanyID  uuid.UUID          `json:"companyId"`
	Company    *models.Company    `json:"company,omitempty"`
	Submission *models.Submission `json:"submission,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

// NewProducer makes sure the topic exists and starts the publishing loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, 1000), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce enqueues the event without blocking; a full buffer drops it.
func (p *Producer) Produce(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.CompanyID.String()),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("company_id", event.CompanyID.String()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CompanyID.String()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.CompanyID.String()),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards events; used when Kafka is disabled.
type NopProducer struct{}

func (NopProducer) Produce(Event) {}
