package repository

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

// ForecastReadyType is the event name for completed prediction runs.
const ForecastReadyType = "FORECAST_READY"

// KafkaPublisher implements EventPublisher for Kafka.
type KafkaPublisher struct {
	producer      *pkgkafka.Producer
	alertTopic    string
	forecastTopic string
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, alertTopic, forecastTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, alertTopic: alertTopic, forecastTopic: forecastTopic}
}

func (p *KafkaPublisher) PublishLowStock(ctx context.Context, alert *models.LowStockAlert) error {
	if alert.Type == "" {
		alert.Type = models.LowStockAlertType
	}
	return p.producer.Publish(ctx, p.alertTopic, []byte(alert.ID), alert)
}

// PublishForecastReady keys the event by run id so consumers can dedupe.
func (p *KafkaPublisher) PublishForecastReady(ctx context.Context, ev *models.ForecastReadyEvent) error {
	if ev.Type == "" {
		ev.Type = ForecastReadyType
	}
	return p.producer.Publish(ctx, p.forecastTopic, []byte(ev.ID), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
