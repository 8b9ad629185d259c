package usecase

import (
	"context"
	"encoding/json"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
	"StockCast/pkg/logger"
	"StockCast/pkg/util"
)

// ReportUploadedHandler consumes report upload notifications and schedules a
// retrain so new sales are picked up before the dataset TTL runs out.
type ReportUploadedHandler struct {
	topic      string
	dispatcher *RetrainDispatcher
	log        *logger.Logger
	metrics    domrepo.Metrics
}

var _ pkgkafka.MessageHandler = (*ReportUploadedHandler)(nil)

func NewReportUploadedHandler(topic string, dispatcher *RetrainDispatcher, log *logger.Logger, metrics domrepo.Metrics) *ReportUploadedHandler {
	return &ReportUploadedHandler{topic: topic, dispatcher: dispatcher, log: log, metrics: metrics}
}

func (h *ReportUploadedHandler) Topic() string { return h.topic }

// incoming message schema: {name, date}
func (h *ReportUploadedHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.ReportUploadedEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		// Retrying cannot fix a malformed payload.
		h.metrics.RecordError("consumer_unmarshal")
		h.log.Warn("dropping malformed report event", logger.Error(err))
		return nil
	}

	reason := "report_uploaded"
	if blob, ok := models.ParseReportBlob(ev.Name); ok {
		reason += ":" + blob.Date.Format(models.DateLayout)
	} else if day, ok := util.ParseDay(ev.Date); ok {
		reason += ":" + day.Format(util.DayLayout)
	} else {
		h.log.Warn("report event without a usable date", logger.String("name", ev.Name), logger.String("date", ev.Date))
	}
	return h.dispatcher.Dispatch(ctx, reason)
}
