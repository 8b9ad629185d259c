package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

func TestRetrainDispatcherQueuesWhenConfigured(t *testing.T) {
	q := &fakeQueue{}
	trig := &fakeTrigger{}
	d := NewRetrainDispatcher(q, trig, logger.NewNop())

	require.NoError(t, d.Dispatch(context.Background(), "cron"))
	assert.Equal(t, []string{RetrainJobType}, q.types)
	assert.JSONEq(t, `{"reason":"cron"}`, string(q.payloads[0]))
	assert.Empty(t, trig.reasons)
}

func TestRetrainDispatcherRunsInlineWithoutQueue(t *testing.T) {
	trig := &fakeTrigger{}
	d := NewRetrainDispatcher(nil, trig, logger.NewNop())

	require.NoError(t, d.Dispatch(context.Background(), "cron"))
	assert.Equal(t, []string{"cron"}, trig.reasons)
}

func TestRetrainJobHandle(t *testing.T) {
	trig := &fakeTrigger{}
	job := NewRetrainJob(trig)
	assert.Equal(t, RetrainJobType, job.Type())

	require.NoError(t, job.Handle(context.Background(), json.RawMessage(`{"reason":"kafka"}`)))
	assert.Equal(t, []string{"kafka"}, trig.reasons)
	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`{`)))
}

func TestReportUploadedHandler(t *testing.T) {
	trig := &fakeTrigger{}
	h := NewReportUploadedHandler("reports.uploaded", NewRetrainDispatcher(nil, trig, logger.NewNop()), logger.NewNop(), metrics.Noop{})
	assert.Equal(t, "reports.uploaded", h.Topic())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, []byte(`{"name":"reports/2024-03-18.csv"}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"name":"weird","date":"2024-03-19"}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"name":"weird"}`)))
	require.NoError(t, h.Handle(ctx, []byte(`not json`)))

	assert.Equal(t, []string{
		"report_uploaded:2024-03-18",
		"report_uploaded:2024-03-19",
		"report_uploaded",
	}, trig.reasons)
}
