package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (r *recordingCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestShutdownClosesEveryResource(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.ShutdownTimeout = time.Second

	var order []string
	app := New(cfg, applogger.NewNop(), nil, nil, nil, nil, nil, nil,
		Closer{Name: "ingredients", Closer: &recordingCloser{name: "ingredients", order: &order, err: errors.New("busy")}},
		Closer{Name: "skipped"},
		Closer{Name: "redis", Closer: &recordingCloser{name: "redis", order: &order}},
	)

	require.NoError(t, app.Shutdown(context.Background()))
	assert.Equal(t, []string{"ingredients", "redis"}, order)
}
