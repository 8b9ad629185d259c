package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
)

func TestFSReportSourceListAndFetch(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("2024-03-19.csv", "b")
	write("2024-03-18.xlsx", "a")
	write("notes.txt", "x")
	write("latest.csv", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2024-03-20.csv"), 0o755))

	src := NewFSReportSource(dir, applogger.NewNop())
	blobs, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, "2024-03-18.xlsx", blobs[0].Name)
	assert.Equal(t, models.ReportXLSX, blobs[0].Format)
	assert.Equal(t, "2024-03-19.csv", blobs[1].Name)

	payload, err := src.Fetch(context.Background(), blobs[1])
	require.NoError(t, err)
	assert.Equal(t, "b", string(payload))
}

func TestFSReportSourceMissingDir(t *testing.T) {
	src := NewFSReportSource(filepath.Join(t.TempDir(), "absent"), applogger.NewNop())
	blobs, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blobs)
}
