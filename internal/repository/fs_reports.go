package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

// FSReportSource reads dated report files from a local directory.
type FSReportSource struct {
	dir string
	l   *applogger.Logger
}

var _ domrepo.ReportSource = (*FSReportSource)(nil)

func NewFSReportSource(dir string, l *applogger.Logger) *FSReportSource {
	return &FSReportSource{dir: dir, l: l}
}

func (s *FSReportSource) Name() string { return "fs:" + s.dir }

// List returns the report files whose names parse as YYYY-MM-DD.csv|xlsx,
// oldest first. A missing directory lists as empty.
func (s *FSReportSource) List(ctx context.Context) ([]models.ReportBlob, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.l.Warn("report directory missing", applogger.String("dir", s.dir))
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}

	out := make([]models.ReportBlob, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		blob, ok := models.ParseReportBlob(e.Name())
		if !ok {
			s.l.Warn("skipping report with unparseable name", applogger.String("name", e.Name()))
			continue
		}
		out = append(out, blob)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *FSReportSource) Fetch(ctx context.Context, blob models.ReportBlob) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(blob.Name)))
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", blob.Name, err)
	}
	return b, nil
}
