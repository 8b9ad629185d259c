package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

const DefaultReportPrefix = "reports/"

// GCSReportSource lists and downloads report objects under a bucket prefix.
type GCSReportSource struct {
	client *storage.Client
	bucket string
	prefix string
	l      *applogger.Logger
}

var _ domrepo.ReportSource = (*GCSReportSource)(nil)

// NewGCSReportSource opens a storage client. credentialsFile may be empty to
// use application default credentials.
func NewGCSReportSource(ctx context.Context, bucket, prefix, credentialsFile string, l *applogger.Logger) (*GCSReportSource, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	if prefix == "" {
		prefix = DefaultReportPrefix
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &GCSReportSource{client: client, bucket: bucket, prefix: prefix, l: l}, nil
}

func (s *GCSReportSource) Name() string { return "gcs:" + s.bucket + "/" + s.prefix }

func (s *GCSReportSource) List(ctx context.Context) ([]models.ReportBlob, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var out []models.ReportBlob
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", s.prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		blob, ok := models.ParseReportBlob(attrs.Name)
		if !ok {
			s.l.Warn("skipping report with unparseable name", applogger.String("name", attrs.Name))
			continue
		}
		out = append(out, blob)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *GCSReportSource) Fetch(ctx context.Context, blob models.ReportBlob) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(blob.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: open %s: %w", blob.Name, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", blob.Name, err)
	}
	return b, nil
}

func (s *GCSReportSource) Close() error {
	return s.client.Close()
}
