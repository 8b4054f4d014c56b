package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/config"
	"github.com/pithecene-io/joinery/lode"
)

// storageChoice is the resolved Lode target.
type storageChoice struct {
	dataset   string
	source    string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// enabled reports whether a storage target was requested at all.
func (s storageChoice) enabled() bool {
	return s.backend != "" || s.path != ""
}

func resolveStorage(c *cli.Context, cfg *config.Config) storageChoice {
	sc := configVal(cfg, func(c *config.Config) config.StorageConfig { return c.Storage })
	return storageChoice{
		dataset:   resolveString(c, "storage-dataset", sc.Dataset),
		source:    resolveString(c, "storage-source", sc.Source),
		backend:   resolveString(c, "storage-backend", sc.Backend),
		path:      resolveString(c, "storage-path", sc.Path),
		region:    resolveString(c, "storage-region", sc.Region),
		endpoint:  resolveString(c, "storage-endpoint", sc.Endpoint),
		pathStyle: resolveBool(c, "storage-s3-path-style", sc.S3PathStyle),
	}
}

// validate requires backend and path together.
func (s storageChoice) validate() error {
	if !s.enabled() {
		return nil
	}
	if s.backend == "" {
		return fmt.Errorf("--storage-backend is required when --storage-path is set")
	}
	if s.path == "" {
		return fmt.Errorf("--storage-path is required when --storage-backend is set")
	}
	switch s.backend {
	case "fs", "s3":
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %s (must be fs or s3)", s.backend)
	}
}

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.pathStyle,
	}
}

// buildLodeClient opens a write client for one join.
func buildLodeClient(ctx context.Context, s storageChoice, joinID string, now time.Time) (*lode.LodeClient, error) {
	cfg := lode.Config{
		Dataset: s.dataset,
		Source:  s.source,
		Day:     lode.DeriveDay(now),
		JoinID:  joinID,
	}
	switch s.backend {
	case "fs":
		return lode.NewLodeClient(cfg, s.path)
	case "s3":
		return lode.NewLodeS3Client(ctx, cfg, s.s3Config())
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", s.backend)
	}
}

// buildStoragePath renders the dataset root for notifications.
func buildStoragePath(s storageChoice) (string, error) {
	switch s.backend {
	case "fs":
		return filepath.Join(s.path, "datasets", s.dataset), nil
	case "s3":
		s3cfg := s.s3Config()
		return s3cfg.DatasetURI(s.dataset), nil
	default:
		return "", fmt.Errorf("unknown storage backend: %s", s.backend)
	}
}

// buildReadDataset opens the dataset for reading.
func buildReadDataset(ctx context.Context, s storageChoice) (lodelibrary.Dataset, error) {
	switch s.backend {
	case "fs":
		return lode.NewReadDatasetFS(s.dataset, s.path)
	case "s3":
		return lode.NewReadDatasetS3(ctx, s.dataset, s.s3Config())
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be fs or s3)", s.backend)
	}
}
