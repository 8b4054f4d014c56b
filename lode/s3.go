package lode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates a dataset root in S3 or an S3-compatible store.
type S3Config struct {
	Bucket string
	Prefix string
	// Region falls back to the AWS default chain when empty.
	Region string
	// Endpoint overrides the AWS endpoint (MinIO, R2, localstack).
	Endpoint     string
	UsePathStyle bool
}

// ParseS3Path splits "bucket/prefix", "bucket" or "s3://bucket/prefix".
// Leading and trailing slashes on the prefix are dropped.
func ParseS3Path(p string) (bucket, prefix string) {
	p = strings.TrimPrefix(p, "s3://")
	bucket, prefix, _ = strings.Cut(p, "/")
	return bucket, strings.Trim(prefix, "/")
}

// Validate rejects a missing bucket or an unparseable endpoint.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid S3 endpoint %q: want scheme://host", c.Endpoint)
		}
	}
	return nil
}

// DatasetURI renders the s3:// location of a dataset under this config.
func (c *S3Config) DatasetURI(dataset string) string {
	return "s3://" + path.Join(c.Bucket, c.Prefix, "datasets", dataset)
}

func (c *S3Config) clientOptions() []func(*s3.Options) {
	endpoint, pathStyle := c.Endpoint, c.UsePathStyle
	return []func(*s3.Options){func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = pathStyle
	}}
}

// newS3Factory resolves AWS credentials once and returns a store factory
// bound to the bucket and prefix.
func newS3Factory(ctx context.Context, c S3Config) (lode.StoreFactory, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if c.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(c.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("load AWS config: %w", err), c.Bucket)
	}
	client := s3.NewFromConfig(awsCfg, c.clientOptions()...)
	storeCfg := lodes3.Config{Bucket: c.Bucket, Prefix: c.Prefix}

	return func() (lode.Store, error) {
		return lodes3.New(client, storeCfg)
	}, nil
}

// NewLodeS3Client opens a write client over S3.
func NewLodeS3Client(ctx context.Context, cfg Config, s3cfg S3Config) (*LodeClient, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewLodeClientWithFactory(cfg, factory)
}
