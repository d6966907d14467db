// Package s3blob holds the cold-storage side of the engine: an S3 client
// plus the reader, writer, and archiver over it. Any S3-compatible provider
// works; the endpoint and addressing style are configurable.
package s3blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds the object-store connection settings.
type ClientConfig struct {
	// Endpoint overrides the AWS endpoint for S3-compatible providers.
	// Empty means standard AWS S3. A bare host gets a scheme from UseSSL.
	Endpoint string

	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// UseSSL picks https when Endpoint carries no scheme.
	UseSSL bool

	// ForcePathStyle puts the bucket in the path instead of the subdomain,
	// which most non-AWS providers require.
	ForcePathStyle bool
}

// Client wraps the SDK client with the configured bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds an S3 client from the config and static credentials.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Client{s3: client, bucket: cfg.Bucket}, nil
}

// Health checks bucket reachability and permissions via HeadBucket.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Close exists for lifecycle symmetry with the other clients; the SDK's
// HTTP client needs no teardown.
func (c *Client) Close() error {
	return nil
}

// S3 returns the SDK client for the reader and writer in this package.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the configured bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// withScheme prepends http(s) to a bare endpoint host.
func withScheme(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
