package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// ErrNotConfigured is returned by a nil client.
var ErrNotConfigured = errors.New("object storage is not configured")

// PresignedRequest describes an upload the browser performs directly.
type PresignedRequest struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Key       string            `json:"key"`
	ExpiresIn int               `json:"expiresIn"`
	Headers   map[string]string `json:"headers"`
}

// Client issues short-lived links to the private course bucket.
type Client struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	config    *Config
}

// NewClient builds the S3 client. No request is made; use Health to probe.
func NewClient(cfg *Config) (*Client, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	log.Infof("[Storage] S3 client ready for bucket: %s", cfg.BucketName)
	return &Client{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		config:    cfg,
	}, nil
}

func (c *Client) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.config.SignedURLTTL
	}
	return ttl
}

// DefaultTTL is the configured lifetime of signed links.
func (c *Client) DefaultTTL() time.Duration {
	if c == nil {
		return DefaultSignedURLTTL
	}
	return c.config.SignedURLTTL
}

// PresignGet returns a read link for a stored material.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.ttl(ttl)))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignPut returns an upload link bound to the content type.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedRequest, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	ttl = c.ttl(ttl)
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.BucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}
	return &PresignedRequest{
		Method:    req.Method,
		URL:       req.URL,
		Key:       key,
		ExpiresIn: int(ttl / time.Second),
		Headers:   map[string]string{"Content-Type": contentType},
	}, nil
}

// Delete removes an object; deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil {
		return ErrNotConfigured
	}
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Health checks that the bucket is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c == nil {
		return ErrNotConfigured
	}
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.BucketName),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", c.config.BucketName, err)
	}
	return nil
}
