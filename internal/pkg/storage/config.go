package storage

import (
	"errors"
	"time"

	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
)

// DefaultSignedURLTTL applies to material links and upload URLs.
const DefaultSignedURLTTL = 300 * time.Second

// Config holds the private course bucket configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PathStyle       bool
	SignedURLTTL    time.Duration
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PathStyle:       env.GetBool("S3_PATH_STYLE", false),
		SignedURLTTL:    time.Duration(env.GetInt("S3_SIGNED_URL_TTL", int(DefaultSignedURLTTL/time.Second))) * time.Second,
	}

	if cfg.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3_BUCKET is required")
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = DefaultSignedURLTTL
	}
	return cfg, nil
}
