// Package storage reads uploaded resumes from Cloudflare R2 through the S3 API.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/muhammadolammi/jobmatchassistant/internal/retry"
)

const fetchAttempts = 3

type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Endpoint is the account's S3-compatible URL.
func (c R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// R2 fetches objects from one bucket.
type R2 struct {
	client objectGetter
	bucket string
}

// NewR2 builds an S3 client for the account in cfg.
func NewR2(ctx context.Context, cfg R2Config) (*R2, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint())
	})
	return &R2{client: client, bucket: cfg.Bucket}, nil
}

// Fetch downloads key, retrying transient failures. A missing key wraps
// fs.ErrNotExist and is not retried.
func (r *R2) Fetch(ctx context.Context, key string) ([]byte, error) {
	var missing bool
	data, err := retry.Do(ctx, fetchAttempts, func() ([]byte, error) {
		if missing {
			return nil, nil
		}
		b, err := r.download(ctx, key)
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			missing = true
			return nil, nil
		}
		return b, err
	})
	if missing {
		return nil, fmt.Errorf("object %s: %w", key, fs.ErrNotExist)
	}
	if err != nil {
		slog.Warn("failed to download object", "key", key, "error", err)
		return nil, err
	}
	return data, nil
}

func (r *R2) download(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}
