package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultExpiry is how long a presigned URL stays usable.
const DefaultExpiry = 15 * time.Minute

// Config points at an S3-compatible bucket.
type Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Upload is a presigned PUT target.
type Upload struct {
	URL string
	Key string
}

// Presigner issues presigned upload URLs for one bucket.
type Presigner struct {
	client *s3.PresignClient
	bucket string
	expiry time.Duration
}

// NewPresigner builds an S3 presign client from static credentials.
func NewPresigner(ctx context.Context, cfg Config) (*Presigner, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Presigner{
		client: s3.NewPresignClient(client),
		bucket: cfg.Bucket,
		expiry: DefaultExpiry,
	}, nil
}

// PresignPut returns a URL the client can PUT an object to, under a fresh
// key inside prefix.
func (p *Presigner) PresignPut(ctx context.Context, prefix, contentType string) (*Upload, error) {
	key := path.Join(strings.Trim(prefix, "/"), uuid.NewString())
	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	req, err := p.client.PresignPutObject(ctx, in, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return nil, fmt.Errorf("objectstore: presign put: %w", err)
	}
	return &Upload{URL: req.URL, Key: key}, nil
}
