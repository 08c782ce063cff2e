// Package objectstore hands out presigned S3 upload URLs for game cover art.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("object storage is not configured")

type Options struct {
	Region    string
	Endpoint  string // empty means AWS
	AccessKey string
	SecretKey string
	Bucket    string
	URLTTL    time.Duration
}

type Store struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// New builds a presign client from static credentials. S3-compatible
// endpoints such as MinIO are addressed path-style.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, ErrDisabled
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = 15 * time.Minute
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{presign: s3.NewPresignClient(client), bucket: opts.Bucket, ttl: opts.URLTTL}, nil
}

// PresignPut returns a URL the client can PUT the object to until expiry.
func (s *Store) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	expires := time.Now().Add(s.ttl)
	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, expires, nil
}
