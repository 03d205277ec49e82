package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type Config struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PresignTTL time.Duration
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// LinkSigner turns stored document URIs into short-lived download URLs.
// Documents are indexed with either an s3://bucket/key URI or a bare
// object key in the default bucket.
type LinkSigner struct {
	presigner     presignAPI
	defaultBucket string
	ttl           time.Duration
}

func NewLinkSigner(ctx context.Context, cfg Config) (*LinkSigner, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LinkSigner{
		presigner:     awss3.NewPresignClient(client),
		defaultBucket: cfg.Bucket,
		ttl:           ttl,
	}, nil
}

// SignLink presigns a GET for the object behind uri. Plain http(s) URIs
// pass through untouched so externally hosted documents keep their links.
func (s *LinkSigner) SignLink(ctx context.Context, uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("empty document uri")
	}
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri, nil
	}

	bucket, key, err := s.resolve(uri)
	if err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(o *awss3.PresignOptions) {
		o.Expires = s.ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", uri, err)
	}
	return req.URL, nil
}

func (s *LinkSigner) resolve(uri string) (bucket, key string, err error) {
	if strings.HasPrefix(uri, "s3://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", "", fmt.Errorf("parse document uri %q: %w", uri, err)
		}
		bucket = parsed.Host
		key = strings.TrimPrefix(parsed.Path, "/")
		if bucket == "" || key == "" {
			return "", "", fmt.Errorf("document uri %q has no bucket or key", uri)
		}
		return bucket, key, nil
	}

	if s.defaultBucket == "" {
		return "", "", fmt.Errorf("no default bucket for document uri %q", uri)
	}
	return s.defaultBucket, strings.TrimPrefix(uri, "/"), nil
}
