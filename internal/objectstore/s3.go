package objectstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"expenseindex/internal/config"
)

// S3Fetcher implements Fetcher against AWS S3 and S3-compatible services
// (e.g. MinIO) reached via an `s3://bucket/key` source URL.
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher builds an S3Fetcher from configuration.
func NewS3Fetcher(ctx context.Context, cfg config.Config) (*S3Fetcher, error) {
	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}
	if !cfg.S3UseTLS {
		transport := &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		awsOpts = append(awsOpts, awsconfig.WithHTTPClient(&http.Client{Transport: transport}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Fetcher{client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Fetch parses sourceURL as `s3://bucket/key`, downloads the object, and
// returns its bytes and content type.
func (f *S3Fetcher) Fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	bucket, key, err := parseS3URL(sourceURL)
	if err != nil {
		return nil, "", err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, "", ErrNotFound
		}
		if isAccessDeniedError(err) {
			return nil, "", ErrAccessDenied
		}
		return nil, "", fmt.Errorf("s3 get %s: %w", sourceURL, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read object body: %w", err)
	}

	mimeType := aws.ToString(out.ContentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

func parseS3URL(sourceURL string) (bucket, key string, err error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", "", fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("unsupported source url scheme %q, expected s3://", u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("source url %q must be of the form s3://bucket/key", sourceURL)
	}
	return bucket, key, nil
}

func isNotFoundError(err error) bool {
	var notFound *s3types.NotFound
	var noSuchKey *s3types.NoSuchKey
	var noSuchBucket *s3types.NoSuchBucket
	return errors.As(err, &notFound) ||
		errors.As(err, &noSuchKey) ||
		errors.As(err, &noSuchBucket) ||
		strings.Contains(err.Error(), "NotFound") ||
		strings.Contains(err.Error(), "NoSuchKey")
}

func isAccessDeniedError(err error) bool {
	return strings.Contains(err.Error(), "AccessDenied") ||
		strings.Contains(err.Error(), "Forbidden")
}
