package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/awsenv"
	"github.com/janhq/image-upload/internal/infrastructure/metrics"
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = tagging.ErrNotFound

// Options configures the S3 adapter. Endpoint is only set for S3-compatible stores.
type Options struct {
	Bucket       string
	Endpoint     string
	Region       string
	AccessKeyID  string
	SecretKey    string
	UsePathStyle bool
}

// S3Storage presigns uploads and reads and writes object tags.
type S3Storage struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
	log     zerolog.Logger
}

func NewS3Storage(ctx context.Context, opts Options, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := awsenv.Load(ctx, awsenv.Options{
		Region:      opts.Region,
		AccessKeyID: opts.AccessKeyID,
		SecretKey:   opts.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger.Debug().Str("bucket", bucket).Str("endpoint", endpoint).Msg("s3 storage ready")
	return &S3Storage{
		bucket:  bucket,
		client:  client,
		presign: s3.NewPresignClient(client),
		log:     logger,
	}, nil
}

// Bucket returns the configured bucket name.
func (s *S3Storage) Bucket() string { return s.bucket }

// PresignPut returns a URL authorizing one PUT of key with the given content type.
func (s *S3Storage) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 || ttl > upload.MaxCredentialTTL {
		ttl = upload.MaxCredentialTTL
	}
	start := time.Now()
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	s.record("presign_put", start, err)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, start.Add(ttl), nil
}

// Exists reports whether key is present in the bucket.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		s.record("head_object", start, nil)
		return false, nil
	}
	s.record("head_object", start, err)
	if err != nil {
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// GetTags returns the object's tag set. A missing key yields ErrObjectNotFound.
func (s *S3Storage) GetTags(ctx context.Context, key string) ([]upload.TagRecord, error) {
	start := time.Now()
	out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		s.record("get_tagging", start, nil)
		return nil, ErrObjectNotFound
	}
	s.record("get_tagging", start, err)
	if err != nil {
		return nil, fmt.Errorf("get object tagging %s: %w", key, err)
	}
	tags := make([]upload.TagRecord, 0, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags = append(tags, upload.TagRecord{Key: aws.ToString(tag.Key), Value: aws.ToString(tag.Value)})
	}
	return tags, nil
}

// PutTags replaces the object's tag set.
func (s *S3Storage) PutTags(ctx context.Context, key string, tags []upload.TagRecord) error {
	set := make([]types.Tag, 0, len(tags))
	for _, tag := range tags {
		set = append(set, types.Tag{Key: aws.String(tag.Key), Value: aws.String(tag.Value)})
	}
	start := time.Now()
	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(key),
		Tagging: &types.Tagging{TagSet: set},
	})
	s.record("put_tagging", start, err)
	if err != nil {
		return fmt.Errorf("put object tagging %s: %w", key, err)
	}
	return nil
}

// Health performs a simple HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Storage) record(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		s.log.Warn().Err(err).Str("operation", operation).Msg("s3 operation failed")
	}
	metrics.RecordS3Operation(operation, status, time.Since(start).Seconds())
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
