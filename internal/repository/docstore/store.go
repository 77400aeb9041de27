package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// objectAPI is the consumer interface over the S3 client (ISP).
type objectAPI interface {
	ListObjectsV2(
		ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
	GetObject(
		ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
}

// Store reads normalized JSON documents from an S3-compatible bucket.
// The collection pipeline owns writes; this side only enumerates and fetches.
type Store struct {
	client  objectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds document store settings.
type Config struct {
	Endpoint  string // empty for AWS
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New creates a document store backed by an S3-compatible bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg), nil
}

func newWithClient(client objectAPI, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// ListAll enumerates and fetches every document object in the bucket.
// A corrupt object is skipped with a warning; a transport failure aborts
// the whole load so the caller can fall back to its last snapshot.
func (s *Store) ListAll(ctx context.Context) ([]domain.Document, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	keys, err := s.listKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list document objects: %w", err)
	}

	now := time.Now()
	docs := make([]domain.Document, 0, len(keys))
	for _, key := range keys {
		doc, err := s.fetch(ctx, key, now)
		if err != nil {
			return nil, fmt.Errorf("fetch document %s: %w", key, err)
		}
		if doc == nil {
			continue // unparsable object, already logged
		}
		docs = append(docs, *doc)
	}

	return docs, nil
}

// HealthCheck verifies bucket reachability with a single-key listing.
func (s *Store) HealthCheck(ctx context.Context) error {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}
	if _, err := s.client.ListObjectsV2(ctx, input); err != nil {
		return fmt.Errorf("list bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *Store) listKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			ContinuationToken: token,
		}
		if s.prefix != "" {
			input.Prefix = aws.String(s.prefix + "/")
		}

		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, obj := range out.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ".json") {
				continue
			}
			keys = append(keys, *obj.Key)
		}

		if out.NextContinuationToken == nil {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

// fetch loads one object and parses it. Returns (nil, nil) for objects
// that are not valid document JSON.
func (s *Store) fetch(ctx context.Context, key string, cachedAt time.Time) (*domain.Document, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	var dto documentDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		s.logger.Warn("Skipping unparsable document object",
			zap.String("key", key), zap.Error(err))
		return nil, nil
	}

	doc := dto.toDomain(key, int64(len(data)), cachedAt)
	return &doc, nil
}
