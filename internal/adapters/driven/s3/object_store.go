// Package s3 implements the ObjectStore port against AWS S3 and
// S3-compatible endpoints such as MinIO.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ObjectStore = (*ObjectStore)(nil)

// s3API is the subset of the S3 client used by the adapter
type s3API interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
}

// Config holds S3 connection configuration
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// UsePathStyle addresses buckets as /{bucket}/{key}, required by
	// most S3-compatible services.
	UsePathStyle bool
}

// ObjectStore implements driven.ObjectStore using the AWS SDK
type ObjectStore struct {
	client  s3API
	presign *awss3.PresignClient
	bucket  string
}

// NewObjectStore creates an S3-backed ObjectStore
func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, &domain.ConfigurationError{Field: "bucket", Reason: "must not be empty"}
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &ObjectStore{
		client:  client,
		presign: awss3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// List returns all object keys under the prefix, skipping folder markers
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	infos, err := s.ListInfo(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}

// ListInfo returns metadata for all objects under the prefix
func (s *ObjectStore) ListInfo(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var infos []domain.ObjectInfo

	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, &domain.StorageError{Op: "list", Key: prefix, Err: err}
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			// Folder placeholder objects carry no content
			if strings.HasSuffix(key, "/") {
				continue
			}
			infos = append(infos, domain.ObjectInfo{
				Key:          key,
				FileName:     path.Base(key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				Bucket:       s.bucket,
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	return infos, nil
}

// Get downloads the full object body
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// Info returns metadata for a single object
func (s *ObjectStore) Info(ctx context.Context, key string) (*domain.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "head", Key: key, Err: err}
	}

	return &domain.ObjectInfo{
		Key:          key,
		FileName:     path.Base(key),
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Bucket:       s.bucket,
	}, nil
}

// PresignURL returns a time-limited GET URL for the object
func (s *ObjectStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Key: key, Err: err}
	}
	return req.URL, nil
}

// Bucket returns the configured bucket name
func (s *ObjectStore) Bucket() string {
	return s.bucket
}
