package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/inkwell-app/inkwell/internal/config"
)

// S3Client uploads export snapshots to an S3-compatible bucket.
type S3Client struct {
	client *s3.Client
	bucket string
}

// UploadResult describes a stored snapshot.
type UploadResult struct {
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// NewS3Client creates a client for the configured bucket. Works against AWS
// and S3-compatible providers via a custom endpoint.
func NewS3Client(cfg *config.Config) (*S3Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3.Endpoint != "" && service == s3.ServiceID {
			return aws.Endpoint{
				URL:           cfg.S3.Endpoint,
				SigningRegion: cfg.S3.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "",
		)),
		awsconfig.WithRegion(cfg.S3.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3.Endpoint != ""
	})

	return &S3Client{
		client: client,
		bucket: cfg.S3.Bucket,
	}, nil
}

// UploadSnapshot stores a JSON snapshot under the given key and returns the
// stored object's details.
func (s *S3Client) UploadSnapshot(ctx context.Context, key string, body []byte) (*UploadResult, error) {
	result, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	return &UploadResult{
		Key:      key,
		Size:     int64(len(body)),
		Checksum: aws.ToString(result.ETag),
	}, nil
}
