package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/gymcrm/gymcrm-backend/internal/config"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
)

// objectPutter is the subset of the S3 client the archive needs
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3BillingArchive stores a JSON copy of each finalized billing record
type S3BillingArchive struct {
	client objectPutter
	bucket string
}

// NewS3BillingArchive creates an archive on the configured bucket, creating the bucket if missing
func NewS3BillingArchive(ctx context.Context, s3cfg cfg.S3Config) (*S3BillingArchive, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Optional endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	if err := ensureBucket(ctx, client, s3cfg.Bucket); err != nil {
		return nil, err
	}

	return &S3BillingArchive{client: client, bucket: s3cfg.Bucket}, nil
}

// ensureBucket creates a private bucket if it doesn't exist
func ensureBucket(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
	}

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ObjectKey returns the archive location of a billing record
func ObjectKey(billing *domain.MonthlyBilling) string {
	return fmt.Sprintf("billing/%s/%04d-%02d.json", billing.GymID, billing.BillingYear, billing.BillingMonth)
}

// Archive writes the billing record as JSON. Re-archiving the same period overwrites the object.
func (a *S3BillingArchive) Archive(ctx context.Context, billing *domain.MonthlyBilling) error {
	body, err := json.Marshal(billing)
	if err != nil {
		return fmt.Errorf("failed to encode billing: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(ObjectKey(billing)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"billing-id": billing.BillingID,
			"gym-id":     billing.GymID.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload billing archive: %w", err)
	}
	return nil
}
