// Package storage puts import documents into the S3 bucket the workers
// read from.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/OFFIS-RIT/kgimport/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the part of the S3 API used for import documents.
// *s3.Client implements it.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Bucket returns the configured bucket (AWS_BUCKET).
func Bucket() string {
	return util.GetEnv("AWS_BUCKET")
}

// NewS3Client creates a path-style S3 client from AWS_REGION, AWS_ENDPOINT,
// AWS_ACCESS_KEY and AWS_SECRET_KEY.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// DocumentKey returns the object key for the text of an import. The
// extension of fileName is kept so the stored object stays recognizable.
//
//	DocumentKey("abc", "reports/q1.md") -> "imports/abc.md"
//	DocumentKey("abc", "")              -> "imports/abc.txt"
func DocumentKey(importID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" || strings.ContainsAny(ext, " /") {
		ext = ".txt"
	}
	return "imports/" + importID + ext
}

// PutText uploads text under key.
func PutText(ctx context.Context, client ObjectStore, bucket, key, text string) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

// DeleteFile removes key from the bucket.
func DeleteFile(ctx context.Context, client ObjectStore, bucket, key string) error {
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	return nil
}
