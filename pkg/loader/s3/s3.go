package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/kgimport/pkg/loader"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of the S3 API the loader needs. *s3.Client
// implements it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3TextLoader loads document text from an S3 bucket (or an S3-compatible
// store like MinIO). Results are cached per key.
type S3TextLoader struct {
	bucket string
	client ObjectGetter
	cache  loader.Cache
}

// NewS3TextLoader creates a loader for bucket using an existing client.
//
// Example:
//
//	client, err := storage.NewS3Client(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	l := s3.NewS3TextLoader(storage.Bucket(), client)
//	text, err := l.LoadText(ctx, "imports/abc.txt")
func NewS3TextLoader(bucket string, client ObjectGetter) *S3TextLoader {
	return &S3TextLoader{bucket: bucket, client: client}
}

// LoadText downloads the object stored under key.
func (l *S3TextLoader) LoadText(ctx context.Context, key string) (string, error) {
	b, err := l.cache.Get(key, func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %s from S3: %w", key, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return "", err
	}
	return loader.Text(b), nil
}

// Forget removes key from the cache, e.g. after the import finished.
func (l *S3TextLoader) Forget(key string) {
	l.cache.Forget(key)
}
