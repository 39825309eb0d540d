// Package reports uploads reconciliation reports to S3-compatible object
// storage.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Sink writes each report as a JSON object under reconcile/.
type S3Sink struct {
	client objectPutter
	bucket string
}

func NewS3Sink(ctx context.Context, c *config.Config) (*S3Sink, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(c.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			// MinIO and friends do not serve virtual-host buckets.
			o.UsePathStyle = true
		}
	})

	return &S3Sink{client: client, bucket: c.S3Bucket}, nil
}

// ReportKey returns the object key for r, partitioned by check date.
func ReportKey(r *models.ReconcileReport) string {
	d := r.CheckedAt.UTC()
	return fmt.Sprintf("reconcile/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), r.RunID)
}

func (s *S3Sink) Upload(ctx context.Context, r *models.ReconcileReport) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", err
	}

	key := ReportKey(r)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	return key, nil
}
