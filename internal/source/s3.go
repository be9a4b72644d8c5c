package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/pkg/awsutil"
)

// ObjectGetter is the part of the S3 client the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads a CSV or XLSX ledger object.
type S3 struct {
	client ObjectGetter
	bucket string
	key    string
	sheet  string
}

// NewS3 builds an S3 source from the default credential chain.
func NewS3(ctx context.Context, cfg config.SourceConfig) (*S3, error) {
	if cfg.S3Bucket == "" || cfg.S3Key == "" {
		return nil, fmt.Errorf("source: s3 bucket and key are required")
	}
	awsCfg, err := awsutil.LoadConfig(ctx, cfg.AWSRegion, cfg.AWSProfile)
	if err != nil {
		return nil, err
	}
	return NewS3WithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key, cfg.Sheet), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client ObjectGetter, bucket, key, sheet string) *S3 {
	return &S3{client: client, bucket: bucket, key: key, sheet: sheet}
}

// Load downloads the object and normalizes it.
func (s *S3) Load(ctx context.Context, today time.Time) (*datanorm.ReadResult, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("source: get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("source: read s3://%s/%s: %w", s.bucket, s.key, err)
	}

	var header []string
	var rows [][]string
	switch strings.ToLower(path.Ext(s.key)) {
	case ".xlsx", ".xlsm":
		header, rows, err = datanorm.ReadXLSXTable(bytes.NewReader(data), s.sheet)
	default:
		header, rows, err = datanorm.ReadCSVTable(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	return datanorm.ReadRecords(header, rows, today)
}
