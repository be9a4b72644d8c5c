package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/engine"
	"github.com/ignite/customer-alerts/internal/pkg/awsutil"
)

// ObjectPutter is the part of the S3 client the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ItemPutter is the part of the DynamoDB client the sink needs.
type ItemPutter interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// RunItem is the DynamoDB record of one run.
type RunItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	RunID     string `dynamodbav:"RunID"`
	Prefix    string `dynamodbav:"Prefix"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// runRetention bounds how long run summaries stay in the table.
const runRetention = 180 * 24 * time.Hour

// AWS uploads snapshots to S3 and records each run in DynamoDB.
type AWS struct {
	s3        ObjectPutter
	dynamo    ItemPutter
	bucket    string
	prefix    string
	tableName string
	now       func() time.Time
}

// NewAWS builds clients from the default credential chain.
func NewAWS(ctx context.Context, cfg config.StorageConfig) (*AWS, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}
	awsCfg, err := awsutil.LoadConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile())
	if err != nil {
		return nil, err
	}
	var dyn ItemPutter
	if cfg.DynamoDBTable != "" {
		dyn = dynamodb.NewFromConfig(awsCfg)
	}
	return NewAWSWithClients(s3.NewFromConfig(awsCfg), dyn, cfg.S3Bucket, cfg.S3Prefix, cfg.DynamoDBTable), nil
}

// NewAWSWithClients wires existing clients. dynamo may be nil to skip
// the run summary.
func NewAWSWithClients(s3c ObjectPutter, dynamo ItemPutter, bucket, prefix, table string) *AWS {
	return &AWS{s3: s3c, dynamo: dynamo, bucket: bucket, prefix: prefix, tableName: table, now: time.Now}
}

// Save uploads every snapshot file, then the run summary.
func (a *AWS) Save(ctx context.Context, res *engine.Result) error {
	files, err := Encode(res)
	if err != nil {
		return err
	}
	prefix := path.Join(a.prefix, RunDay(res))
	for _, f := range files {
		key := path.Join(prefix, f.Name)
		_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(f.Data),
			ContentType: aws.String(f.ContentType),
		})
		if err != nil {
			return fmt.Errorf("uploading s3://%s/%s: %w", a.bucket, key, err)
		}
	}
	if a.dynamo == nil {
		return nil
	}
	return a.putRun(ctx, res, prefix)
}

func (a *AWS) putRun(ctx context.Context, res *engine.Result, prefix string) error {
	data, err := json.Marshal(res.Summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	now := a.now().UTC()
	item := RunItem{
		PK:        "RUN#" + RunDay(res),
		SK:        now.Format(time.RFC3339) + "#" + res.RunID,
		RunID:     res.RunID,
		Prefix:    prefix,
		Data:      string(data),
		Timestamp: now.Format(time.RFC3339),
		TTL:       now.Add(runRetention).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling run item: %w", err)
	}
	if _, err := a.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("putting run item: %w", err)
	}
	return nil
}
