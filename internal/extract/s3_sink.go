package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Sink stages batch artifacts in object storage for the downstream
// warehouse loader.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

func NewS3Sink(ctx context.Context, bucket, prefix, region string, logger zerolog.Logger) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Sink{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("component", "s3_sink").Logger(),
	}, nil
}

func (s *S3Sink) WriteBatch(ctx context.Context, tableName, jobID string, batchNum int, records []Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", dataError(err, "serialize batch")
	}

	key := path.Join(s.prefix, batchFileName(tableName, jobID, batchNum, time.Now()))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", connectivityError(err, "upload batch to s3://"+s.bucket+"/"+key)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info().
		Str("table", tableName).
		Str("job_id", jobID).
		Int("batch", batchNum).
		Int("records", len(records)).
		Str("location", location).
		Msg("Staged batch")
	return location, nil
}
