package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Sink stores results in a bucket under an optional key prefix.
type S3Sink struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
	prefix     string
}

// NewS3Sink creates a sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, bucketName, prefix string) (*S3Sink, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg)

	return &S3Sink{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}, nil
}

func (s *S3Sink) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Put uploads data and returns an s3://bucket/key reference.
func (s *S3Sink) Put(ctx context.Context, key string, obj Object) (string, error) {
	objKey := s.objectKey(key)
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objKey),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
		Metadata: map[string]string{
			"name": obj.Name,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("key", objKey).Msg("result upload failed")
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().
		Str("key", objKey).
		Int("size", len(obj.Data)).
		Str("location", out.Location).
		Msg("uploaded result to S3")
	return fmt.Sprintf("s3://%s/%s", s.bucketName, objKey), nil
}

// Get downloads an object stored by Put.
func (s *S3Sink) Get(ctx context.Context, ref string) (Object, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return Object{}, err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Object{}, fmt.Errorf("failed to read S3 object: %w", err)
	}
	obj := Object{Data: data, Name: path.Base(key)}
	if result.ContentType != nil {
		obj.ContentType = *result.ContentType
	}
	// S3 returns user metadata keys canonicalised
	for k, v := range result.Metadata {
		if strings.EqualFold(k, "name") && v != "" {
			obj.Name = v
		}
	}
	return obj, nil
}

// Check verifies the bucket is reachable.
func (s *S3Sink) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return err
}

func (s *S3Sink) String() string { return "s3://" + s.bucketName }

// parseS3Ref splits s3://bucket/key.
func parseS3Ref(ref string) (string, string, error) {
	p := strings.TrimPrefix(ref, "s3://")
	if p == ref {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	slash := strings.Index(p, "/")
	if slash <= 0 || slash == len(p)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	return p[:slash], p[slash+1:], nil
}
