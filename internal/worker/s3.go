// internal/worker/s3.go
package worker

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"events-report/internal/config"
	"events-report/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3PutAPI 는 S3Transport 가 쓰는 client 메서드. 테스트에서 대체한다.
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Transport 는 report 하나를 object 하나로 올린다.
//
//	<S3_PREFIX>/dt=YYYY-MM-DD/hr=HH/<unix>_<instance>_<counter>.<format>
//
// SDK retry 는 0 으로 고정하고 애플리케이션 retry 도 없다 (한 번 시도).
type S3Transport struct {
	client     s3PutAPI
	bucket     string
	prefix     string
	instanceID string
	timeout    time.Duration
}

// NewS3Transport 는 AWS 기본 credential chain 으로 client 를 만든다.
func NewS3Transport(ctx context.Context, cfg config.Config) (*S3Transport, error) {
	awsCfg, err := awsCfgLib.LoadDefaultConfig(ctx, awsCfgLib.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 0
	})

	return newS3Transport(client, cfg.S3Bucket, cfg.S3Prefix, cfg.InstanceID, cfg.S3Timeout), nil
}

func newS3Transport(client s3PutAPI, bucket, prefix, instanceID string, timeout time.Duration) *S3Transport {
	return &S3Transport{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		instanceID: instanceID,
		timeout:    timeout,
	}
}

func (t *S3Transport) Name() string { return config.SinkS3 }

func (t *S3Transport) Close() error { return nil }

func (t *S3Transport) Deliver(ctx context.Context, p *model.Payload) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	key := BuildS3Key(t.prefix, NewFilename(t.instanceID, p.Format))

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(p.Body),
		ContentLength: aws.Int64(int64(len(p.Body))),
		ContentType:   aws.String(contentType(p.Format)),
		Metadata: map[string]string{
			"report-id":   p.ReportID,
			"num-clients": fmt.Sprint(p.NumClients),
			"num-dhcp":    fmt.Sprint(p.NumDhcp),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func contentType(format string) string {
	if format == config.FormatJSONLGZ {
		return "application/gzip"
	}
	return "application/json"
}
