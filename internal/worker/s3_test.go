package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3TransportPutsOneObjectPerReport(t *testing.T) {
	client := &fakeS3{}
	tr := newS3Transport(client, "bucket", "events/", "ap1", time.Second)

	require.NoError(t, tr.Deliver(context.Background(), samplePayload("r-1", `{"id":"r-1"}`)))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "bucket", aws.ToString(in.Bucket))

	key := aws.ToString(in.Key)
	assert.True(t, strings.HasPrefix(key, "events/dt="+DT()+"/hr="), key)
	assert.Contains(t, key, "_ap1_")
	assert.True(t, strings.HasSuffix(key, ".json"), key)

	assert.Equal(t, int64(len(`{"id":"r-1"}`)), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "r-1", in.Metadata["report-id"])
	assert.Equal(t, `{"id":"r-1"}`, string(client.bodies[0]))
}

func TestS3TransportSingleAttempt(t *testing.T) {
	client := &fakeS3{err: errors.New("503 slow down")}
	tr := newS3Transport(client, "bucket", "events", "ap1", time.Second)

	err := tr.Deliver(context.Background(), samplePayload("r-1", "{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 slow down")
	assert.Len(t, client.inputs, 1)
}
