package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/jobmatchassistant/internal/retry"
)

func init() {
	retry.BaseDelay = time.Millisecond
}

type fakeS3 struct {
	calls   int
	failFor int
	objects map[string]string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	if f.calls <= f.failFor {
		return nil, errors.New("connection reset")
	}
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	fake := &fakeS3{failFor: 2, objects: map[string]string{"cv.pdf": "data"}}
	r := &R2{client: fake, bucket: "resumes"}

	got, err := r.Fetch(context.Background(), "cv.pdf")

	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
	assert.Equal(t, 3, fake.calls)
}

func TestFetchMissingKeyIsNotExist(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	r := &R2{client: fake, bucket: "resumes"}

	_, err := r.Fetch(context.Background(), "nope.pdf")

	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 1, fake.calls)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://abc.r2.cloudflarestorage.com", R2Config{AccountID: "abc"}.Endpoint())
}
