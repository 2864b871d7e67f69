package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	putErr  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

var _ objectAPI = (*fakeObjects)(nil)

func TestS3_PutAndDelete(t *testing.T) {
	api := &fakeObjects{}
	s := &S3{api: api, bucket: "media"}
	ctx := context.Background()

	loc, err := s.Put(ctx, "tracks/a", strings.NewReader("abc"), 3)
	require.NoError(t, err)
	require.Equal(t, "s3://media/tracks/a", loc)
	require.Len(t, api.puts, 1)
	require.Equal(t, "media", aws.ToString(api.puts[0].Bucket))
	require.Equal(t, int64(3), aws.ToInt64(api.puts[0].ContentLength))

	require.NoError(t, s.Delete(ctx, loc))
	require.Equal(t, "tracks/a", aws.ToString(api.deletes[0].Key))

	require.ErrorIs(t, s.Delete(ctx, "s3://other/tracks/a"), ErrBadLocation)
}

func TestS3_PutError(t *testing.T) {
	boom := errors.New("boom")
	s := &S3{api: &fakeObjects{putErr: boom}, bucket: "media"}
	_, err := s.Put(context.Background(), "k", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, boom)
}

func TestMemory_PutDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	loc, err := m.Put(ctx, "covers/x", strings.NewReader("img"), 3)
	require.NoError(t, err)
	b, ok := m.Get(loc)
	require.True(t, ok)
	require.Equal(t, "img", string(b))

	require.NoError(t, m.Delete(ctx, loc))
	require.Zero(t, m.Len())
	require.ErrorIs(t, m.Delete(ctx, "s3://x"), ErrBadLocation)
}

func TestNewKey(t *testing.T) {
	at := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	k := NewKey("media", at)
	require.True(t, strings.HasPrefix(k, "media/2024/03/07/"))
	require.NotEqual(t, k, NewKey("media", at))
}
