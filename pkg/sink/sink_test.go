package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_PutCreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")
	d := NewDir(root)

	loc, err := d.Put(context.Background(), "recovery.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "recovery.png"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDir_PutOverwrites(t *testing.T) {
	d := NewDir(t.TempDir())

	_, err := d.Put(context.Background(), "recovery.png", "", []byte("old"))
	require.NoError(t, err)
	loc, err := d.Put(context.Background(), "recovery.png", "", []byte("new"))
	require.NoError(t, err)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestDir_PutRejectsBadNames(t *testing.T) {
	d := NewDir(t.TempDir())

	for _, name := range []string{"", ".", "..", "../escape.png", "sub/dir.png"} {
		_, err := d.Put(context.Background(), name, "", []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestDir_PutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDir(t.TempDir()).Put(ctx, "recovery.png", "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3_Put(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		wantKey  string
		wantLoc  string
		ctype    string
		wantType *string
	}{
		{"with prefix", "charts/2024", "charts/2024/recovery.png", "s3://bucket/charts/2024/recovery.png", "image/png", aws.String("image/png")},
		{"no prefix", "", "recovery.png", "s3://bucket/recovery.png", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePutter{}
			s := NewS3WithClient(fake, "bucket", tt.prefix)

			loc, err := s.Put(context.Background(), "recovery.png", tt.ctype, []byte("png"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLoc, loc)

			require.NotNil(t, fake.input)
			assert.Equal(t, "bucket", aws.ToString(fake.input.Bucket))
			assert.Equal(t, tt.wantKey, aws.ToString(fake.input.Key))
			assert.Equal(t, int64(3), aws.ToInt64(fake.input.ContentLength))
			assert.Equal(t, tt.wantType, fake.input.ContentType)
			assert.Equal(t, "png", string(fake.body))
		})
	}
}

func TestS3_PutError(t *testing.T) {
	boom := errors.New("access denied")
	s := NewS3WithClient(&fakePutter{err: boom}, "bucket", "p")

	_, err := s.Put(context.Background(), "recovery.png", "image/png", []byte("png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s3://bucket/p/recovery.png")
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	require.Error(t, err)
}

func TestNewS3_ConfigLoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}

	_, err := NewS3(context.Background(), S3Config{Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}

func TestOpen(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}

	t.Run("directory", func(t *testing.T) {
		s, err := Open(context.Background(), "docs", S3Config{})
		require.NoError(t, err)
		d, ok := s.(*Dir)
		require.True(t, ok)
		assert.Equal(t, "docs", d.Path)
	})

	t.Run("s3 with prefix", func(t *testing.T) {
		s, err := Open(context.Background(), "s3://charts/whoop/recovery/", S3Config{Endpoint: "http://localhost:9000"})
		require.NoError(t, err)
		s3s, ok := s.(*S3)
		require.True(t, ok)
		assert.Equal(t, "charts", s3s.bucket)
		assert.Equal(t, "whoop/recovery/recovery.png", s3s.Key("recovery.png"))
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		_, err := Open(context.Background(), "s3://", S3Config{})
		require.Error(t, err)
	})

	t.Run("empty target", func(t *testing.T) {
		_, err := Open(context.Background(), "", S3Config{})
		require.Error(t, err)
	})
}
