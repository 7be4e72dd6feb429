package loader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/storefront/pkg/lazy"
	"github.com/vango-dev/storefront/pkg/router"
)

type fakeS3 struct {
	objects map[string]string
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, aws.ToString(in.Bucket)+"/"+key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewBufferString(body)),
		ContentType: aws.String("text/javascript"),
		ETag:        aws.String(`"abc"`),
	}, nil
}

func TestS3StoreFetch(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"bundles/About.js": "export default About"}}
	store := NewS3Store(api, "views", "bundles/")

	b, err := store.Fetch(context.Background(), "About")
	require.NoError(t, err)
	assert.Equal(t, "About", b.ViewName())
	assert.Equal(t, "bundles/About.js", b.Key)
	assert.Equal(t, "text/javascript", b.ContentType)
	assert.Equal(t, `"abc"`, b.ETag)
	assert.Equal(t, "export default About", string(b.Body))
	assert.Equal(t, []string{"views/bundles/About.js"}, api.keys)
}

func TestS3StoreClassifiesErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"missing key", nil, true},
		{"missing bucket", &types.NoSuchBucket{}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"throttled", &smithy.GenericAPIError{Code: "SlowDown"}, false},
		{"network", errors.New("connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewS3Store(&fakeS3{err: tt.err}, "views", "")
			_, err := store.Fetch(context.Background(), "Register")
			require.Error(t, err)
			assert.Equal(t, tt.fatal, lazy.IsFatal(err))
		})
	}
}

func TestS3StoreRejectsOversizedAndBadNames(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"Big.js": "0123456789"}}
	store := NewS3Store(api, "views", "").WithMaxSize(4)

	_, err := store.Fetch(context.Background(), "Big")
	require.Error(t, err)
	assert.True(t, lazy.IsFatal(err))

	for _, name := range []string{"", "../secret", "a/b"} {
		_, err := store.Fetch(context.Background(), name)
		assert.True(t, lazy.IsFatal(err), "name %q", name)
	}
	assert.Len(t, api.keys, 1, "invalid names must not reach S3")
}

func TestS3StoreExt(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"About.mjs": "x"}}
	_, err := NewS3Store(api, "views", "").WithExt(".mjs").Fetch(context.Background(), "About")
	require.NoError(t, err)
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "About.js"), []byte("about"), 0o644))

	store, err := NewDirStore(dir)
	require.NoError(t, err)

	b, err := store.Fetch(context.Background(), "About")
	require.NoError(t, err)
	assert.Equal(t, "about", string(b.Body))

	_, err = store.Fetch(context.Background(), "Missing")
	require.Error(t, err)
	assert.True(t, lazy.IsFatal(err))

	_, err = NewDirStore(filepath.Join(dir, "About.js"))
	assert.Error(t, err)
}

func TestFuncThroughGate(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"About.js": "about"}}
	store := NewS3Store(api, "views", "")
	gate := lazy.NewGate()

	ref := router.Deferred("About", Func(store, "About"))
	for i := 0; i < 3; i++ {
		v, err := gate.Load(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "About", v.ViewName())
	}
	assert.Len(t, api.keys, 1)

	missing := router.Deferred("Gone", Func(store, "Gone"))
	_, err := gate.Load(context.Background(), missing)
	require.ErrorIs(t, err, lazy.ErrLoadFailed)
	_, err = gate.Load(context.Background(), missing)
	require.ErrorIs(t, err, lazy.ErrLoadFailed)
	assert.Len(t, api.keys, 2, "a missing bundle is not fetched twice")
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3Config{Region: "eu-west-1", Endpoint: "http://localhost:9000", AccessKeyID: "k", SecretAccessKey: "s"})
	opts := c.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k", creds.AccessKeyID)
}
