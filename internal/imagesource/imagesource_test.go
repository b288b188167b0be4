package imagesource

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngData(size int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if size < len(header) {
		size = len(header)
	}
	data := make([]byte, size)
	copy(data, header)
	return data
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFileSource(t *testing.T) {
	src := FileSource{MaxBytes: 1024}

	t.Run("reads png", func(t *testing.T) {
		path := writeFile(t, "page1.png", pngData(100))
		img, err := src.Fetch(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MediaType)
		assert.Len(t, img.Data, 100)
		assert.Equal(t, path, img.Ref)
	})

	t.Run("file url", func(t *testing.T) {
		path := writeFile(t, "page1.png", pngData(100))
		_, err := src.Fetch(context.Background(), "file://"+path)
		require.NoError(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "big.png", pngData(2048))
		_, err := src.Fetch(context.Background(), path)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("not an image", func(t *testing.T) {
		path := writeFile(t, "notes.txt", []byte("plans de la maison"))
		_, err := src.Fetch(context.Background(), path)
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.png"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small.png":
			_, _ = w.Write(pngData(64))
		case "/big.png":
			_, _ = w.Write(pngData(4096))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src := &HTTPSource{Client: server.Client(), MaxBytes: 1024}

	img, err := src.Fetch(context.Background(), server.URL+"/small.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)

	_, err = src.Fetch(context.Background(), server.URL+"/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = src.Fetch(context.Background(), server.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDataSource(t *testing.T) {
	src := DataSource{MaxBytes: 1024}
	encoded := base64.StdEncoding.EncodeToString(pngData(50))

	img, err := src.Fetch(context.Background(), "data:image/png;base64,"+encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Len(t, img.Data, 50)

	_, err = src.Fetch(context.Background(), "data:image/png,raw")
	assert.ErrorIs(t, err, ErrUnsupportedRef)

	big := base64.StdEncoding.EncodeToString(pngData(4096))
	_, err = src.Fetch(context.Background(), "data:image/png;base64,"+big)
	assert.ErrorIs(t, err, ErrTooLarge)
}

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestS3Source(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"plans/projet-42/page1.png": pngData(128),
		"plans/projet-42/page2.png": pngData(4096),
	}}
	src := &S3Source{Client: fake, MaxBytes: 1024}

	img, err := src.Fetch(context.Background(), "s3://plans/projet-42/page1.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)

	_, err = src.Fetch(context.Background(), "s3://plans/projet-42/page2.png")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = src.Fetch(context.Background(), "s3://plans/absent.png")
	assert.Error(t, err)
}

func TestParseS3Ref(t *testing.T) {
	bucket, key, err := ParseS3Ref("s3://plans/a/b/page.png")
	require.NoError(t, err)
	assert.Equal(t, "plans", bucket)
	assert.Equal(t, "a/b/page.png", key)

	for _, ref := range []string{"s3://", "s3://plans", "s3://plans/", "http://x/y"} {
		_, _, err := ParseS3Ref(ref)
		assert.ErrorIs(t, err, ErrUnsupportedRef, ref)
	}
}

type recordingSource struct {
	refs []string
}

func (r *recordingSource) Fetch(_ context.Context, ref string) (Image, error) {
	r.refs = append(r.refs, ref)
	return Image{Ref: ref}, nil
}

func TestRouter(t *testing.T) {
	file, web, bucket, data := &recordingSource{}, &recordingSource{}, &recordingSource{}, &recordingSource{}
	router := &Router{File: file, HTTP: web, S3: bucket, Data: data}

	refs := []string{"/tmp/a.png", "https://x/b.png", "http://x/c.png", "s3://b/d.png", "data:image/png;base64,AA=="}
	for _, ref := range refs {
		_, err := router.Fetch(context.Background(), ref)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"/tmp/a.png"}, file.refs)
	assert.Equal(t, []string{"https://x/b.png", "http://x/c.png"}, web.refs)
	assert.Equal(t, []string{"s3://b/d.png"}, bucket.refs)
	assert.Len(t, data.refs, 1)

	_, err := router.Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUnsupportedRef)

	noS3 := NewRouter(0, nil)
	_, err = noS3.Fetch(context.Background(), "s3://b/d.png")
	assert.ErrorIs(t, err, ErrUnsupportedRef)
}
