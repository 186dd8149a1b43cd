package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (m *memObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[*in.Key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (m *memObjects) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestSaveUpload_Local(t *testing.T) {
	cfg := testConfig(t)
	st := NewStorageService(cfg.Storage, nil, nil)

	stored, err := st.SaveUpload(context.Background(), 1, "clip.MP4", bytes.NewReader(mp4Header()))
	require.NoError(t, err)
	assert.Equal(t, models.MediaLocal, stored.Media.Kind)
	assert.True(t, strings.HasPrefix(stored.Filename, "video-"))
	assert.True(t, strings.HasSuffix(stored.Filename, ".mp4"))
	assert.Equal(t, int64(len(mp4Header())), stored.Size)

	data, err := os.ReadFile(stored.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, mp4Header(), data)

	require.NoError(t, stored.Close())
	_, err = os.Stat(stored.LocalPath)
	assert.NoError(t, err, "local uploads are kept")
}

func TestSaveUpload_RejectsNonVideo(t *testing.T) {
	cfg := testConfig(t)
	st := NewStorageService(cfg.Storage, nil, nil)

	_, err := st.SaveUpload(context.Background(), 1, "notes.txt", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestSaveUpload_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = StorageS3
	objects := &memObjects{objects: map[string][]byte{}}
	st := NewStorageService(cfg.Storage, objects, nil)

	stored, err := st.SaveUpload(context.Background(), 9, "clip.mp4", bytes.NewReader(mp4Header()))
	require.NoError(t, err)
	assert.Equal(t, models.MediaObject, stored.Media.Kind)
	assert.True(t, strings.HasPrefix(stored.Media.Value, "videos/9/"))
	assert.Contains(t, objects.objects, stored.Media.Value)

	require.NoError(t, stored.Close())
	_, err = os.Stat(stored.LocalPath)
	assert.True(t, os.IsNotExist(err))

	path, cleanup, err := st.Materialize(context.Background(), stored.Media)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mp4Header(), data)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, st.Delete(context.Background(), stored.Media))
	assert.NotContains(t, objects.objects, stored.Media.Value)
}

func TestMaterialize_Local(t *testing.T) {
	cfg := testConfig(t)
	st := NewStorageService(cfg.Storage, nil, nil)
	video := writeVideo(t, cfg.Storage.UploadDir, "a.mp4")

	path, cleanup, err := st.Materialize(context.Background(), models.LocalMedia(video))
	require.NoError(t, err)
	assert.Equal(t, video, path)
	cleanup()

	_, err = os.Stat(video)
	assert.NoError(t, err)
}

func TestMaterialize_RejectsPathsOutsideUploads(t *testing.T) {
	cfg := testConfig(t)
	st := NewStorageService(cfg.Storage, nil, nil)
	outside := writeVideo(t, t.TempDir(), "secret.mp4")

	_, cleanup, err := st.Materialize(context.Background(), models.LocalMedia(outside))
	require.NotNil(t, cleanup)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = st.Materialize(context.Background(), models.LocalMedia(filepath.Join(cfg.Storage.UploadDir, "..", "x.mp4")))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMaterialize_NoMedia(t *testing.T) {
	st := NewStorageService(testConfig(t).Storage, nil, nil)

	_, _, err := st.Materialize(context.Background(), models.MediaRef{})
	assert.ErrorIs(t, err, ErrNoMedia)

	_, _, err = st.Materialize(context.Background(), models.ObjectMedia("videos/1/a.mp4"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMaterialize_RemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(mp4Header())
	}))
	defer srv.Close()

	cfg := testConfig(t)
	st := NewStorageService(cfg.Storage, nil, nil)

	path, cleanup, err := st.Materialize(context.Background(), models.RemoteMedia(srv.URL+"/v.mp4"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mp4Header(), data)
	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, _, err = st.Materialize(context.Background(), models.RemoteMedia(srv.URL+"/missing.mp4"))
	assert.ErrorIs(t, err, ErrUploadFailed)

	entries, _ := os.ReadDir(cfg.Storage.TempDir)
	assert.Empty(t, entries)
}

func TestDeleteUpload(t *testing.T) {
	cfg := testConfig(t)
	st := NewStorageService(cfg.Storage, nil, nil)
	writeVideo(t, cfg.Storage.UploadDir, "video-abc.mp4")

	require.NoError(t, st.DeleteUpload(context.Background(), 1, "video-abc.mp4"))
	assert.ErrorIs(t, st.DeleteUpload(context.Background(), 1, "video-abc.mp4"), ErrFileNotFound)
	assert.ErrorIs(t, st.DeleteUpload(context.Background(), 1, "../config.go"), ErrInvalidInput)
	assert.ErrorIs(t, st.DeleteUpload(context.Background(), 1, ".."), ErrInvalidInput)
}

func TestDeleteUpload_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = StorageS3
	objects := &memObjects{objects: map[string][]byte{}}
	st := NewStorageService(cfg.Storage, objects, nil)

	stored, err := st.SaveUpload(context.Background(), 9, "clip.mp4", bytes.NewReader(mp4Header()))
	require.NoError(t, err)
	require.NoError(t, stored.Close())
	other, err := st.SaveUpload(context.Background(), 4, "clip.mp4", bytes.NewReader(mp4Header()))
	require.NoError(t, err)
	require.NoError(t, other.Close())

	require.NoError(t, st.DeleteUpload(context.Background(), 9, stored.Filename))
	assert.NotContains(t, objects.objects, stored.Media.Value)

	require.NoError(t, st.DeleteUpload(context.Background(), 9, other.Filename))
	assert.Contains(t, objects.objects, other.Media.Value)

	assert.ErrorIs(t, st.DeleteUpload(context.Background(), 9, "../x.mp4"), ErrInvalidInput)
}
